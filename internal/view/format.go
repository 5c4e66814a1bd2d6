package view

import "time"

// DefaultTimeLayout renders dates the way en-US toLocaleString does.
const DefaultTimeLayout = "1/2/2006, 3:04:05 PM"

// Clock formats epoch-second timestamps in a fixed zone and layout.
type Clock struct {
	Location *time.Location
	Layout   string
}

// Format renders secs, or fallback when it is absent or zero. Zero never
// renders as 1970.
func (c Clock) Format(secs *int64, fallback string) string {
	if secs == nil || *secs == 0 {
		return fallback
	}
	return c.Time(*secs).Format(c.layout())
}

// Time converts secs to a time in the clock's zone.
func (c Clock) Time(secs int64) time.Time {
	loc := c.Location
	if loc == nil {
		loc = time.Local
	}
	return time.Unix(secs, 0).In(loc)
}

func (c Clock) layout() string {
	if c.Layout == "" {
		return DefaultTimeLayout
	}
	return c.Layout
}

func orDefault(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}

func orZero(n *int64) int64 {
	if n == nil {
		return 0
	}
	return *n
}
