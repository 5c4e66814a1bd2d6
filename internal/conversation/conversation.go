// Package conversation holds the two JSON shapes the conversations backend
// returns. The list and detail forms keep their timestamp fields in
// different places; both are preserved as-is.
package conversation

import (
	"fmt"
	"strings"
)

// RoleUser is the role of the human participant. Every other role is
// rendered as the agent.
const RoleUser = "user"

// Summary is a conversation as returned by GET /api/conversations.
type Summary struct {
	ConversationID    string  `json:"conversation_id" yaml:"conversation_id"`
	AgentName         *string `json:"agent_name,omitempty" yaml:"agent_name,omitempty"`
	Status            *string `json:"status,omitempty" yaml:"status,omitempty"`
	StartTimeUnixSecs *int64  `json:"start_time_unix_secs,omitempty" yaml:"start_time_unix_secs,omitempty"`
	CallDurationSecs  *int64  `json:"call_duration_secs,omitempty" yaml:"call_duration_secs,omitempty"`
}

// ListResponse is the envelope of the list endpoint.
type ListResponse struct {
	Conversations []Summary `json:"conversations" yaml:"conversations"`
}

// Detail is a conversation as returned by GET /api/conversations/{id}.
type Detail struct {
	ConversationID string    `json:"conversation_id" yaml:"conversation_id"`
	AgentID        string    `json:"agent_id" yaml:"agent_id"`
	Status         string    `json:"status" yaml:"status"`
	Metadata       *Metadata `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Transcript     []Message `json:"transcript" yaml:"transcript"`
}

// Metadata carries the detail form's timing fields.
type Metadata struct {
	StartTimeUnixSecs *int64 `json:"start_time_unix_secs,omitempty" yaml:"start_time_unix_secs,omitempty"`
	CallDurationSecs  *int64 `json:"call_duration_secs,omitempty" yaml:"call_duration_secs,omitempty"`
}

// Message is one transcript entry. Transcript order is chronological.
type Message struct {
	Role           string `json:"role" yaml:"role"`
	Message        string `json:"message" yaml:"message"`
	TimeInCallSecs *int64 `json:"time_in_call_secs,omitempty" yaml:"time_in_call_secs,omitempty"`
}

// SaveRequest is the body of POST /api/conversations/{id}/save.
type SaveRequest struct {
	Filename string `json:"filename"`
}

// IsUser reports whether the message was written by the human participant.
func (m Message) IsUser() bool {
	return m.Role == RoleUser
}

// StartTime returns the detail form's start timestamp, nil when absent.
func (d *Detail) StartTime() *int64 {
	if d == nil || d.Metadata == nil {
		return nil
	}
	return d.Metadata.StartTimeUnixSecs
}

// Duration returns the detail form's call duration, nil when absent.
func (d *Detail) Duration() *int64 {
	if d == nil || d.Metadata == nil {
		return nil
	}
	return d.Metadata.CallDurationSecs
}

// SaveFilename is the file name requested when saving a transcript.
func SaveFilename(id string) string {
	return fmt.Sprintf("conversation_%s.txt", id)
}

// FormatTranscript renders the transcript as plain text, one
// "User: ..." or "Agent: ..." line per message.
func FormatTranscript(d *Detail) string {
	if d == nil {
		return ""
	}
	var b strings.Builder
	for i, m := range d.Transcript {
		if i > 0 {
			b.WriteByte('\n')
		}
		speaker := "Agent"
		if m.IsUser() {
			speaker = "User"
		}
		b.WriteString(speaker)
		b.WriteString(": ")
		b.WriteString(m.Message)
	}
	return b.String()
}

// Remove returns the summaries without the one whose id matches. The input
// slice is not modified.
func Remove(items []Summary, id string) []Summary {
	out := make([]Summary, 0, len(items))
	for _, item := range items {
		if item.ConversationID != id {
			out = append(out, item)
		}
	}
	return out
}
