package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/comigor/convoview/internal/diagnostics"
	"github.com/comigor/convoview/internal/view"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

func checkFormat(format string) error {
	switch format {
	case formatText, formatJSON, formatYAML:
		return nil
	}
	return errors.Errorf("unknown output format %q (want text, json or yaml)", format)
}

// encode writes v as JSON or YAML.
func encode(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return checkFormat(format)
}

func printList(w io.Writer, m view.ListModel) error {
	if m.Empty {
		_, err := fmt.Fprintln(w, "No conversations found.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tSTATUS\tSTARTED\tDURATION")
	for _, c := range m.Cards {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d seconds\n", c.ID, c.Title, c.Status, c.Started, c.DurationSecs)
	}
	return tw.Flush()
}

func printDetail(w io.Writer, m view.DetailModel) error {
	fmt.Fprintf(w, "ID: %s\n", m.ID)
	fmt.Fprintf(w, "Agent ID: %s\n", m.AgentID)
	fmt.Fprintf(w, "Start Time: %s\n", m.StartTime)
	fmt.Fprintf(w, "Duration: %d seconds\n", m.DurationSecs)
	fmt.Fprintf(w, "Status: %s\n", m.Status)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Transcript")
	if m.EmptyTranscript {
		_, err := fmt.Fprintln(w, view.NoTranscriptMessage)
		return err
	}
	for _, b := range m.Bubbles {
		if _, err := fmt.Fprintf(w, "%s%s: %s\n", b.Label, b.Time, b.Text); err != nil {
			return err
		}
	}
	return nil
}

func printDiagnostics(w io.Writer, entries []diagnostics.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No diagnostics recorded.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tSITE\tERROR")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", humanize.Time(e.CreatedAt), e.Site, e.Message)
	}
	return tw.Flush()
}
