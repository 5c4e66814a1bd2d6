package cli

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/comigor/convoview/internal/lifecycle"
	"github.com/comigor/convoview/internal/view"
)

func newListCommand(app *App) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List conversations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			page := view.NewListPage(app.deps(nil))
			defer page.Unmount()
			page.Mount(cmd.Context())
			if err := page.Wait(cmd.Context()); err != nil {
				return err
			}

			m := page.Model()
			if m.State == lifecycle.StateFailed {
				return errors.New(m.Error)
			}
			if format != formatText {
				return encode(cmd.OutOrStdout(), format, page.Conversations())
			}
			return printList(cmd.OutOrStdout(), m)
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", formatText, "output format: text, json or yaml")
	return cmd
}

// loadDetail mounts a detail page for id and waits for it to settle. The
// caller unmounts it.
func loadDetail(ctx context.Context, deps view.Deps, id string) (*view.DetailPage, error) {
	page := view.NewDetailPage(id, deps)
	page.Mount(ctx)
	if err := page.Wait(ctx); err != nil {
		page.Unmount()
		return nil, err
	}
	m := page.Model()
	switch {
	case m.State == lifecycle.StateFailed:
		page.Unmount()
		return nil, errors.New(m.Error)
	case m.NotFound:
		page.Unmount()
		return nil, errors.New(view.NotFoundMessage)
	}
	return page, nil
}

func newShowCommand(app *App) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show <conversation-id>",
		Short: "Show a conversation and its transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			page, err := loadDetail(cmd.Context(), app.deps(nil), args[0])
			if err != nil {
				return err
			}
			defer page.Unmount()

			if format != formatText {
				return encode(cmd.OutOrStdout(), format, page.Conversation())
			}
			return printDetail(cmd.OutOrStdout(), page.Model())
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", formatText, "output format: text, json or yaml")
	return cmd
}

func newDeleteCommand(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <conversation-id>",
		Short: "Delete a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			confirmer := view.Confirmer(view.AlwaysConfirm)
			if !yes {
				confirmer = newPromptConfirmer(cmd.InOrStdin(), cmd.ErrOrStderr())
			}
			page, err := loadDetail(cmd.Context(), app.deps(confirmer), args[0])
			if err != nil {
				return err
			}
			defer page.Unmount()

			switch page.Delete(cmd.Context()) {
			case view.OutcomeDone:
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted conversation %s.\n", args[0])
			case view.OutcomeDeclined:
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
			default:
				return errors.New(page.Model().Error)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newSaveCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "save <conversation-id>",
		Short: "Ask the backend to save the transcript to conversation_<id>.txt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := loadDetail(cmd.Context(), app.deps(nil), args[0])
			if err != nil {
				return err
			}
			defer page.Unmount()

			if page.Save(cmd.Context()) != view.OutcomeDone {
				return errors.New(page.Model().Error)
			}
			fmt.Fprintln(cmd.OutOrStdout(), view.SaveSuccessMessage)
			return nil
		},
	}
}

func newAnalyzeCommand(app *App) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "analyze <conversation-id>",
		Short: "Profile the user in a conversation with the configured LLM",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Analyzer == nil {
				return errors.New("analysis is not configured: set llm.api_key")
			}
			if err := checkFormat(format); err != nil {
				return err
			}
			page, err := loadDetail(cmd.Context(), app.deps(nil), args[0])
			if err != nil {
				return err
			}
			defer page.Unmount()

			if page.Analyze(cmd.Context()) != view.OutcomeDone {
				return errors.New(page.Model().Error)
			}
			profile := page.Model().Profile
			if format != formatText {
				return encode(cmd.OutOrStdout(), format, profile)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Name: %s\nMood: %s\nEmotion trend: %s\n", profile.UserName, profile.Mood, profile.EmotionTrend)
			fmt.Fprintf(out, "Topics: %v\nTags: %v\n\n%s\n", profile.Topics, profile.ProfileTags, profile.PersonaSummary)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", formatText, "output format: text, json or yaml")
	return cmd
}

func newDiagnosticsCommand(app *App) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "diagnostics",
		Short: "Show recently recorded request failures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Journal == nil {
				return errors.New("diagnostics journal is not available")
			}
			entries, err := app.Journal.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printDiagnostics(cmd.OutOrStdout(), entries)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of entries to show")
	return cmd
}
