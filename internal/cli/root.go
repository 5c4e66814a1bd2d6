// Package cli wires the viewer's commands: the web server, the MCP server
// and terminal renditions of the list and detail pages.
package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/comigor/convoview/internal/analysis"
	"github.com/comigor/convoview/internal/apiclient"
	"github.com/comigor/convoview/internal/config"
	"github.com/comigor/convoview/internal/diagnostics"
	"github.com/comigor/convoview/internal/llm"
	"github.com/comigor/convoview/internal/logger"
	"github.com/comigor/convoview/internal/view"
)

// App is what every command runs against.
type App struct {
	Config   *config.Config
	Service  view.Service
	Journal  *diagnostics.Journal
	Analyzer view.Analyzer
	Clock    view.Clock
}

type rootFlags struct {
	configPath string
	logLevel   string
	apiURL     string
}

// NewRootCommand builds the convoview command tree.
func NewRootCommand(version string) *cobra.Command {
	return newRootCommand(&App{}, version)
}

// newRootCommand uses app as is when it already has a Service.
func newRootCommand(app *App, version string) *cobra.Command {
	flags := &rootFlags{}
	prebuilt := app.Service != nil

	root := &cobra.Command{
		Use:           "convoview",
		Short:         "Browse, save and delete conversation transcripts",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if prebuilt {
				return nil
			}
			return app.init(flags)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if prebuilt || app.Journal == nil {
				return nil
			}
			return app.Journal.Close()
		},
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default ./config.yaml or $CONFIG_PATH)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&flags.apiURL, "api-url", "", "conversations API base URL")

	root.AddCommand(
		newServeCommand(app),
		newListCommand(app),
		newShowCommand(app),
		newDeleteCommand(app),
		newSaveCommand(app),
		newAnalyzeCommand(app),
		newDiagnosticsCommand(app),
		newMCPCommand(app, version),
	)
	return root
}

func (a *App) init(flags *rootFlags) error {
	var (
		cfg *config.Config
		err error
	)
	if flags.configPath != "" {
		cfg, err = config.LoadFile(flags.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	if flags.apiURL != "" {
		cfg.API.BaseURL = flags.apiURL
	}
	logger.SetLevel(cfg.Log.Level)

	loc, err := cfg.View.Location()
	if err != nil {
		return err
	}

	a.Config = cfg
	a.Clock = view.Clock{Location: loc, Layout: cfg.View.TimeLayout}
	a.Service = apiclient.New(apiclient.Config{BaseURL: cfg.API.BaseURL, Timeout: cfg.API.Timeout})
	a.Journal = diagnostics.Open(cfg.Diagnostics.DBPath)
	if cfg.LLM.AnalysisEnabled() {
		a.Analyzer = analysis.New(llm.NewClient(cfg.LLM), cfg.LLM.Model)
	}
	logger.L.Debug("configuration loaded", "api", cfg.API.BaseURL, "analysis", cfg.LLM.AnalysisEnabled())
	return nil
}

// deps are the page collaborators for terminal commands.
func (a *App) deps(confirmer view.Confirmer) view.Deps {
	d := view.Deps{
		Service:   a.Service,
		Confirmer: confirmer,
		Navigator: &view.NavigationRecorder{},
		Clock:     a.Clock,
		Analyzer:  a.Analyzer,
	}
	if a.Journal != nil {
		d.Reporter = a.Journal
	}
	if a.Config != nil {
		d.SaveSuccessTTL = a.Config.View.SaveSuccessTTL
	}
	return d
}

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context, version string, args []string, stdout, stderr io.Writer) int {
	logger.SetOutput(stderr)
	root := NewRootCommand(version)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		root.PrintErrln("Error:", err)
		return 1
	}
	return 0
}
