package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/comigor/convoview/internal/logger"
	"github.com/comigor/convoview/internal/mcpserver"
	"github.com/comigor/convoview/internal/web"
)

func newServeCommand(app *App) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web viewer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = app.Config.Server.Addr()
			}
			srv, err := web.New(web.Options{
				Service:        app.Service,
				Analyzer:       app.Analyzer,
				Reporter:       app.Journal,
				Clock:          app.Clock,
				SaveSuccessTTL: app.Config.View.SaveSuccessTTL,
				RenderWait:     app.Config.View.RenderWait,
				MaxPages:       app.Config.View.MaxPages,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return srv.ListenAndServe(ctx, addr)
			})
			g.Go(func() error {
				checkBackend(ctx, app)
				return nil
			})
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.host:server.port)")
	return cmd
}

// checkBackend warns early when the conversations API cannot be reached.
// The server keeps running; pages show their failure message meanwhile.
func checkBackend(ctx context.Context, app *App) {
	items, err := app.Service.List(ctx)
	if err != nil {
		logger.L.Warn("conversations API not reachable", "base_url", app.Config.API.BaseURL, "error", err)
		return
	}
	logger.L.Info("conversations API reachable", "base_url", app.Config.API.BaseURL, "conversations", len(items))
}

func newMCPCommand(app *App, version string) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the conversation tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return mcpserver.ServeStdio(app.Service, version)
		},
	}
}
