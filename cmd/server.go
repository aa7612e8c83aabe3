/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/sorynturda/link-sharing/internal/api"
	"github.com/sorynturda/link-sharing/internal/web"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

// serverCmd represents the serve command
var serverCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"server"},
	Short:   "Starts the linkshare web front end",
	Long: `Starts the browser front end for the configured backend. Usage:

	linkshare serve --port 3000
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		cfg := a.cfg
		if cmd.Flags().Changed("port") {
			cfg.Web.Port, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("host") {
			cfg.Web.Host, _ = cmd.Flags().GetString("host")
		}

		events, closeEvents := a.activity(cmd.Context())
		defer closeEvents()

		srv, err := web.New(web.Options{
			Config: cfg,
			Client: api.New(apiOptions(cfg, a.logger), nil),
			Events: events,
			Logger: a.logger,
		})
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}

		errc := make(chan error, 1)
		go func() { errc <- srv.Start() }()
		a.logger.Info().Str("addr", srv.Addr()).Str("backend", cfg.API.BaseURL).Msg("web front end listening")
		fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", srv.Addr())

		select {
		case err := <-errc:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		case <-cmd.Context().Done():
		}

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().Int("port", 0, "listen port (default 3000)")
	serverCmd.Flags().String("host", "", "listen host (default 127.0.0.1)")
}
