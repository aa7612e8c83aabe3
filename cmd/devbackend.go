/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/sorynturda/link-sharing/internal/backendtest"
	applog "github.com/sorynturda/link-sharing/internal/log"
	"github.com/sorynturda/link-sharing/types"
	"github.com/spf13/cobra"
)

// devBackendCmd represents the dev-backend command
var devBackendCmd = &cobra.Command{
	Use:   "dev-backend",
	Short: "Run an in-memory backend for local development",
	Long: `Runs an in-memory implementation of the file-sharing REST API. Nothing
is persisted; everything is lost when the process exits.

	linkshare dev-backend --port 8080 --admin admin --admin-password admin
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, _ := cmd.Flags().GetString("env")
		level, _ := cmd.Flags().GetString("log-level")
		logger := applog.New(cmd.ErrOrStderr(), env, level)

		host, _ := cmd.Flags().GetString("host")
		port, _ := cmd.Flags().GetInt("port")
		secret, _ := cmd.Flags().GetString("secret")
		ttl, _ := cmd.Flags().GetDuration("token-ttl")
		addr := net.JoinHostPort(host, strconv.Itoa(port))

		opts := []backendtest.Option{
			backendtest.WithPublicURL("http://" + addr),
			backendtest.WithTokenTTL(ttl),
		}
		if secret != "" {
			opts = append(opts, backendtest.WithSecret(secret))
		}
		backend := backendtest.New(opts...)

		if admin, _ := cmd.Flags().GetString("admin"); admin != "" {
			password, _ := cmd.Flags().GetString("admin-password")
			if password == "" {
				return errors.New("--admin-password is required with --admin")
			}
			if _, err := backend.CreateUser(admin, admin+"@localhost", password, types.RoleAdmin); err != nil {
				return fmt.Errorf("seed admin: %w", err)
			}
		}

		httpServer := &http.Server{
			Addr:              addr,
			Handler:           backend,
			ReadHeaderTimeout: 15 * time.Second,
		}
		errc := make(chan error, 1)
		go func() { errc <- httpServer.ListenAndServe() }()
		logger.Info().Str("addr", addr).Msg("development backend listening")
		fmt.Fprintf(cmd.OutOrStdout(), "Development backend on http://%s\n", addr)

		select {
		case err := <-errc:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-cmd.Context().Done():
		}
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(ctx)
	},
}

func init() {
	rootCmd.AddCommand(devBackendCmd)

	devBackendCmd.Flags().String("host", "127.0.0.1", "listen host")
	devBackendCmd.Flags().Int("port", 8080, "listen port")
	devBackendCmd.Flags().String("secret", "", "HMAC key for issued tokens")
	devBackendCmd.Flags().Duration("token-ttl", 24*time.Hour, "lifetime of issued tokens")
	devBackendCmd.Flags().String("admin", "", "seed an admin account with this username")
	devBackendCmd.Flags().String("admin-password", "", "password of the seeded admin")
}
