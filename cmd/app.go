/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sorynturda/link-sharing/config"
	"github.com/sorynturda/link-sharing/internal/api"
	"github.com/sorynturda/link-sharing/internal/clipboard"
	"github.com/sorynturda/link-sharing/internal/guard"
	applog "github.com/sorynturda/link-sharing/internal/log"
	"github.com/sorynturda/link-sharing/internal/mq"
	"github.com/sorynturda/link-sharing/internal/session"
	"github.com/sorynturda/link-sharing/internal/storage"
	"github.com/sorynturda/link-sharing/internal/views"
	"github.com/sorynturda/link-sharing/types"
	"github.com/spf13/cobra"
)

var (
	errSessionExpired = errors.New("session expired, please log in")
	errAdminRequired  = errors.New("admin access required")
)

// app holds what every command needs: configuration, the token holder and
// an API client reading from it.
type app struct {
	cfg    config.Config
	logger zerolog.Logger
	holder *session.Holder
	client *api.Client
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.LoadConfig(cmd.Flags())
	if err != nil {
		return nil, err
	}
	logger := applog.New(cmd.ErrOrStderr(), cfg.Environment, cfg.LogLevel)

	holder := session.NewHolder(session.NewFileStore(cfg.Session.TokenFile))
	client := api.New(apiOptions(cfg, logger), holder)
	return &app{cfg: cfg, logger: logger, holder: holder, client: client}, nil
}

func apiOptions(cfg config.Config, logger zerolog.Logger) api.Options {
	return api.Options{
		BaseURL:      cfg.API.BaseURL,
		LoginPath:    cfg.API.LoginPath,
		RegisterPath: cfg.API.RegisterPath,
		VerifyPath:   cfg.API.VerifyPath,
		Timeout:      cfg.API.Timeout,
		Logger:       logger,
	}
}

// authenticate runs the route guard. Protected commands call it first.
func (a *app) authenticate(cmd *cobra.Command) (types.Claims, error) {
	var verifier guard.Verifier
	if a.cfg.API.VerifySession {
		verifier = a.client
	}
	g := guard.New(a.holder, verifier,
		guard.WithLogger(a.logger),
		guard.OnVerifying(func() { fmt.Fprintln(cmd.ErrOrStderr(), "Verifying session...") }),
	)
	result := g.Check(cmd.Context())
	if result.State != guard.Authenticated {
		a.logger.Debug().Str("reason", result.Reason).Msg("not authenticated")
		return types.Claims{}, errSessionExpired
	}
	return result.Claims, nil
}

func (a *app) authenticateAdmin(cmd *cobra.Command) (types.Claims, error) {
	claims, err := a.authenticate(cmd)
	if err != nil {
		return claims, err
	}
	if claims.Role != types.RoleAdmin {
		return claims, errAdminRequired
	}
	return claims, nil
}

// activity connects to the configured broker. The returned func closes it.
func (a *app) activity(ctx context.Context) (*mq.Activity, func()) {
	queue, err := mq.Open(ctx, a.cfg.MQ)
	if err != nil {
		a.logger.Warn().Err(err).Msg("activity events disabled")
		queue = mq.Discard()
	}
	return mq.NewActivity(queue, a.cfg.MQ.Channel), func() {
		if err := queue.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("close message queue")
		}
	}
}

// viewOptions wires clipboard, share link fallback and activity events.
func (a *app) viewOptions(cmd *cobra.Command, claims types.Claims, events views.Publisher) views.Options {
	noQR, _ := cmd.Flags().GetBool("no-qr")
	printer := clipboard.Printer{W: cmd.OutOrStdout(), NoCode: noQR}
	return views.Options{
		Copier: clipboard.System{},
		Reveal: printer.Show,
		Events: events,
		Actor:  claims.Subject,
		Logger: a.logger,
	}
}

// sink returns where downloads go: dir when given, the configured storage
// otherwise.
func (a *app) sink(ctx context.Context, dir string) (*storage.Sink, error) {
	cfg := a.cfg.Storage
	if dir != "" {
		cfg = config.StorageConfig{Backend: "local", Dir: dir}
	}
	sink, err := storage.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if err := sink.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("prepare storage: %w", err)
	}
	return sink, nil
}

// result turns a view's alert into command output.
func result(cmd *cobra.Command, alert views.Alert, err error) error {
	if err != nil {
		if alert.IsError() {
			return fmt.Errorf("%s: %w", alert.Message, err)
		}
		return err
	}
	if alert.Message != "" {
		fmt.Fprintln(cmd.OutOrStdout(), alert.Message)
	}
	return nil
}
