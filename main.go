// Command altiora-site serves the Altiora Infotech site API: contact form
// intake, attachment upload signing, page content and the sitemap.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"altiora-site/pkg/api"
	"altiora-site/pkg/config"
	"altiora-site/pkg/contact"
	"altiora-site/pkg/db"
	"altiora-site/pkg/logging"
	"altiora-site/pkg/mailer"
	"altiora-site/pkg/storage"

	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		logging.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	if err := cfg.ValidateServer(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The server starts even when MongoDB is down: submissions are still
	// emailed and /health reports degraded until the driver reconnects.
	store := db.NewClient(cfg.Mongo.URI, cfg.Mongo.Database)
	pingCtx, cancel := context.WithTimeout(ctx, cfg.Mongo.ConnectTimeout)
	if err := store.Connect(pingCtx); err != nil {
		logging.Warn().Err(err).Msg("MongoDB unreachable at startup")
	}
	cancel()
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		_ = store.Close(closeCtx)
	}()

	if err := cfg.ValidateMail(); err != nil {
		logging.Warn().Err(err).Msg("contact emails disabled")
	}
	notifier := mailer.NewNotifier(mailer.NewSMTPSender(cfg.Mail), cfg.Mail, cfg.Site)

	deps := api.Deps{
		Contact: contact.NewService(contact.Config{
			Store:             store,
			Notifier:          notifier,
			AttachmentBaseURL: cfg.R2.PublicURL,
			EmailTimeout:      cfg.Mail.Timeout,
		}),
		Content: store,
	}
	if err := cfg.ValidateR2(); err != nil {
		logging.Warn().Err(err).Msg("attachment uploads disabled")
	} else if r2, err := storage.NewR2Client(cfg.R2); err != nil {
		logging.Warn().Err(err).Msg("attachment uploads disabled")
	} else {
		deps.Presigner = r2
	}

	srv := api.NewServer(api.Config{
		SiteURL:        cfg.Site.URL,
		AllowedOrigins: cfg.Origins(),
		TrustedProxies: cfg.Server.TrustedProxies,
		ContactLimit:   cfg.Server.ContactRateLimit,
		UploadLimit:    cfg.Server.UploadRateLimit,
		RateWindow:     cfg.Server.ContactRateWindow,
	}, deps)

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logging.Info().Str("addr", httpServer.Addr).Str("environment", cfg.Environment).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logging.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
