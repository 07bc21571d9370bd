package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/shehryarbajwa/deckard-mini/internal/api"
	"github.com/shehryarbajwa/deckard-mini/internal/catalog"
	"github.com/shehryarbajwa/deckard-mini/internal/config"
	"github.com/shehryarbajwa/deckard-mini/internal/console"
	"github.com/shehryarbajwa/deckard-mini/internal/logging"
	"github.com/shehryarbajwa/deckard-mini/internal/proxy"
	"github.com/shehryarbajwa/deckard-mini/internal/ratelimit"
	"github.com/shehryarbajwa/deckard-mini/internal/transport"
)

const limiterIdle = time.Hour

func newServeCmd() *cobra.Command {
	defaults := config.Default()
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web console",
		Long: `Serve the console API, the tab event streams and the remote views.
Every tab keeps its own upstream session alive while it is open.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}

	cmd.Flags().String("listen", defaults.Listen, "Address the console listens on")
	cmd.Flags().String("view-origin", defaults.ViewOrigin, "Origin of remote views when not the console itself")
	cmd.Flags().Int("max-tabs", defaults.MaxTabs, "Maximum number of open tabs")
	cmd.Flags().Int64("max-upload-bytes", defaults.MaxUploadBytes, "Largest translation file accepted")
	cmd.Flags().Int("rate-limit-per-hour", defaults.RatePerHour, "Operator actions allowed per client and hour")
	cmd.Flags().StringSlice("trusted-proxies", defaults.TrustedProxies, "Proxy IPs whose X-Forwarded-For is believed")
	return cmd
}

func serve(cfg *config.Config) error {
	logger := logging.NewLogger("server")
	logger.Info("Starting Deckard console...")

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return err
	}
	logger.WithField("modules", len(cat.Modules)).Info("✓ Catalog loaded")

	client, err := transport.NewClient(cfg.UpstreamURL, cfg.RequestTimeout)
	if err != nil {
		return err
	}
	logger.WithField("upstream", client.Endpoint()).Info("✓ Upstream client initialized")

	tabs := console.NewManager(console.Options{
		Catalog:         cat,
		Transport:       client,
		HeartbeatPeriod: cfg.HeartbeatPeriod,
		WarmDelay:       cfg.WarmDelay,
		ColdDelay:       cfg.ColdDelay,
		Placeholder:     cfg.Placeholder,
		ViewOrigin:      cfg.ViewOrigin,
		AttachTimeout:   cfg.AttachTimeout,
		MaxTabs:         int64(cfg.MaxTabs),
	})
	logger.Info("✓ Tab manager initialized")

	watcher, err := catalog.NewWatcher(cfg.CatalogPath, 0, tabs.SetCatalog)
	if err != nil {
		return err
	}

	proxyServer, err := proxy.NewServer(cfg.UpstreamURL)
	if err != nil {
		return err
	}
	logger.Info("✓ Remote view proxy initialized")

	rateLimiter := ratelimit.NewLimiter(cfg.RatePerHour, cfg.RateBurst)
	logger.WithFields(logrus.Fields{
		"perHour": cfg.RatePerHour,
		"burst":   cfg.RateBurst,
	}).Info("✓ Rate limiter initialized")

	handler := api.NewHandler(tabs, cfg.MaxUploadBytes)
	handler.TrustProxies(cfg.TrustedProxies...)
	router := handler.SetupRoutes(api.NewCatalogHandler(tabs), proxyServer, rateLimiter)

	// No write timeout: event streams and remote views stay open
	srv := &http.Server{
		Addr:        cfg.Listen,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("🚀 Console listening on %s", cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		watcher.Start(gctx)
		return nil
	})
	g.Go(func() error {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := rateLimiter.Prune(limiterIdle); n > 0 {
					logger.WithField("clients", n).Debug("Pruned idle rate limiters")
				}
			case <-gctx.Done():
				return nil
			}
		}
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("⏳ Shutting down server gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		tabs.Shutdown()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("✅ Server stopped cleanly")
	return nil
}
