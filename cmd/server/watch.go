package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/shehryarbajwa/deckard-mini/internal/catalog"
	"github.com/shehryarbajwa/deckard-mini/internal/config"
	"github.com/shehryarbajwa/deckard-mini/internal/logging"
	"github.com/shehryarbajwa/deckard-mini/internal/session"
	"github.com/shehryarbajwa/deckard-mini/internal/transport"
	"github.com/shehryarbajwa/deckard-mini/pkg/models"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Start one preview from the terminal and keep it alive",
		Long: `Upload an optional translation, spawn the preview of a screen and keep
its session alive until interrupted. The remote view URL is logged once
the process is ready.`,
		Example: `  deckard watch --module shell --screen main.ui --locale fr_FR
  deckard watch --module shell --file ./po/shell-de.po`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			opts := watchOptions{}
			opts.module, _ = cmd.Flags().GetString("module")
			opts.screen, _ = cmd.Flags().GetString("screen")
			opts.locale, _ = cmd.Flags().GetString("locale")
			opts.file, _ = cmd.Flags().GetString("file")
			opts.remoteFile, _ = cmd.Flags().GetString("remote-file")
			return watch(cfg, opts)
		},
	}

	cmd.Flags().String("module", "", "Module to preview (default: first in the catalog)")
	cmd.Flags().String("screen", "", "Screen to preview (default: first of the module)")
	cmd.Flags().String("locale", "POSIX", "Built-in locale code")
	cmd.Flags().String("file", "", "Local .po file to upload and preview")
	cmd.Flags().String("remote-file", "", "Name of a .po file the upstream fetches by itself")
	cmd.MarkFlagsMutuallyExclusive("file", "remote-file")
	return cmd
}

type watchOptions struct {
	module     string
	screen     string
	locale     string
	file       string
	remoteFile string
}

// watchObserver logs what the controller reports
type watchObserver struct {
	session.NopObserver
	logger  *logrus.Entry
	once    sync.Once
	aborted chan struct{}
}

func (o *watchObserver) SessionEstablished(token string) {
	o.logger.WithField("session", token).Info("Session established")
}

func (o *watchObserver) UsersCountChanged(count int) {
	o.logger.WithField("users", count).Debug("Keep-alive")
}

func (o *watchObserver) ViewReady(target string) {
	o.logger.WithField("url", target).Info("✓ Remote view ready")
}

func (o *watchObserver) Navigate(target string) {
	o.logger.WithField("url", target).Debug("View target")
}

func (o *watchObserver) Alert(message string) {
	o.logger.Warn(message)
}

func (o *watchObserver) Aborted() {
	o.once.Do(func() { close(o.aborted) })
}

func watch(cfg *config.Config, opts watchOptions) error {
	logger := logging.NewLogger("watch")

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return err
	}
	view, err := watchView(cat, opts)
	if err != nil {
		return err
	}

	client, err := transport.NewClient(cfg.UpstreamURL, cfg.RequestTimeout)
	if err != nil {
		return err
	}

	origin := cfg.ViewOrigin
	if origin == "" {
		origin = cfg.UpstreamURL
	}
	obs := &watchObserver{logger: logger, aborted: make(chan struct{})}
	registry := catalog.NewRegistry(cat.BaseLocales())
	ctrl, err := session.New(client, registry,
		session.WithObserver(obs),
		session.WithViewHost(obs),
		session.WithHeartbeatPeriod(cfg.HeartbeatPeriod),
		session.WithDelays(cfg.WarmDelay, cfg.ColdDelay),
		session.WithViewOrigin(origin),
	)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var source session.Source
	switch {
	case opts.file != "":
		content, err := os.ReadFile(opts.file)
		if err != nil {
			return fmt.Errorf("could not read translation: %w", err)
		}
		source = session.LocalFile{Name: filepath.Base(opts.file), Content: content}
	case opts.remoteFile != "":
		source = session.RemoteFile(opts.remoteFile)
	}
	if source != nil {
		if err := ctrl.Upload(ctx, view.Module, source); err != nil {
			return err
		}
		entries := ctrl.Locales(view.Module)
		view.Locale = entries[len(entries)-1]
	}

	logger.WithFields(logrus.Fields{
		"module": view.Module,
		"screen": view.Screen,
		"locale": view.Locale.Code,
	}).Info("Spawning preview")
	if err := ctrl.Spawn(ctx, view); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		logger.Info("Interrupted, ending session")
		return nil
	case <-obs.aborted:
		return errors.New("session ended by the upstream")
	}
}

// watchView resolves the flags against the catalog. The locale of an
// uploaded translation is filled in once the upload succeeded.
func watchView(cat *catalog.Catalog, opts watchOptions) (models.DesiredView, error) {
	var view models.DesiredView
	if len(cat.Modules) == 0 {
		return view, errors.New("catalog has no module")
	}

	module := cat.Modules[0]
	if opts.module != "" {
		m, ok := cat.Module(opts.module)
		if !ok {
			return view, fmt.Errorf("unknown module %q", opts.module)
		}
		module = m
	}
	view.Module = module.Name

	switch {
	case opts.screen != "":
		found := false
		for _, s := range module.Screens {
			found = found || s == opts.screen
		}
		if !found {
			return view, fmt.Errorf("module %s has no screen %q", module.Name, opts.screen)
		}
		view.Screen = opts.screen
	case len(module.Screens) > 0:
		view.Screen = module.Screens[0]
	default:
		return view, fmt.Errorf("module %s has no screen", module.Name)
	}

	for _, entry := range cat.BaseLocales() {
		if entry.Code == opts.locale {
			view.Locale = entry
			return view, nil
		}
	}
	return view, fmt.Errorf("unknown locale %q", opts.locale)
}
