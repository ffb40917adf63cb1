package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/skirmish-lobby/internal/config"
	"github.com/DoyleJ11/skirmish-lobby/internal/httpapi"
	"github.com/DoyleJ11/skirmish-lobby/internal/hub"
	"github.com/DoyleJ11/skirmish-lobby/internal/logging"
	"github.com/DoyleJ11/skirmish-lobby/internal/maps"
	"github.com/DoyleJ11/skirmish-lobby/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("lobby host stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(cfg.Server.MapsDir, 0o755); err != nil {
		return err
	}
	catalog, err := maps.Load(cfg.Server.MapsDir)
	if err != nil {
		return err
	}
	logger.Info("maps loaded", zap.String("dir", cfg.Server.MapsDir), zap.Int("selectable", len(catalog.Choices())))

	hubCfg := hub.Config{Maps: catalog, Logger: logger}
	deps := httpapi.Deps{
		Maps: catalog,
		Defaults: httpapi.Defaults{
			ServerName: cfg.Server.ServerName,
			Map:        cfg.Server.DefaultMap,
			Spectators: cfg.Server.Spectators,
		},
		Logger: logger,
	}
	if cfg.Server.DatabaseURL != "" {
		st, err := store.Open(cfg.Server.DatabaseURL)
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, st.Close()) }()
		hubCfg.Recorder = st
		deps.Store = st
		logger.Info("recording lobby history")
	}

	g, gctx := errgroup.WithContext(ctx)
	deps.Hub = hub.NewHub(gctx, hubCfg)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           httpapi.SetupRoutes(deps),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error {
		logger.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		// The hub stops its lobbies when ctx is cancelled.
		logger.Info("shutting down")

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
