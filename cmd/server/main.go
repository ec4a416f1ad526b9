// Cinerec - Movie Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinerec

package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/tomtom215/cinerec/internal/api"
	"github.com/tomtom215/cinerec/internal/config"
	"github.com/tomtom215/cinerec/internal/events"
	"github.com/tomtom215/cinerec/internal/logging"
	"github.com/tomtom215/cinerec/internal/recommend"
	"github.com/tomtom215/cinerec/internal/recommend/catalog"
	"github.com/tomtom215/cinerec/internal/recommend/profile"
	"github.com/tomtom215/cinerec/internal/recommend/ratings"
	"github.com/tomtom215/cinerec/internal/recommend/storage"
	"github.com/tomtom215/cinerec/internal/supervisor"
	"github.com/tomtom215/cinerec/internal/supervisor/services"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred closes execute before
// os.Exit.
//
//nolint:gocyclo // sequential setup steps
func run() int {
	cfg, err := config.Load()
	if err != nil {
		logging.Error().Err(err).Msg("Failed to load configuration")
		return 1
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("data_dir", cfg.Data.Dir).
		Str("model_dir", cfg.Model.Dir).
		Int("latent_dim", cfg.Model.LatentDim).
		Int("neighbors", cfg.Model.Neighbors).
		Int("retrain_threshold", cfg.Feedback.RetrainThreshold).
		Bool("async_retrain", cfg.Feedback.AsyncRetrain).
		Msg("Starting cinerec")

	store, err := recommend.OpenStore(ratings.Config{
		RatingsPath:  cfg.Data.RatingsPath(),
		FeedbackPath: cfg.Data.FeedbackPath(),
		UsersPath:    cfg.Data.UsersPath(),
	}, logging.WithComponent("ratings"))
	if err != nil {
		logging.Error().Err(err).Msg("Failed to open rating store")
		return 1
	}

	titles := catalog.Empty()
	if path := cfg.Data.ItemsPath(); path != "" {
		titles, err = catalog.Load(path, logging.WithComponent("catalog"))
		if err != nil {
			// Titles are cosmetic; recommendations still work without them.
			logging.Warn().Err(err).Str("path", path).Msg("Item catalog unavailable, titles disabled")
			titles = catalog.Empty()
		}
	}

	snapshots, err := storage.Open(storage.Options{
		Dir:            cfg.Model.Dir,
		InMemory:       cfg.Model.InMemory,
		RetainVersions: cfg.Model.RetainVersions,
	}, logging.WithComponent("storage"))
	if err != nil {
		logging.Error().Err(err).Msg("Failed to open snapshot store")
		return 1
	}
	defer func() {
		if err := snapshots.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing snapshot store")
		}
	}()

	builder, err := profile.NewBuilder(profile.Config{
		LatentDim: cfg.Model.LatentDim,
		Neighbors: cfg.Model.Neighbors,
		Workers:   cfg.Model.Workers,
	}, logging.WithComponent("profile"))
	if err != nil {
		logging.Error().Err(err).Msg("Invalid model configuration")
		return 1
	}

	slogger := logging.NewSlogLogger()
	bus := events.NewBus(events.DefaultBusConfig(), watermill.NewSlogLogger(slogger))

	engine, err := recommend.NewEngine(&recommend.Config{
		DefaultTopN:      cfg.Recommend.DefaultTopN,
		MaxTopN:          cfg.Recommend.MaxTopN,
		CacheTTL:         cfg.Recommend.CacheTTL,
		RetrainThreshold: cfg.Feedback.RetrainThreshold,
		AsyncRetrain:     cfg.Feedback.AsyncRetrain,
		MinRating:        cfg.Feedback.MinRating,
		MaxRating:        cfg.Feedback.MaxRating,
	}, recommend.Deps{
		Store:     store,
		Builder:   builder,
		Snapshots: snapshots,
		Titles:    titles,
		Publisher: bus,
	}, logging.WithComponent("recommend"))
	if err != nil {
		logging.Error().Err(err).Msg("Failed to create recommendation engine")
		return 1
	}
	defer engine.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch err := engine.LoadLatest(ctx); {
	case err == nil:
	case errors.Is(err, recommend.ErrNoSnapshot):
		logging.Info().Bool("train_on_startup", cfg.Model.TrainOnStartup).Msg("No stored model snapshot")
	default:
		logging.Error().Err(err).Msg("Failed to load model snapshot")
		return 1
	}

	tree, err := supervisor.NewSupervisorTree(slogger, supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Error().Err(err).Msg("Failed to create supervisor tree")
		return 1
	}

	tree.AddModelService(services.NewEventBusService(bus, logging.Logger()))
	tree.AddModelService(services.NewRetrainService(engine, bus, services.RetrainServiceConfig{
		TrainOnStartup:  cfg.Model.TrainOnStartup,
		Interval:        cfg.Retrain.Interval,
		MinGap:          cfg.Retrain.MinGap,
		BreakerFailures: cfg.Retrain.BreakerFailures,
		BreakerTimeout:  cfg.Retrain.BreakerTimeout,
	}, logging.Logger()))

	handler := api.NewHandler(engine, titles, cfg.Server.Timeout)
	chiMiddleware := api.NewChiMiddlewareFromSecurity(
		cfg.Security.CORSOrigins,
		cfg.Security.RateLimitReqs,
		cfg.Security.RateLimitWindow,
		cfg.Security.RateLimitDisabled,
	)
	router := api.NewRouter(handler, chiMiddleware)

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: cfg.Server.Timeout,
		ReadTimeout:       cfg.Server.Timeout,
		// Inline retrains run inside the feedback request.
		WriteTimeout: 0,
		IdleTimeout:  2 * cfg.Server.Timeout,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	exitCode := 0
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
		exitCode = 1
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("cinerec stopped")
	return exitCode
}
