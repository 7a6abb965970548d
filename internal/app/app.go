// Package app assembles the application: storage backend, migrations,
// telemetry sink, core service, router and HTTP server lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/httplog/v2"
	"golang.org/x/sync/errgroup"

	api "github.com/linkcut/linkcut/internal/api/http"
	"github.com/linkcut/linkcut/internal/config"
	"github.com/linkcut/linkcut/internal/database/memory"
	dbpostgres "github.com/linkcut/linkcut/internal/database/postgres"
	"github.com/linkcut/linkcut/internal/service"
	"github.com/linkcut/linkcut/internal/shortcode"
	"github.com/linkcut/linkcut/internal/telemetry"
	"github.com/linkcut/linkcut/pkg/postgres"
)

func newLogger(cfg *config.Config) *httplog.Logger {
	opts := httplog.Options{
		LogLevel: slog.LevelDebug,
		Concise:  true,
	}

	if cfg.Env == config.EnvProd {
		opts.JSON = true
		opts.LogLevel = slog.LevelInfo
		opts.Concise = false
	}

	return httplog.NewLogger("linkcut", opts)
}

func newRepository(ctx context.Context, cfg *config.Config) (service.URLRepository, func() error, error) {
	const op = "app.newRepository"

	if cfg.Storage == config.StorageMemory {
		return memory.NewURLRepository(), func() error { return nil }, nil
	}

	db, err := postgres.New(
		ctx,
		cfg.Postgres.DSN(),
		postgres.WithConnMaxIdleTime(cfg.Postgres.ConnMaxIdleTime),
		postgres.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
		postgres.WithMaxIdleConns(cfg.Postgres.MaxIdleConns),
		postgres.WithMaxOpenConns(cfg.Postgres.MaxOpenConns),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: failed to connect to database: %w", op, err)
	}

	if err := postgres.RunMigrations("file://migrations", cfg.Postgres.DSN()); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("%s: failed to run migrations: %w", op, err)
	}

	return dbpostgres.NewURLRepository(db), db.Close, nil
}

func Run(ctx context.Context, cfg *config.Config) error {
	const op = "app.Run"

	logger := newLogger(cfg)

	repo, closeRepo, err := newRepository(ctx, cfg)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer closeRepo()

	var sink telemetry.Sink = telemetry.Nop{}
	if cfg.Telemetry.Endpoint != "" {
		httpSink := telemetry.NewHTTPSink(cfg.Telemetry.Endpoint, cfg.Telemetry.BufferSize, logger.Logger)
		defer httpSink.Close()
		sink = httpSink
	}

	gen := shortcode.NewNanoidGenerator(cfg.ShortCodeLength)
	urlSvc := service.NewURLService(repo, gen, sink)

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        api.NewRouter(logger, urlSvc),
		ReadTimeout:    cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting server", slog.String("addr", server.Addr), slog.String("env", cfg.Env))

		var err error

		switch cfg.Env {
		case config.EnvProd:
			err = server.ListenAndServeTLS(cfg.HTTPServer.CertFile, cfg.HTTPServer.KeyFile)
		default:
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: server error occurred: %w", op, err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		if err := server.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		return nil
	})

	return g.Wait()
}
