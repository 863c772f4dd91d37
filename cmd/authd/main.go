// Command authd runs the blog platform's authentication service: local
// signup/login, JWT access/refresh lifecycle backed by Redis sessions, and
// federated login via Google.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	authd "github.com/blogforge/authd"
	"github.com/blogforge/authd/googleauth"
	"github.com/blogforge/authd/httpapi"
	"github.com/blogforge/authd/middleware"
	"github.com/blogforge/authd/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("authd exited", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := authd.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer rdb.Close()

	users, cleanup, err := newUserStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	svc, err := authd.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserStore(users).
		WithProfileFetcher(googleauth.NewClient(googleauth.WithTimeout(cfg.ProviderTimeout))).
		WithLogger(logger).
		Build()
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	httpapi.NewHandler(svc, logger).Register(mux)

	// Role-gated example surface; the blog backend mounts its admin routes
	// the same way.
	mux.Handle("GET /admin/ping", middleware.RequireRole("ROLE_ADMIN")(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}),
	))

	// The federated callback authenticates with a provider token, not a
	// local JWT, so it bypasses the filter.
	handler := middleware.Authenticate(svc, "/auth/oauth-success")(mux)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("authd listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newUserStore picks Postgres when DATABASE_URL is set, the in-memory
// store otherwise. The in-memory store is for local development only.
func newUserStore(ctx context.Context, cfg authd.Config, logger *slog.Logger) (authd.UserStore, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set; using in-memory user store")
		return store.NewMemory(), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	return store.NewPostgres(pool), pool.Close, nil
}
