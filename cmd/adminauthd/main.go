// Command adminauthd serves the admin authentication endpoints.
//
// Configuration comes from the environment (and ./.env when present). See
// adminauth.Config for the ADMIN_* variables; the daemon adds:
//
//	ADMIN_LISTEN_ADDR     listen address (default :8080)
//	ADMIN_DATABASE_URL    postgres URL for the identity store; empty uses an
//	                      in-memory store
//	ADMIN_LOG_VERBOSITY   stdr verbosity (default 0)
//	ADMIN_TRUST_PROXY     honor X-Forwarded-For / X-Real-IP (default false);
//	                      enable only behind a proxy that overwrites them
//
// With no ADMIN_SESSION_REDIS_ADDR, development mode runs an in-process
// miniredis; other modes issue stateless tokens.
//
// Hash a password for ADMIN_PASSWORD_HASH or for seeding the store:
//
//	adminauthd -hash-password 'correct-horse'
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/adminauth"
	"github.com/MrEthical07/adminauth/password"
	"github.com/MrEthical07/adminauth/session"
	"github.com/MrEthical07/adminauth/stores/memory"
	"github.com/MrEthical07/adminauth/stores/postgres"
	"github.com/alicebob/miniredis/v2"
	"github.com/caarlos0/env/v11"
	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

type daemonConfig struct {
	ListenAddr   string `env:"ADMIN_LISTEN_ADDR" envDefault:":8080"`
	DatabaseURL  string `env:"ADMIN_DATABASE_URL"`
	LogVerbosity int    `env:"ADMIN_LOG_VERBOSITY" envDefault:"0"`
	TrustProxy   bool   `env:"ADMIN_TRUST_PROXY" envDefault:"false"`
}

func main() {
	hashPassword := flag.String("hash-password", "", "print an argon2id digest for the given password and exit")
	envFile := flag.String("env-file", "", "load this .env file instead of ./.env")
	flag.Parse()

	if *hashPassword != "" {
		if err := printDigest(*hashPassword); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if err := run(*envFile); err != nil {
		fmt.Fprintln(os.Stderr, "adminauthd:", err)
		os.Exit(1)
	}
}

func printDigest(plain string) error {
	hasher, err := password.NewMulti(password.DefaultArgon2Config())
	if err != nil {
		return err
	}
	digest, err := hasher.Hash(plain)
	if err != nil {
		return err
	}
	fmt.Println(digest)
	return nil
}

func run(envFile string) error {
	var files []string
	if envFile != "" {
		files = append(files, envFile)
	}
	cfg, err := adminauth.LoadConfig(files...)
	if err != nil {
		return err
	}
	var dcfg daemonConfig
	if err := env.Parse(&dcfg); err != nil {
		return err
	}

	stdr.SetVerbosity(dcfg.LogVerbosity)
	logger := stdr.New(log.New(os.Stderr, "", log.LstdFlags|log.LUTC)).WithName("adminauthd")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	identities, closeIdentities, err := openIdentityStore(ctx, cfg, dcfg, logger)
	if err != nil {
		return err
	}
	defer closeIdentities()

	sessions, closeSessions, err := openSessionStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSessions()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	builder := adminauth.New().
		WithConfig(cfg).
		WithIdentityStore(identities).
		WithLogger(logger.WithName("engine")).
		WithMetrics(reg)
	if sessions != nil {
		builder.WithSessionStore(sessions)
	}
	engine, err := builder.Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	report := engine.SecurityReport()
	for _, w := range report.PostureWarnings {
		logger.Info("security posture", "warning", w)
	}

	srv := &http.Server{
		Addr:              dcfg.ListenAddr,
		Handler:           newRouter(engine, reg, dcfg.TrustProxy),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", dcfg.ListenAddr, "mode", cfg.Mode(), "algorithm", engine.Algorithm())
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

func openIdentityStore(ctx context.Context, cfg adminauth.Config, dcfg daemonConfig, logger logr.Logger) (adminauth.IdentityStore, func(), error) {
	if dcfg.DatabaseURL == "" {
		logger.Info("no ADMIN_DATABASE_URL; using in-memory identity store")
		return memory.New(cfg.Lockout.Policy()), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, dcfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := postgres.New(pool, cfg.Lockout.Policy())
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ensure schema: %w", err)
	}
	return store, pool.Close, nil
}

func openSessionStore(ctx context.Context, cfg adminauth.Config, logger logr.Logger) (*session.Store, func(), error) {
	addr := cfg.Session.RedisAddr
	var mr *miniredis.Miniredis
	if addr == "" {
		if cfg.Mode() != adminauth.ModeDevelopment {
			logger.Info("no ADMIN_SESSION_REDIS_ADDR; tokens are stateless and cannot be revoked")
			return nil, func() {}, nil
		}
		var err error
		mr, err = miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start miniredis: %w", err)
		}
		addr = mr.Addr()
		logger.Info("using in-process miniredis for sessions", "addr", addr)
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	store := session.NewStore(client, cfg.Session.RedisPrefix)
	if _, err := store.Ping(ctx); err != nil {
		_ = client.Close()
		if mr != nil {
			mr.Close()
		}
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}

	return store, func() {
		_ = client.Close()
		if mr != nil {
			mr.Close()
		}
	}, nil
}
