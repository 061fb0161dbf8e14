// Package main runs the hosting dashboard server: the pool proxy, the
// aggregated admin dashboard and its live stream, plus health, metrics and
// status endpoints.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"miner-hosting/internal/auth"
	"miner-hosting/internal/cache"
	"miner-hosting/internal/config"
	"miner-hosting/internal/dashboard"
	"miner-hosting/internal/domain"
	"miner-hosting/internal/httpserver"
	"miner-hosting/internal/luxor"
	"miner-hosting/internal/proxy"
	"miner-hosting/internal/storage/memory"
	"miner-hosting/internal/storage/migrations"
	pgstore "miner-hosting/internal/storage/postgres"
	"miner-hosting/internal/subaccount"
)

const shutdownTimeout = 30 * time.Second

func main() {
	root := &cobra.Command{
		Use:          "server",
		Short:        "Mining hosting dashboard server",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the proxy and dashboard API",
		RunE:  runServe,
	}

	serveCmd.Flags().String("addr", ":8080", "HTTP listen address")
	serveCmd.Flags().String("loopback-url", "", "base URL the service uses to call its own /proxy (default derived from --addr)")
	serveCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	serveCmd.Flags().Bool("use-memory", false, "use in-memory storage instead of Postgres")
	serveCmd.Flags().String("redis-addr", "", "Redis address for the subaccount cache (empty uses an in-process cache)")
	serveCmd.Flags().String("redis-password", "", "Redis password")
	serveCmd.Flags().Int("redis-db", 0, "Redis database number")
	serveCmd.Flags().Duration("subaccount-cache-ttl", 5*time.Minute, "subaccount list cache TTL, 0 disables caching")
	serveCmd.Flags().String("luxor-base-url", luxor.DefaultBaseURL, "pool API base URL")
	serveCmd.Flags().String("luxor-api-key", "", "pool API key")
	serveCmd.Flags().String("currency", "BTC", "pool currency")
	serveCmd.Flags().Duration("call-timeout", 30*time.Second, "timeout for every outbound call")
	serveCmd.Flags().String("session-secret", "", "HMAC secret for session tokens")
	serveCmd.Flags().String("session-cookie", auth.DefaultCookieName, "session cookie name")
	serveCmd.Flags().String("revenue-since", "", "start of the mined revenue window (YYYY-MM-DD, default 30 days back)")
	serveCmd.Flags().Bool("charges-negative", true, "charges are stored as negative payment amounts")
	serveCmd.Flags().Duration("stream-interval", 30*time.Second, "dashboard stream push interval")

	root.AddCommand(serveCmd)

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply embedded Postgres migrations",
		RunE:  runMigrate,
	}

	migrateCmd.Flags().String("pg-dsn", "", "Postgres DSN")

	root.AddCommand(migrateCmd)

	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a session token for a user",
		RunE:  runToken,
	}

	tokenCmd.Flags().String("session-secret", "", "HMAC secret for session tokens")
	tokenCmd.Flags().Int64("user-id", 0, "user id to issue the token for")
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime")

	root.AddCommand(tokenCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (config.Config, *zap.Logger, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return config.Config{}, nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		return err
	}
	currency, err := luxor.ParseCurrency(cfg.Currency)
	if err != nil {
		return err
	}
	if cfg.LuxorAPIKey == "" {
		logger.Warn("pool API key is not configured; proxy calls will fail until it is set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, cleanup, err := createStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	subCache, closeCache, err := createCache(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	signer, err := auth.NewSigner(cfg.SessionSecret)
	if err != nil {
		return err
	}
	authn := auth.NewAuthenticator(signer, stores.Users, cfg.SessionCookie)

	pool := luxor.NewClient(cfg.LuxorBaseURL, cfg.LuxorAPIKey, luxor.WithTimeout(cfg.CallTimeout))
	loopback := proxy.NewLoopbackClient(cfg.LoopbackURL, authn.CookieName(), cfg.CallTimeout)
	resolver := subaccount.NewResolver(loopback, stores.Users, subCache, logger)

	service := dashboard.NewService(resolver, loopback, stores, dashboard.Config{
		Currency:        currency,
		CallTimeout:     cfg.CallTimeout,
		RevenueSince:    cfg.RevenueSince,
		ChargesNegative: cfg.ChargesNegative,
	}, logger)

	dashboardHandler := dashboard.NewHandler(authn, service, logger)
	server := httpserver.New(httpserver.Handlers{
		Proxy:     proxy.NewHandler(authn, pool, currency, logger),
		Dashboard: dashboardHandler,
		Stream:    dashboard.NewStreamHandler(dashboardHandler, dashboard.StreamConfig{Interval: cfg.StreamInterval}),
		Stats:     service,
	}, logger)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server started",
			zap.String("addr", cfg.Addr),
			zap.String("loopback", cfg.LoopbackURL),
			zap.String("currency", string(currency)),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutdown requested")
	server.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// createStores opens the configured backend. Memory mode seeds one admin
// (id 1) so a token from `server token --user-id 1` can reach the dashboard.
func createStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (dashboard.Stores, func(), error) {
	if cfg.UseMemory {
		miners := memory.NewMinerStore()
		users := memory.NewUserStore(miners)
		admin := &domain.User{Email: "admin@localhost", Role: domain.RoleSuperAdmin}
		if err := users.Insert(ctx, admin); err != nil {
			return dashboard.Stores{}, nil, fmt.Errorf("seed admin: %w", err)
		}
		logger.Info("using in-memory storage", zap.Int64("admin_user_id", admin.ID))

		return dashboard.Stores{
			Users:    users,
			Miners:   miners,
			Spaces:   memory.NewSpaceStore(),
			Payments: memory.NewPaymentStore(),
		}, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return dashboard.Stores{}, nil, err
	}

	stores := dashboard.Stores{
		Users:    pgstore.NewUserStore(pool),
		Miners:   pgstore.NewMinerStore(pool),
		Spaces:   pgstore.NewSpaceStore(pool),
		Payments: pgstore.NewPaymentStore(pool),
	}
	return stores, pool.Close, nil
}

// createCache selects Redis when an address is configured, otherwise an
// in-process TTL cache. A zero TTL disables caching.
func createCache(ctx context.Context, cfg config.Config, logger *zap.Logger) (cache.SubaccountCache, func(), error) {
	if cfg.SubaccountCacheTTL <= 0 {
		return nil, func() {}, nil
	}
	if cfg.RedisAddr == "" {
		return cache.NewMemory(cfg.SubaccountCacheTTL), func() {}, nil
	}

	rc, err := cache.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.SubaccountCacheTTL)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("subaccount cache on redis", zap.String("addr", cfg.RedisAddr))
	return rc, func() {
		if err := rc.Close(); err != nil {
			logger.Warn("close redis", zap.Error(err))
		}
	}, nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.PostgresDSN == "" {
		return errors.New("pg-dsn is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	applied, err := migrations.RunPostgres(ctx, pool)
	if err != nil {
		return err
	}
	logger.Info("migrations applied", zap.Strings("files", applied))
	return nil
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	userID, _ := cmd.Flags().GetInt64("user-id")
	ttl, _ := cmd.Flags().GetDuration("ttl")

	signer, err := auth.NewSigner(cfg.SessionSecret)
	if err != nil {
		return err
	}
	token, err := signer.Issue(userID, ttl)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
