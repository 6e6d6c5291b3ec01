package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/AmaanSayyad/Arbnomo/internal/bookie"
	"github.com/AmaanSayyad/Arbnomo/internal/httpapi"
	"github.com/AmaanSayyad/Arbnomo/internal/monitoring"
	"github.com/AmaanSayyad/Arbnomo/internal/state"
	"github.com/AmaanSayyad/Arbnomo/internal/state/memstate"
	"github.com/AmaanSayyad/Arbnomo/internal/state/redisstate"
	betstore "github.com/AmaanSayyad/Arbnomo/internal/store"
	"github.com/AmaanSayyad/Arbnomo/internal/store/gormstore"
	"github.com/AmaanSayyad/Arbnomo/internal/store/pgstore"
	"github.com/AmaanSayyad/Arbnomo/internal/verify"
	"github.com/AmaanSayyad/Arbnomo/internal/walletauth"
	"github.com/AmaanSayyad/Arbnomo/pkg/betflow"
)

const (
	flagListenAddr        = "listen-addr"
	flagDatabaseURL       = "database-url"
	flagDatabaseEngine    = "database-engine"
	flagRedisAddr         = "redis-addr"
	flagVerifyURL         = "verify-url"
	flagVerifyTimeout     = "verify-timeout"
	flagAllowedOrigins    = "allowed-origins"
	flagSessionSigningKey = "session-signing-key"
	flagSessionIssuer     = "session-issuer"
	flagSessionCookie     = "session-cookie-name"
	flagSessionTTL        = "session-ttl"
	flagNetworkID         = "network-id"
	flagAdminToken        = "admin-token"
	envPrefix             = "ARBNOMO"

	defaultListenAddr    = ":9090"
	defaultDatabaseURL   = "sqlite:///tmp/arbnomo.db"
	defaultVerifyTimeout = 5 * time.Second
	defaultSessionIssuer = "arbnomo"
	defaultSessionCookie = "arbnomo_session"
	defaultSessionTTL    = 12 * time.Hour
	defaultNetworkID     = uint64(betflow.NetworkArbitrumOne)

	engineAuto = "auto"
	engineGorm = "gorm"
	enginePgx  = "pgx"
)

type runtimeConfig struct {
	ListenAddr        string
	DatabaseURL       string
	DatabaseEngine    string
	RedisAddr         string
	VerifyURL         string
	VerifyTimeout     time.Duration
	AllowedOrigins    []string
	SessionSigningKey string
	SessionIssuer     string
	SessionCookieName string
	SessionTTL        time.Duration
	NetworkChainID    uint64
	AdminToken        string
}

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "arbnomod: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := &runtimeConfig{}
	cmd := &cobra.Command{
		Use:           "arbnomod",
		Short:         "Betting admission daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}

	cmd.Flags().String(flagListenAddr, defaultListenAddr, "HTTP listen address")
	cmd.Flags().String(flagDatabaseURL, defaultDatabaseURL, "database connection string (sqlite path or postgres URL)")
	cmd.Flags().String(flagDatabaseEngine, engineAuto, "postgres engine: auto, gorm, or pgx")
	cmd.Flags().String(flagRedisAddr, "", "redis address for the shared live-round record (empty = in-process)")
	cmd.Flags().String(flagVerifyURL, "", "access-code verification endpoint URL (required)")
	cmd.Flags().Duration(flagVerifyTimeout, defaultVerifyTimeout, "verification round-trip timeout")
	cmd.Flags().String(flagAllowedOrigins, "", "comma-separated list of allowed CORS origins")
	cmd.Flags().String(flagSessionSigningKey, "", "session cookie signing key (required)")
	cmd.Flags().String(flagSessionIssuer, defaultSessionIssuer, "session token issuer")
	cmd.Flags().String(flagSessionCookie, defaultSessionCookie, "session cookie name")
	cmd.Flags().Duration(flagSessionTTL, defaultSessionTTL, "session lifetime")
	cmd.Flags().Uint64(flagNetworkID, defaultNetworkID, "chain id of the betting network")
	cmd.Flags().String(flagAdminToken, "", "bearer token for admin routes (required)")

	return cmd
}

func loadConfig(cmd *cobra.Command, cfg *runtimeConfig) error {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	flagNames := []string{
		flagListenAddr, flagDatabaseURL, flagDatabaseEngine, flagRedisAddr,
		flagVerifyURL, flagVerifyTimeout, flagAllowedOrigins,
		flagSessionSigningKey, flagSessionIssuer, flagSessionCookie,
		flagSessionTTL, flagNetworkID, flagAdminToken,
	}
	for _, flagName := range flagNames {
		if err := v.BindPFlag(flagName, cmd.Flags().Lookup(flagName)); err != nil {
			return err
		}
	}

	cfg.ListenAddr = strings.TrimSpace(v.GetString(flagListenAddr))
	cfg.DatabaseURL = strings.TrimSpace(v.GetString(flagDatabaseURL))
	cfg.DatabaseEngine = strings.TrimSpace(v.GetString(flagDatabaseEngine))
	cfg.RedisAddr = strings.TrimSpace(v.GetString(flagRedisAddr))
	cfg.VerifyURL = strings.TrimSpace(v.GetString(flagVerifyURL))
	cfg.VerifyTimeout = v.GetDuration(flagVerifyTimeout)
	cfg.AllowedOrigins = httpapi.ParseAllowedOrigins(v.GetString(flagAllowedOrigins))
	cfg.SessionSigningKey = v.GetString(flagSessionSigningKey)
	cfg.SessionIssuer = strings.TrimSpace(v.GetString(flagSessionIssuer))
	cfg.SessionCookieName = strings.TrimSpace(v.GetString(flagSessionCookie))
	cfg.SessionTTL = v.GetDuration(flagSessionTTL)
	cfg.NetworkChainID = v.GetUint64(flagNetworkID)
	cfg.AdminToken = strings.TrimSpace(v.GetString(flagAdminToken))

	if cfg.DatabaseURL == "" {
		return fmt.Errorf("database url is required")
	}
	switch cfg.DatabaseEngine {
	case engineAuto, engineGorm, enginePgx:
	default:
		return fmt.Errorf("unsupported database engine %q", cfg.DatabaseEngine)
	}
	if cfg.VerifyURL == "" {
		return fmt.Errorf("%s is required", flagVerifyURL)
	}
	if cfg.SessionSigningKey == "" {
		return fmt.Errorf("%s is required", flagSessionSigningKey)
	}
	if cfg.AdminToken == "" {
		return fmt.Errorf("%s is required", flagAdminToken)
	}
	return nil
}

func runServer(ctx context.Context, cfg *runtimeConfig) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	monitoring.Init()

	persistence, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("store open: %w", err)
	}
	defer func() { _ = cleanup() }()

	seedCells, err := betstore.DefaultTargetCells()
	if err != nil {
		return fmt.Errorf("catalog seed: %w", err)
	}
	if err := persistence.SeedCatalog(ctx, seedCells); err != nil {
		return fmt.Errorf("catalog seed: %w", err)
	}

	roundState, err := openRoundState(cfg)
	if err != nil {
		return fmt.Errorf("round state init: %w", err)
	}

	verifyClient, err := verify.NewClient(cfg.VerifyURL,
		verify.WithHTTPClient(&http.Client{Timeout: cfg.VerifyTimeout}),
		verify.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("verify client init: %w", err)
	}

	clock := func() int64 { return time.Now().UTC().Unix() }

	directory, err := betstore.NewDirectory(persistence)
	if err != nil {
		return fmt.Errorf("directory init: %w", err)
	}
	redeemer, err := betstore.NewRedeemingVerifier(verifyClient, persistence, clock)
	if err != nil {
		return fmt.Errorf("verifier init: %w", err)
	}
	books, err := bookie.NewBookie(persistence, roundState, clock, bookie.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("bookie init: %w", err)
	}
	recorder, err := monitoring.NewRecorder(logger)
	if err != nil {
		return fmt.Errorf("recorder init: %w", err)
	}
	flow, err := betflow.NewService(
		directory, roundState, directory, redeemer, books,
		betflow.Network(cfg.NetworkChainID), clock,
		betflow.WithDecisionLogger(recorder),
	)
	if err != nil {
		return fmt.Errorf("flow init: %w", err)
	}
	sessions, err := walletauth.New(walletauth.Config{
		SigningKey: []byte(cfg.SessionSigningKey),
		Issuer:     cfg.SessionIssuer,
		CookieName: cfg.SessionCookieName,
		TTL:        cfg.SessionTTL,
	}, time.Now)
	if err != nil {
		return fmt.Errorf("session manager init: %w", err)
	}

	server, err := httpapi.New(httpapi.Config{
		ListenAddr:     cfg.ListenAddr,
		AllowedOrigins: cfg.AllowedOrigins,
		AdminToken:     cfg.AdminToken,
		NetworkChainID: cfg.NetworkChainID,
	}, flow, sessions, persistence, books, logger)
	if err != nil {
		return fmt.Errorf("server init: %w", err)
	}
	return server.Run(ctx)
}

func openRoundState(cfg *runtimeConfig) (state.RoundState, error) {
	if cfg.RedisAddr == "" {
		return memstate.New(), nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	return redisstate.New(client)
}

// openStore resolves the persistence backend from the DSN scheme. Postgres
// URLs default to the raw pgx store; --database-engine gorm keeps the same
// URL on GORM's postgres driver instead. Everything else is a sqlite path.
func openStore(ctx context.Context, cfg *runtimeConfig) (betstore.Store, func() error, error) {
	driver, sqlitePath, err := resolveDriver(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if driver == "postgres" && cfg.DatabaseEngine != engineGorm {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() error {
			pool.Close()
			return nil
		}
		return pgstore.New(pool), cleanup, nil
	}

	var db *gorm.DB
	switch driver {
	case "postgres":
		db, err = gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(sqlitePath), &gorm.Config{})
	default:
		return nil, nil, fmt.Errorf("unsupported database scheme %q", driver)
	}
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	if driver == "sqlite" {
		if err := db.AutoMigrate(&gormstore.Profile{}, &gormstore.Round{}, &gormstore.TargetCell{}); err != nil {
			_ = sqlDB.Close()
			return nil, nil, fmt.Errorf("auto migrate: %w", err)
		}
	}
	cleanup := func() error { return sqlDB.Close() }
	return gormstore.New(db.WithContext(ctx)), cleanup, nil
}

func resolveDriver(dsn string) (string, string, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres", "", nil
	}
	if strings.HasPrefix(dsn, "sqlite://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", "", fmt.Errorf("parse sqlite url: %w", err)
		}
		path := u.Path
		if path == "" {
			path = u.Host
		}
		if path == "" || path == "/" {
			path = "arbnomo.db"
		}
		sqlitePath, err := normalizeSQLitePath(path)
		return "sqlite", sqlitePath, err
	}
	// Treat everything else as a direct sqlite path.
	sqlitePath, err := normalizeSQLitePath(dsn)
	return "sqlite", sqlitePath, err
}

func normalizeSQLitePath(path string) (string, error) {
	if path == ":memory:" {
		return path, nil
	}
	if strings.HasPrefix(path, "/") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", err
		}
		return path, nil
	}
	abs := filepath.Join(".", path)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", err
	}
	return abs, nil
}
