package main

import (
	"context"
	"crypto/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	amw "github.com/autoinvoice/autoinvoice/internal/auth/middleware"
	"github.com/autoinvoice/autoinvoice/internal/config"
	"github.com/autoinvoice/autoinvoice/internal/customers"
	evsvc "github.com/autoinvoice/autoinvoice/internal/events/service"
	"github.com/autoinvoice/autoinvoice/internal/invoices"
	"github.com/autoinvoice/autoinvoice/internal/logger"
	marepo "github.com/autoinvoice/autoinvoice/internal/mailaccounts/repository"
	"github.com/autoinvoice/autoinvoice/internal/mailer"
	"github.com/autoinvoice/autoinvoice/internal/metrics"
	"github.com/autoinvoice/autoinvoice/internal/oauthlink"
	rl "github.com/autoinvoice/autoinvoice/internal/platform/ratelimit"
	"github.com/autoinvoice/autoinvoice/internal/platform/validation"
	"github.com/autoinvoice/autoinvoice/internal/settings"
	"github.com/autoinvoice/autoinvoice/internal/vault"
	"github.com/autoinvoice/autoinvoice/internal/version"
)

// @title           autoinvoice API
// @version         1.0
// @description     Multi-tenant invoicing with a signed workflow webhook and mailbox relay.
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization

func main() {
	if handleCLICommand(os.Args[1:]) {
		return
	}
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.AppEnv)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	log.Info().Str("addr", cfg.AppAddr).Str("version", version.String()).Msg("starting api server")

	// Init Postgres
	pgCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid DATABASE_URL")
	}
	pgPool, err := pgxpool.NewWithConfig(context.Background(), pgCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to create pg pool")
	}
	defer pgPool.Close()

	// Init Redis/Valkey
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	defer redisClient.Close()

	cipher := tokenCipher(cfg, log)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middlewares
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())
	e.Use(middleware.Secure())
	e.Use(metrics.HTTPMiddleware())
	e.Use(middleware.CORSWithConfig(corsConfig(cfg)))

	// Validator
	e.Validator = validation.New()

	// Shared concerns
	jwt := amw.NewJWT(cfg)
	rlStore := rl.NewRedisStore(redisClient)
	pub := evsvc.NewLogger(log)
	accounts := marepo.New(pgPool)
	refresher := vault.NewRefresher(accounts, cipher, cfg, log)
	linker := vault.NewLinker(accounts, cipher, cfg, log)

	// Register domain routes via factories
	settingsSvc := settings.Register(e, pgPool, cfg.DefaultCurrency, jwt, rlStore, pub)
	customers.Register(e, pgPool, jwt)
	invoices.Register(e, pgPool, cfg, log, jwt, settingsSvc, pub)
	mailer.Register(e, cfg, log, accounts, refresher, settingsSvc, pub, rlStore)
	oauthlink.Register(e, cfg, redisClient, linker, accounts, jwt, pub)

	e.GET("/healthz", healthHandler(
		healthCheck{name: metrics.DepPostgres, ping: pgPool.Ping},
		healthCheck{name: metrics.DepRedis, ping: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
	))
	e.GET("/metrics", metrics.Handler())

	// Start server
	go func() {
		if err := e.Start(cfg.AppAddr); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	log.Info().Msg("server stopped")
}

// tokenCipher builds the vault cipher. Outside production a missing key is
// replaced by a random one, so linked mailboxes do not survive a restart.
func tokenCipher(cfg config.Config, log zerolog.Logger) *vault.Cipher {
	key, err := cfg.EncryptionKey()
	if err != nil {
		if cfg.IsProduction() {
			log.Fatal().Err(err).Msg("token encryption key")
		}
		log.Warn().Err(err).Msg("using an ephemeral token encryption key")
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			log.Fatal().Err(err).Msg("generate token encryption key")
		}
	}
	c, err := vault.NewCipher(key)
	if err != nil {
		log.Fatal().Err(err).Msg("token cipher")
	}
	return c
}
