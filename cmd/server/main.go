package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/stacklight/identity-server-go/internal/config"
	"github.com/stacklight/identity-server-go/internal/database"
	"github.com/stacklight/identity-server-go/internal/email"
	"github.com/stacklight/identity-server-go/internal/handler"
	"github.com/stacklight/identity-server-go/internal/jobs"
	"github.com/stacklight/identity-server-go/internal/license"
	"github.com/stacklight/identity-server-go/internal/middleware"
	"github.com/stacklight/identity-server-go/internal/oauth"
	"github.com/stacklight/identity-server-go/internal/policy"
	"github.com/stacklight/identity-server-go/internal/redis"
	"github.com/stacklight/identity-server-go/internal/repository"
	"github.com/stacklight/identity-server-go/internal/service"
	"github.com/stacklight/identity-server-go/internal/token"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("ENVIRONMENT") == "production"
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	userRepo := repository.NewUserRepository(db.DB)
	invitationRepo := repository.NewInvitationRepository(db.DB)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db.DB)
	passwordResetRepo := repository.NewPasswordResetRepository(db.DB)
	settingRepo := repository.NewSettingRepository(db.DB)
	licenseRepo := repository.NewLicenseRepository(db.DB)

	var sender email.Sender
	if cfg.EmailConfigured() {
		sender = email.NewSMTPSender(email.SMTPConfig{
			Host:        cfg.SMTPHost,
			Port:        cfg.SMTPPort,
			Username:    cfg.SMTPUsername,
			Password:    cfg.SMTPPassword,
			From:        cfg.SMTPFrom,
			ExternalURL: cfg.ExternalURL,
		})
		log.Info().Str("host", cfg.SMTPHost).Msg("smtp delivery enabled")
	} else {
		sender = email.NewLogSender()
		log.Warn().Msg("no smtp transport configured, emails will be logged only")
	}

	codec := token.NewCodec(cfg.AccessTokenSecret, cfg.AccessTokenTTL())
	signupPolicy := policy.NewSignupPolicy(settingRepo)

	licenseValidator, err := license.NewValidator(license.DefaultPublicKey, cfg.LicenseIssuer)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load license public key")
	}
	seatCache := license.NewSeatCache(userRepo)
	licenseService := license.NewService(licenseRepo, licenseValidator, seatCache)

	authService := service.NewAuthService(
		db, userRepo, invitationRepo, refreshTokenRepo, passwordResetRepo,
		codec, sender, cfg.RefreshTokenTTL(),
	)
	invitationService := service.NewInvitationService(
		invitationRepo, userRepo, signupPolicy, licenseService, sender,
	)
	oauthService := service.NewOAuthService(
		db, userRepo, invitationRepo, settingRepo, signupPolicy, authService,
		cfg.ExternalURL,
		oauth.NewGitHubProvider(), oauth.NewGoogleProvider(),
	)
	userService := service.NewUserService(userRepo)
	settingService := service.NewSettingService(settingRepo)

	authMiddleware := middleware.NewAuthMiddleware(codec)
	rateLimiter := middleware.NewRedisRateLimiter(redisClient)

	authHandler := handler.NewAuthHandler(
		authService, userService, authMiddleware, rateLimiter,
		config.LoginRateLimitPerMin, config.ResetRateLimitPerMin,
	)
	oauthHandler := handler.NewOAuthHandler(oauthService)
	invitationHandler := handler.NewInvitationHandler(invitationService, authMiddleware)
	userHandler := handler.NewUserHandler(userService, authMiddleware)
	settingHandler := handler.NewSettingHandler(settingService, authMiddleware)
	licenseHandler := handler.NewLicenseHandler(licenseService, authMiddleware)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Mount("/auth/oauth", oauthHandler.Routes())
		r.Mount("/auth", authHandler.Routes())
		r.Mount("/invitations", invitationHandler.Routes())
		r.Mount("/users", userHandler.Routes())
		r.Mount("/settings", settingHandler.Routes())
		r.Mount("/license", licenseHandler.Routes())
	})

	sweepJob := jobs.NewSweepJob(refreshTokenRepo, passwordResetRepo, config.SweepJobInterval)
	sweepJob.Start()
	defer sweepJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
