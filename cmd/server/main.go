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

	"github.com/gorilla/handlers"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"carrental/internal/api"
	"carrental/internal/auth"
	"carrental/internal/config"
	"carrental/internal/db"
	"carrental/internal/loyalty"
	"carrental/internal/metrics"
	"carrental/internal/payment"
	"carrental/internal/ratelimit"
	"carrental/internal/repository"
	"carrental/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := sqlx.Connect("postgres", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer conn.Close()
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(30 * time.Minute)
	if err := db.InitSchema(ctx, conn); err != nil {
		return err
	}
	logger.Info().Msg("database schema ready")

	health := map[string]api.HealthCheck{"postgres": conn.PingContext}

	proxies, err := ratelimit.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return fmt.Errorf("parse TRUSTED_PROXIES: %w", err)
	}
	var limiter ratelimit.Limiter
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Msg("redis unreachable at startup, limiter fails open until it recovers")
		}
		limiter = ratelimit.NewRedisLimiter(rdb, cfg.RateLimitMax, cfg.RateLimitWindow)
		health["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		logger.Info().Msg("rate limiter backed by redis")
	} else {
		limiter = ratelimit.NewLocalLimiter(cfg.RateLimitMax, cfg.RateLimitWindow)
		logger.Info().Msg("rate limiter running in process")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var gateway payment.Gateway
	if cfg.StripeEnabled() {
		gateway = payment.NewStripeGateway(cfg.StripeSecretKey, logger)
	} else {
		logger.Warn().Msg("STRIPE_SECRET_KEY not set, bookings are settled offline")
		gateway = payment.NewOfflineGateway(logger)
	}

	var (
		emailSender service.EmailSender = service.NewLogSender(logger)
		smsSender   service.SMSSender   = service.NewLogSender(logger)
	)
	if cfg.SendGridEnabled() {
		emailSender = service.NewSendGridMailer(cfg.SendGridAPIKey, cfg.SendGridFromEmail, cfg.SendGridFromName, logger)
	}
	if cfg.TwilioEnabled() {
		smsSender = service.NewTwilioSMS(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, logger)
	}
	notifier := service.NewNotificationService(emailSender, smsSender, logger)

	policy, err := loyalty.ParseBadgePolicy(cfg.LoyaltyBadgePolicy)
	if err != nil {
		return err
	}
	engine := loyalty.NewEngine(policy)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)

	carRepo := repository.NewCarRepository(conn)
	userRepo := repository.NewUserRepository(conn)
	bookingRepo := repository.NewBookingRepository(conn)
	loyaltyRepo := repository.NewLoyaltyRepository(conn)
	supportRepo := repository.NewSupportRepository(conn)
	jobRepo := repository.NewJobRepository(conn)
	tripRepo := repository.NewTripRepository(conn)

	bookingSvc := service.NewBookingService(bookingRepo, carRepo, userRepo, gateway, engine, notifier, m, logger)
	carSvc := service.NewCarService(carRepo, logger)
	userSvc := service.NewUserService(userRepo, tokens, logger)
	loyaltySvc := service.NewLoyaltyService(loyaltyRepo, engine, m, logger)
	supportSvc := service.NewSupportService(supportRepo, logger)
	jobSvc := service.NewJobService(jobRepo, notifier, m, logger)
	tripSvc := service.NewTripService(tripRepo, bookingRepo, userRepo, logger)

	var webhookHandler *api.StripeWebhookHandler
	if cfg.StripeWebhookSecret != "" {
		webhookHandler = api.NewStripeWebhookHandler(cfg.StripeWebhookSecret, bookingSvc, logger)
	}

	router := api.NewRouter(api.RouterConfig{
		Tokens:         tokens,
		Limiter:        limiter,
		TrustedProxies: proxies,
		Metrics:        m,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Logger:         logger,
		Health:         health,
		Cars:           api.NewCarHandler(carSvc, logger),
		Bookings:       api.NewBookingHandler(bookingSvc, logger),
		Loyalty:        api.NewLoyaltyHandler(loyaltySvc, logger),
		Users:          api.NewUserHandler(userSvc, logger),
		Support:        api.NewSupportHandler(supportSvc, logger),
		Trips:          api.NewTripHandler(tripSvc, logger),
		Webhook:        webhookHandler,
	})

	handler := handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{logger}),
		handlers.PrintRecoveryStack(true),
	)(handlers.CORS(
		handlers.AllowedOrigins(cfg.Origins()),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type", "X-Request-ID"}),
		handlers.ExposedHeaders([]string{"X-Request-ID", "Retry-After", "X-RateLimit-Remaining"}),
	)(router))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	if err := jobSvc.Start(); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			jobSvc.Stop()
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	jobSvc.Stop()
	notifier.Wait()
	logger.Info().Msg("server stopped")
	return nil
}

func newLogger(cfg *config.Config) *zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339
	var l zerolog.Logger
	if cfg.LogPretty {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"})
	} else {
		l = zerolog.New(os.Stdout)
	}
	l = l.Level(level).With().Timestamp().Str("service", "carrental").Logger()
	return &l
}

// recoveryLogger adapts zerolog to the logger gorilla/handlers expects.
type recoveryLogger struct {
	l *zerolog.Logger
}

func (r recoveryLogger) Println(v ...interface{}) {
	r.l.Error().Msg(fmt.Sprint(v...))
}
