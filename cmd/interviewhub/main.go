package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"interviewhub/internal/api"
	"interviewhub/internal/auth"
	"interviewhub/internal/config"
	"interviewhub/internal/database"
	"interviewhub/internal/events"
	"interviewhub/internal/meeting"
	"interviewhub/internal/metrics"
	"interviewhub/internal/notify"
	"interviewhub/internal/payments"
	"interviewhub/internal/ratelimit"
	"interviewhub/internal/service"
)

func main() {
	cfg, err := config.Load(os.Getenv("APP_CONFIG_PATH"))
	if err != nil {
		boot := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
		boot.Fatal().Err(err).Msg("failed to load config")
	}
	logger := newLogger(cfg)

	if cfg.Secrets.JWTSecret == "" {
		if cfg.Auth.Enabled {
			logger.Fatal().Msg("JWT_SECRET must be set when auth is enabled")
		}
		cfg.Secrets.JWTSecret = "dev-only-secret"
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := events.NewEventBus(&logger)
	issuer := auth.NewIssuer(cfg.Secrets.JWTSecret, cfg.TokenTTL())

	queueSize, workers := cfg.DeliveryQueue()
	outbox := notify.NewOutbox(queueSize, cfg.DeliveryTimeout(), &logger)
	outbox.Start(workers)
	defer outbox.Close()

	notifications := service.NewNotificationService(db, newMailer(cfg, outbox, &logger), newChat(cfg, outbox, &logger), &logger)
	notifications.Attach(bus)
	if cfg.Events.AMQPURL != "" {
		fwd, err := events.NewForwarder(cfg.Events.AMQPURL, cfg.Events.Exchange, &logger)
		if err != nil {
			logger.Error().Err(err).Msg("rabbitmq unavailable, events stay in process")
		} else {
			fwd.Attach(bus)
			defer fwd.Close()
		}
	}

	interviews := service.NewInterviewService(db, newLinker(ctx, cfg, &logger), bus, &logger)
	availability := service.NewAvailabilityService(db, &logger)
	users := service.NewUserService(db, issuer, &logger)
	checkout := service.NewPaymentService(db, newGateway(cfg, &logger), payments.NewWebhookVerifier(cfg.Secrets.StripeWebhookSecret),
		interviews, bus, cfg.Payments.Currency, &logger)
	svc := api.Services{
		Users:        users,
		Skills:       service.NewSkillService(db, &logger),
		Availability: availability,
		Bookings:     service.NewBookingService(db, checkout, bus, &logger),
		Interviews:   interviews,
		Payments:     checkout,
		Verification: service.NewVerificationService(db, otpLimiter(cfg, rdb), bus, service.VerificationConfig{
			TTL:         cfg.OTPTTL(),
			MaxAttempts: cfg.OTPMaxAttempts(),
		}, &logger),
		Feedback:      service.NewFeedbackService(db, &logger),
		Notifications: notifications,
	}

	if cfg.Auth.AdminEmail != "" && cfg.Secrets.AdminPassword != "" {
		if _, err := users.EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Secrets.AdminPassword); err != nil {
			logger.Fatal().Err(err).Msg("bootstrap admin error")
		}
	}

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	server := api.NewServer(svc, api.Options{
		Issuer:      issuer,
		RequireAuth: cfg.Auth.Enabled,
		Limiter:     httpLimiter(cfg, rdb),
	}, &logger)

	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, db, rdb, &logger)
	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	sweeper := service.NewSweeper(interviews, availability, cfg.SweepInterval(), &logger)
	go sweeper.Start(ctx)

	if cfg.Backup.Enabled {
		backups := database.NewBackupService(db, cfg.Backup.Path, cfg.BackupInterval(), cfg.BackupRetention(), &logger)
		go backups.Start(ctx)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           server.Handler(),
		ReadHeaderTimeout: cfg.ReadTimeout(),
		ReadTimeout:       cfg.ReadTimeout(),
	}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()

	logger.Info().Str("addr", cfg.Server.Address).Bool("auth", cfg.Auth.Enabled).Msg("interviewhub started")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("http server error")
	}
	sweeper.Stop()
	logger.Info().Msg("interviewhub stopped")
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if cfg.Logging.Format == "json" {
		return zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	}
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}

func newGateway(cfg *config.Config, logger *zerolog.Logger) payments.Gateway {
	if cfg.Payments.Provider == "stripe" {
		if cfg.Secrets.StripeSecretKey == "" {
			logger.Fatal().Msg("STRIPE_SECRET_KEY must be set for the stripe provider")
		}
		return payments.NewStripeGateway(cfg.Secrets.StripeSecretKey, cfg.Payments.SuccessURL, cfg.Payments.CancelURL)
	}
	logger.Warn().Msg("using the local payment gateway; every checkout succeeds")
	return payments.NewLocalGateway(cfg.Payments.SuccessURL)
}

func newLinker(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) meeting.Linker {
	if cfg.Meeting.GoogleCredentialsFile != "" {
		l, err := meeting.NewCalendarLinker(ctx, cfg.Meeting.GoogleCredentialsFile, cfg.Meeting.GoogleCalendarID)
		if err == nil {
			return l
		}
		logger.Error().Err(err).Msg("google calendar unavailable, using link template")
	}
	return meeting.NewTemplateLinker(cfg.Meeting.LinkTemplate)
}

func newMailer(cfg *config.Config, outbox *notify.Outbox, logger *zerolog.Logger) notify.Mailer {
	smtp := cfg.Notifications.SMTP
	if smtp.Host == "" {
		return notify.NewLogMailer(logger)
	}
	m, err := notify.NewSMTPMailer(smtp.Host, smtp.Port, smtp.Username, cfg.Secrets.SMTPPassword, smtp.From, cfg.DeliveryTimeout())
	if err != nil {
		logger.Error().Err(err).Msg("smtp unavailable, mail goes to the log")
		return notify.NewLogMailer(logger)
	}
	return outbox.Mailer(m)
}

// newChat returns nil rather than a nil *Telegram so the service sees no poster.
func newChat(cfg *config.Config, outbox *notify.Outbox, logger *zerolog.Logger) service.ChatPoster {
	if cfg.Secrets.TelegramBotToken == "" || cfg.Notifications.Telegram.ChatID == 0 {
		return nil
	}
	tg, err := notify.NewTelegram(cfg.Secrets.TelegramBotToken, cfg.Notifications.Telegram.ChatID, cfg.DeliveryTimeout())
	if err != nil {
		logger.Error().Err(err).Msg("telegram unavailable, chat alerts disabled")
		return nil
	}
	return outbox.Poster(tg)
}

func otpLimiter(cfg *config.Config, rdb *redis.Client) ratelimit.Limiter {
	local := ratelimit.PerWindow(cfg.OTPSendsPerHour(), time.Hour)
	if rdb == nil {
		return local
	}
	return ratelimit.Fallback{
		Primary:   ratelimit.NewRedisWindow(rdb, "interviewhub", cfg.OTPSendsPerHour(), time.Hour),
		Secondary: local,
	}
}

func httpLimiter(cfg *config.Config, rdb *redis.Client) ratelimit.Limiter {
	rps := cfg.RateLimit.RequestsPerSecond
	if rps <= 0 {
		return nil
	}
	burst := cfg.RateLimit.Burst
	if burst <= 0 {
		burst = int(math.Ceil(rps))
	}
	local := ratelimit.NewLocal(rate.Limit(rps), burst)
	if rdb == nil {
		return local
	}
	return ratelimit.Fallback{
		Primary:   ratelimit.NewRedisWindow(rdb, "interviewhub", int(math.Ceil(rps*60)), time.Minute),
		Secondary: local,
	}
}

func startHealthServer(ctx context.Context, port int, db *database.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := db.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
