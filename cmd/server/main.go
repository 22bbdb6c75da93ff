package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/respondaai/automation-server-go/internal/config"
	"github.com/respondaai/automation-server-go/internal/database"
	"github.com/respondaai/automation-server-go/internal/gateway"
	"github.com/respondaai/automation-server-go/internal/handler"
	"github.com/respondaai/automation-server-go/internal/jobs"
	"github.com/respondaai/automation-server-go/internal/llm"
	"github.com/respondaai/automation-server-go/internal/metrics"
	"github.com/respondaai/automation-server-go/internal/middleware"
	"github.com/respondaai/automation-server-go/internal/redis"
	"github.com/respondaai/automation-server-go/internal/repository"
	"github.com/respondaai/automation-server-go/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	setLogLevel(cfg.LogLevel)

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

	conversationRepo := repository.NewConversationRepository(db.DB)
	messageRepo := repository.NewMessageRepository(db.DB)
	sessionRepo := repository.NewSessionRepository(db.DB)
	triggerRepo := repository.NewTriggerRepository(db.DB)
	appointmentRepo := repository.NewAppointmentRepository(db.DB)
	slotRuleRepo := repository.NewSlotRuleRepository(db.DB)
	configRepo := repository.NewConfigRepository(db.DB)
	instanceRepo := repository.NewInstanceRepository(db.DB)
	contactRepo := repository.NewNotificationContactRepository(db.DB)

	sender := gateway.NewClient(cfg.GatewayBaseURL, cfg.GatewayAPIKey)
	var transcriber gateway.Transcriber
	if cfg.TranscriberBaseURL != "" {
		transcriber = gateway.NewHTTPTranscriber(cfg.TranscriberBaseURL)
	}
	completionClient := llm.NewGeminiClient(cfg.CompletionBaseURL, cfg.CompletionAPIKey, cfg.CompletionModel)

	notifyService := service.NewNotifyService(contactRepo, instanceRepo, sender)
	appointmentService := service.NewAppointmentService(db, appointmentRepo, slotRuleRepo, notifyService)
	generator := service.NewGenerator(completionClient, appointmentService, messageRepo)
	pacer := service.NewPacer(sender)
	gate := service.NewGateService(
		configRepo, conversationRepo, sessionRepo, messageRepo, instanceRepo,
		generator, pacer, notifyService,
	)
	debounce := service.NewDebounceService(triggerRepo, gate)
	defer debounce.Stop()
	intake := service.NewIntakeService(
		conversationRepo, messageRepo, sessionRepo, configRepo, transcriber, debounce, gate,
	)

	webhookHandler := handler.NewWebhookHandler(instanceRepo, intake)
	adminHandler := handler.NewAdminHandler(conversationRepo, sessionRepo, appointmentService)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	rateLimitMiddleware := middleware.NewWebhookRateLimitMiddleware(redisClient.Client, cfg.WebhookRateLimitPerMin)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(bodyLimitMiddleware.Handler)

	r.Get("/health", healthHandler.Liveness)
	r.Get("/ready", healthHandler.Readiness)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/webhook", func(r chi.Router) {
		r.Use(rateLimitMiddleware.Handler)
		r.Post("/", webhookHandler.Receive)
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/conversations/{tenantID}/{phone}/reactivate", adminHandler.ReactivateConversation)
		r.Post("/conversations/{tenantID}/{phone}/automation", adminHandler.SetAutomation)
		r.Get("/availability/{tenantID}", adminHandler.CheckAvailability)
		r.Get("/appointments/{tenantID}", adminHandler.ListAppointments)
		r.Post("/appointments/{tenantID}", adminHandler.CreateAppointment)
		r.Patch("/appointments/{tenantID}/{id}/status", adminHandler.UpdateAppointmentStatus)
		r.Delete("/appointments/{tenantID}/{id}", adminHandler.CancelAppointment)
	})

	sweeper := jobs.NewSweeperJob(triggerRepo, debounce, cfg.SweepInterval())
	sweeper.Start()
	defer sweeper.Stop()

	reminders := jobs.NewReminderJob(
		configRepo, appointmentRepo, instanceRepo, conversationRepo, messageRepo,
		sender, cfg.ReminderInterval(),
	)
	reminders.Start()
	defer reminders.Stop()

	server := &http.Server{
		Addr:        cfg.Addr(),
		Handler:     r,
		ReadTimeout: config.ServerReadTimeout,
		IdleTimeout: config.ServerIdleTimeout,
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
