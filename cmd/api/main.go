package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/healthsnap/backend/internal/adapters/cache"
	"github.com/healthsnap/backend/internal/adapters/database"
	"github.com/healthsnap/backend/internal/adapters/jobs"
	"github.com/healthsnap/backend/internal/api/handlers"
	"github.com/healthsnap/backend/internal/api/middleware"
	"github.com/healthsnap/backend/internal/api/routes"
	"github.com/healthsnap/backend/internal/application/analysis"
	"github.com/healthsnap/backend/internal/application/matching"
	"github.com/healthsnap/backend/internal/application/pipeline"
	"github.com/healthsnap/backend/internal/application/transcription"
	"github.com/healthsnap/backend/internal/domain/providers"
	"github.com/healthsnap/backend/internal/domain/repositories"
	"github.com/healthsnap/backend/internal/infrastructure/clients/anthropic"
	"github.com/healthsnap/backend/internal/infrastructure/clients/assemblyai"
	"github.com/healthsnap/backend/internal/infrastructure/clients/deepgram"
	"github.com/healthsnap/backend/internal/infrastructure/clients/postgres"
	"github.com/healthsnap/backend/internal/infrastructure/clients/redis"
	"github.com/healthsnap/backend/internal/infrastructure/observability"
	"github.com/healthsnap/backend/pkg/config"
)

func main() {
	// .env is optional; deployments configure through the environment
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Server.Env)
	logger := observability.GetLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(
			ctx,
			cfg.OTEL.ServiceName,
			cfg.OTEL.ServiceVersion,
			cfg.OTEL.Endpoint,
		)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			logger.Info().Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	// Postgres is optional: without it the pipeline still transcribes and
	// analyzes, skipping persistence and doctor matching.
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		logger.Warn().Err(err).Msg("PostgreSQL unavailable, running without persistence")
		pgClient = nil
	} else {
		defer pgClient.Close()
		logger.Info().Msg("PostgreSQL client initialized")
	}

	// Redis backs the job store and the HTTP cache when available
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		logger.Warn().Err(err).Msg("Redis unavailable, using in-memory job store")
		redisClient = nil
	} else {
		defer redisClient.Close()
		logger.Info().Msg("Redis client initialized")
	}

	var jobStore providers.JobStore
	if redisClient != nil {
		jobStore = jobs.NewRedisStore(redisClient)
	} else {
		jobStore = jobs.NewMemoryStore()
	}

	var cacheMiddleware *middleware.CacheMiddleware
	if redisClient != nil {
		cacheMiddleware = middleware.NewCacheMiddleware(cache.NewRedisAdapter(redisClient))
	}

	// Transcription providers. Primary is configurable; the other becomes
	// the fallback when its key is configured.
	var deepgramProvider, assemblyProvider providers.TranscriptionProvider
	if dg, err := deepgram.NewClient(&cfg.Transcription); err != nil {
		logger.Warn().Err(err).Msg("Deepgram client unavailable")
	} else {
		deepgramProvider = dg
	}
	if aai, err := assemblyai.NewClient(&cfg.Transcription); err != nil {
		logger.Warn().Err(err).Msg("AssemblyAI client unavailable")
	} else {
		assemblyProvider = aai
	}

	primary, fallback := deepgramProvider, assemblyProvider
	if cfg.Transcription.Primary == "assemblyai" {
		primary, fallback = assemblyProvider, deepgramProvider
	}
	if primary == nil {
		primary, fallback = fallback, nil
	}
	if primary == nil {
		logger.Fatal().Msg("no transcription provider configured")
	}
	gateway := transcription.NewGateway(primary, fallback, &cfg.Transcription)

	anthropicClient, err := anthropic.NewClient(&cfg.Anthropic)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize Anthropic client")
	}

	orchestrator := analysis.NewOrchestrator(anthropicClient, matching.NewScorer(), &cfg.Anthropic)

	var (
		voiceNoteRepo   repositories.VoiceNoteRepository
		reportRepo      repositories.ReportRepository
		doctorRepo      repositories.DoctorRepository
		timeSlotRepo    repositories.TimeSlotRepository
		appointmentRepo repositories.AppointmentRepository
	)
	if pgClient != nil {
		voiceNoteRepo = database.NewVoiceNoteAdapter(pgClient)
		reportRepo = database.NewReportAdapter(pgClient)
		doctorRepo = database.NewDoctorAdapter(pgClient)
		timeSlotRepo = database.NewTimeSlotAdapter(pgClient)
		appointmentRepo = database.NewAppointmentAdapter(pgClient)
	}

	supervisor := pipeline.NewSupervisor(jobStore, gateway, orchestrator, voiceNoteRepo, reportRepo, doctorRepo)

	reportHandler := handlers.NewReportHandler(supervisor, jobStore, reportRepo)

	var doctorHandler *handlers.DoctorHandler
	var appointmentHandler *handlers.AppointmentHandler
	if pgClient != nil {
		doctorHandler = handlers.NewDoctorHandler(doctorRepo, timeSlotRepo)
		appointmentHandler = handlers.NewAppointmentHandler(appointmentRepo, timeSlotRepo)
	}

	router := routes.NewRouter(reportHandler, doctorHandler, appointmentHandler, cacheMiddleware, metrics)
	handler := router.SetupRoutes()

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:    serverAddr,
		Handler: handler,
		// Uploads up to the multipart cap must fit in the read window
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", serverAddr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("error during server shutdown")
	}
}
