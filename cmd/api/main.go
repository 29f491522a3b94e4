package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/noah-isme/gema-assessment-api/internal/config"
	"github.com/noah-isme/gema-assessment-api/internal/database"
	"github.com/noah-isme/gema-assessment-api/internal/handler"
	"github.com/noah-isme/gema-assessment-api/internal/middleware"
	"github.com/noah-isme/gema-assessment-api/internal/observability"
	"github.com/noah-isme/gema-assessment-api/internal/repository"
	"github.com/noah-isme/gema-assessment-api/internal/router"
	"github.com/noah-isme/gema-assessment-api/internal/service"
	"github.com/noah-isme/gema-assessment-api/pkg/ai"
	"github.com/noah-isme/gema-assessment-api/pkg/assessment"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if err := cfg.ValidateServer(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Str("service", cfg.AppName).Logger()

	ctx := context.Background()
	var probes []handler.HealthProbe

	var (
		contentRepo    repository.ContentRepository
		submissionRepo repository.SubmissionRepository
	)

	switch cfg.DatabaseDriver {
	case config.DriverMongo:
		client, db, err := database.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			log.Fatalf("failed to connect to mongo: %v", err)
		}
		defer func() {
			_ = client.Disconnect(context.Background())
		}()

		if err := repository.EnsureMongoIndexes(ctx, db); err != nil {
			log.Fatalf("failed to create mongo indexes: %v", err)
		}

		contentRepo = repository.NewMongoContentRepository(db)
		submissionRepo = repository.NewMongoSubmissionRepository(db)
		probes = append(probes, handler.HealthProbe{Name: "mongo", Check: func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		}})
	default:
		db, err := database.ConnectSQL(cfg.DatabaseDriver, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
		if err := database.Migrate(db); err != nil {
			log.Fatalf("failed to migrate database: %v", err)
		}

		sqlDB, err := db.DB()
		if err != nil {
			log.Fatalf("failed to access sql pool: %v", err)
		}
		defer sqlDB.Close()

		contentRepo = repository.NewContentRepository(db)
		submissionRepo = repository.NewSubmissionRepository(db)
		probes = append(probes, handler.HealthProbe{Name: "database", Check: sqlDB.PingContext})
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
		probes = append(probes, handler.HealthProbe{Name: "redis", Check: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
	} else {
		logger.Warn().Msg("redis disabled; judge verdicts and reviews will not be cached")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
		probes = append(probes, handler.HealthProbe{Name: "nats", Check: func(context.Context) error {
			if !natsConn.IsConnected() {
				return nats.ErrConnectionClosed
			}
			return nil
		}})
	}

	var judge ai.Judge
	if cfg.JudgeEnabled() {
		openAIJudge, err := ai.NewOpenAIJudge(ai.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
			Logger:  logger,
		})
		if err != nil {
			log.Fatalf("failed to create judge: %v", err)
		}
		judge = openAIJudge
		if redisClient != nil {
			judge = ai.NewCachedJudge(openAIJudge, redisClient, cfg.JudgeCacheTTL, logger)
		}
	} else {
		logger.Warn().Msg("no judge configured; answers are graded by exact comparison")
	}

	grader := assessment.NewGrader(judge,
		assessment.WithConcurrency(cfg.JudgeConcurrency),
		assessment.WithLogger(logger),
		assessment.WithFallbackHook(func(t assessment.QuestionType) {
			observability.JudgeFallbacks().WithLabelValues(string(t)).Inc()
		}),
	)

	validate := validator.New(validator.WithRequiredStructEnabled())
	events := service.NewSubmissionEventPublisher(natsConn, cfg.SubmissionSubject, logger)

	assessmentService := service.NewAssessmentService(contentRepo, submissionRepo, grader, redisClient, cfg.ReviewCacheTTL, events, validate, logger)
	contentService := service.NewContentService(contentRepo, validate, logger)

	assessmentHandler := handler.NewAssessmentHandler(assessmentService, middleware.RateLimit("submit", cfg.SubmitRateLimit, time.Minute), logger)
	contentHandler := handler.NewContentHandler(contentService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AssessmentHandler: assessmentHandler,
		ContentHandler:    contentHandler,
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
		HealthProbes:      probes,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, logger)
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
