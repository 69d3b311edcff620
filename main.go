package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sqlhaven/sqlhaven-engine/pkg/adapters/datasource"
	"github.com/sqlhaven/sqlhaven-engine/pkg/adapters/datasource/mysql"
	"github.com/sqlhaven/sqlhaven-engine/pkg/adapters/datasource/postgres"
	"github.com/sqlhaven/sqlhaven-engine/pkg/adapters/datasource/spark"
	"github.com/sqlhaven/sqlhaven-engine/pkg/adapters/datasource/trino"
	"github.com/sqlhaven/sqlhaven-engine/pkg/config"
	"github.com/sqlhaven/sqlhaven-engine/pkg/database"
	"github.com/sqlhaven/sqlhaven-engine/pkg/handlers"
	"github.com/sqlhaven/sqlhaven-engine/pkg/logging"
	"github.com/sqlhaven/sqlhaven-engine/pkg/middleware"
	"github.com/sqlhaven/sqlhaven-engine/pkg/models"
	"github.com/sqlhaven/sqlhaven-engine/pkg/repositories"
	"github.com/sqlhaven/sqlhaven-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("redis_host", cfg.Redis.Host),
		zap.String("analytics_db", cfg.Analytics.Path))

	// Context store: Redis when configured, in-memory otherwise.
	var (
		projectRepo repositories.ProjectRepository
		schemaRepo  repositories.SchemaRepository
		intentRepo  repositories.IntentRepository
	)
	redisClient, err := database.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	if redisClient != nil {
		projectRepo = repositories.NewRedisProjectRepository(redisClient)
		schemaRepo = repositories.NewRedisSchemaRepository(redisClient)
		intentRepo = repositories.NewRedisIntentRepository(redisClient)
		logger.Info("Using Redis context store",
			zap.String("host", cfg.Redis.Host), zap.Int("port", cfg.Redis.Port))
	} else {
		store := repositories.NewMemoryStore()
		projectRepo = repositories.NewMemoryProjectRepository(store)
		schemaRepo = repositories.NewMemorySchemaRepository(store)
		intentRepo = repositories.NewMemoryIntentRepository(store)
		logger.Warn("Redis not configured, using in-memory context store")
	}

	if err := database.RunMigrations(cfg.Analytics.Path, cfg.Analytics.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run analytics migrations", zap.Error(err))
	}
	analyticsDB, err := database.NewSQLiteDB(cfg.Analytics.Path)
	if err != nil {
		logger.Fatal("Failed to open analytics database", zap.Error(err))
	}

	router := datasource.NewRouter(cfg.Engines.SparkThresholdBytes, logger)
	registerEngines(router, cfg, logger)
	defer func() {
		if err := router.Close(); err != nil {
			logger.Warn("Failed to close engines", zap.Error(err))
		}
	}()

	analyticsService, err := services.NewAnalyticsService(
		analyticsDB, cfg.Analytics.RetentionDays, cfg.Analytics.SweepSchedule, logger)
	if err != nil {
		logger.Fatal("Failed to create analytics service", zap.Error(err))
	}
	defer func() {
		if err := analyticsService.Close(); err != nil {
			logger.Warn("Failed to close analytics service", zap.Error(err))
		}
	}()

	projectService := services.NewProjectService(projectRepo, schemaRepo, router, logger)
	schemaService := services.NewSchemaService(projectRepo, schemaRepo, router, logger)
	ledgerService := services.NewIntentLedgerService(intentRepo, cfg.Ledger.MaxRecords, logger)
	executionService := services.NewExecutionService(
		projectService, schemaService, ledgerService, analyticsService, router,
		time.Duration(cfg.Execution.TimeoutSeconds)*time.Second, logger)
	ingestService := services.NewIngestService(projectService, executionService, logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewExecuteHandler(executionService, logger).RegisterRoutes(mux)
	handlers.NewProjectsHandler(projectService, logger).RegisterRoutes(mux)
	handlers.NewSchemaHandler(schemaService, logger).RegisterRoutes(mux)
	handlers.NewIntentsHandler(ledgerService, logger).RegisterRoutes(mux)
	handlers.NewAnalyticsHandler(analyticsService, logger).RegisterRoutes(mux)
	handlers.NewUploadHandler(ingestService, logger).RegisterRoutes(mux)

	handler := middleware.RequestLogger(logger)(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting sqlhaven-engine",
		zap.String("addr", addr), zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

// registerEngines wires a lazy factory for every backend with a configured
// host. Unconfigured dialects stay unregistered and resolve to a backend
// unavailable error instead of failing startup.
func registerEngines(router *datasource.Router, cfg *config.Config, logger *zap.Logger) {
	maxRows := cfg.Execution.MaxRows

	if cfg.Engines.MySQL.Host != "" {
		router.Register(models.DialectMySQL, func(ctx context.Context) (datasource.Engine, error) {
			return mysql.New(ctx, cfg.Engines.MySQL, maxRows)
		})
	}
	if cfg.Engines.Postgres.Host != "" {
		router.Register(models.DialectPostgres, func(ctx context.Context) (datasource.Engine, error) {
			return postgres.New(ctx, cfg.Engines.Postgres, maxRows)
		})
	}
	if cfg.Engines.Trino.Host != "" {
		router.Register(models.DialectTrino, func(ctx context.Context) (datasource.Engine, error) {
			return trino.New(ctx, cfg.Engines.Trino, maxRows)
		})
	}
	if cfg.Engines.Spark.Host != "" {
		router.Register(models.DialectSpark, func(ctx context.Context) (datasource.Engine, error) {
			return spark.New(ctx, cfg.Engines.Spark, maxRows)
		})
	}

	logger.Info("Registered engines",
		zap.Bool("mysql", cfg.Engines.MySQL.Host != ""),
		zap.Bool("postgres", cfg.Engines.Postgres.Host != ""),
		zap.Bool("trino", cfg.Engines.Trino.Host != ""),
		zap.Bool("spark", cfg.Engines.Spark.Host != ""))
}
