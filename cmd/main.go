package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/yungbote/contentforge-backend/internal/analytics"
	"github.com/yungbote/contentforge-backend/internal/db"
	"github.com/yungbote/contentforge-backend/internal/generation"
	"github.com/yungbote/contentforge-backend/internal/handlers"
	"github.com/yungbote/contentforge-backend/internal/notify"
	"github.com/yungbote/contentforge-backend/internal/pipeline"
	"github.com/yungbote/contentforge-backend/internal/platform/envutil"
	"github.com/yungbote/contentforge-backend/internal/platform/logger"
	"github.com/yungbote/contentforge-backend/internal/repos"
	"github.com/yungbote/contentforge-backend/internal/server"
	"github.com/yungbote/contentforge-backend/internal/sources"
	"github.com/yungbote/contentforge-backend/internal/template"
	"github.com/yungbote/contentforge-backend/internal/workflow"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err := postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up repos...")
	templateRepo := repos.NewTemplateRepo(thePG, log)
	itemRepo := repos.NewGeneratedItemRepo(thePG, log)
	bindingRepo := repos.NewDataSourceBindingRepo(thePG, log)
	stepRepo := repos.NewApprovalStepRepo(thePG, log)
	execLogRepo := repos.NewExecutionLogRepo(thePG, log)
	genLogRepo := repos.NewGenerationCallLogRepo(thePG, log)
	sourceRecordRepo := repos.NewSourceRecordRepo(thePG, log)

	// Notifications: redis when configured, silent otherwise.
	var sink notify.Sink
	if redisSink, err := notify.NewRedisSink(log); err != nil {
		log.Warn("Redis sink unavailable, notifications disabled", "error", err)
		sink = notify.Noop{}
	} else {
		sink = redisSink
	}
	notifier := notify.NewReviewNotifier(sink)

	// Services
	log.Info("Setting up services...")
	registry := template.NewRegistry(templateRepo, itemRepo, log)

	strategies := []sources.Strategy{
		sources.NewRecordStrategy(sourceRecordRepo),
		sources.NewFeedStrategy(sourceRecordRepo),
	}
	if path := envutil.GetEnv("STATIC_DOCS_PATH", "", log); path != "" {
		docs, err := sources.LoadStaticDocs(path)
		if err != nil {
			log.Error("Could not load static docs", "path", path, "error", err)
			os.Exit(1)
		}
		strategies = append(strategies, sources.NewStaticStrategy(docs))
	}
	queryTimeout := time.Duration(envutil.GetEnvAsInt("SOURCE_QUERY_TIMEOUT_SECONDS", 10, log)) * time.Second
	aggregator := sources.NewAggregator(log, queryTimeout, strategies...)

	genClient := generation.NewHTTPClient(log)
	if genClient == nil {
		log.Warn("GENERATION_URL not set, rendered text is used as-is")
	}

	policies, err := workflow.LoadPolicies(nil)
	if err != nil {
		log.Error("Could not load stage policies", "error", err)
		os.Exit(1)
	}
	engine := workflow.NewEngine(itemRepo, stepRepo, templateRepo, notifier, policies, log)

	opts := pipeline.Options{
		ApprovalRequired:  envutil.GetEnvAsBool("PIPELINE_APPROVAL_REQUIRED", true, log),
		MinQualityScore:   envutil.GetEnvAsFloat("PIPELINE_MIN_QUALITY", 0.6, log),
		MaxRetries:        envutil.GetEnvAsInt("PIPELINE_MAX_RETRIES", 2, log),
		SourceParallelism: envutil.GetEnvAsInt("SOURCE_PARALLELISM", 4, log),
	}
	orchestrator := pipeline.NewOrchestrator(
		registry,
		aggregator,
		genClient,
		engine,
		itemRepo,
		bindingRepo,
		execLogRepo,
		genLogRepo,
		notifier,
		opts,
		log,
	)

	probes := []analytics.Probe{
		{Name: "database", Check: func(ctx context.Context) error {
			return thePG.WithContext(ctx).Exec("SELECT 1").Error
		}},
	}
	if pinger, ok := sink.(notify.Pinger); ok {
		probes = append(probes, analytics.Probe{Name: "redis", Check: pinger.Ping})
	}
	analyticsService := analytics.NewService(
		execLogRepo,
		itemRepo,
		genLogRepo,
		log,
		probes...,
	)

	// Escalation sweep
	sweepInterval := time.Duration(envutil.GetEnvAsInt("ESCALATION_SWEEP_SECONDS", 300, log)) * time.Second
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for range ticker.C {
			if _, err := engine.ScanOverdue(context.Background(), time.Now().UTC()); err != nil {
				log.Warn("Overdue scan failed", "error", err)
			}
		}
	}()

	// Handlers
	log.Info("Setting up handlers...")
	templateHandler := handlers.NewTemplateHandler(registry, log)
	pipelineHandler := handlers.NewPipelineHandler(orchestrator, log)
	workflowHandler := handlers.NewWorkflowHandler(engine, itemRepo, bindingRepo, stepRepo, log)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService, log)

	// Router
	log.Info("Setting up router...")
	var origins []string
	if raw := envutil.GetEnv("CORS_ALLOW_ORIGINS", "", log); raw != "" {
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}
	router := server.NewRouter(server.RouterConfig{
		AllowOrigins:     origins,
		TemplateHandler:  templateHandler,
		PipelineHandler:  pipelineHandler,
		WorkflowHandler:  workflowHandler,
		AnalyticsHandler: analyticsHandler,
	})

	port := envutil.GetEnv("PORT", "8080", log)
	log.Info("Server listening", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
	}
}
