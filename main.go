package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"salesdash/analytics"
	"salesdash/cache"
	"salesdash/config"
	"salesdash/database"
	"salesdash/handlers"
	"salesdash/middleware"
	"salesdash/models"
	"salesdash/pipeline"
	"salesdash/routes"
	"salesdash/scenario"
	"salesdash/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	config.AppConfig = cfg

	ctx := context.Background()

	// Storage: Postgres when configured, otherwise an empty in-memory store.
	var repo store.Repository
	var ping func(context.Context) error
	if cfg.DatabaseURL != "" {
		if err := database.Connect(ctx, cfg.DatabaseURL); err != nil {
			log.Fatalf("Unable to connect to database: %v", err)
		}
		defer database.Close()

		pg := store.NewPostgres(database.GetDB())
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Fatalf("Failed to prepare schema: %v", err)
		}
		repo = pg
		ping = database.Ping
	} else {
		log.Println("⚠️  DATABASE_URL is not set, serving from an empty in-memory store")
		repo = store.NewMemory()
	}

	scenarios := scenario.Builtin()
	if cfg.ScenarioFile != "" {
		scenarios, err = scenario.LoadFile(cfg.ScenarioFile)
		if err != nil {
			log.Fatalf("Failed to load scenarios: %v", err)
		}
		log.Printf("📄 Loaded %d scenarios from %s", len(scenarios.List()), cfg.ScenarioFile)
	}

	// Dashboard cache: Redis when configured, in-process otherwise.
	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	dashCache, closeCache, err := cache.Open(connectCtx, cfg.RedisURL)
	cancel()
	if err != nil {
		log.Fatalf("Unable to connect to redis: %v", err)
	}
	defer closeCache()
	if cfg.RedisURL != "" {
		log.Println("✅ Connected to redis")
	} else {
		log.Println("⚠️  REDIS_URL is not set, caching dashboards in process")
	}

	svc := pipeline.NewService(repo, scenarios,
		pipeline.WithCache(dashCache, cfg.CacheTTL),
		pipeline.WithDefaults(pipeline.Defaults{
			Channel:     models.NormalizeChannel(cfg.DefaultChannel),
			ProductLine: models.ProductLineIQBAR,
			Weights: analytics.DemandWeights{
				W7:  cfg.DemandWeights[0],
				W30: cfg.DemandWeights[1],
				W60: cfg.DemandWeights[2],
				W90: cfg.DemandWeights[3],
			},
			TargetWOS:            cfg.TargetWOS,
			SnapshotHistoryLimit: cfg.SnapshotHistoryLimit,
		}),
	)
	handlers.Init(svc, ping)

	app := fiber.New(fiber.Config{AppName: "salesdash"})
	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(middleware.RequestID, middleware.Logger)

	// Setup routes
	routes.SetupRoutes(app)

	// Start server
	log.Fatal(app.Listen(fmt.Sprintf(":%d", cfg.Port)))
}
