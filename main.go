package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-badging/internal/analytics"
	"ms-badging/internal/auth"
	"ms-badging/internal/badge"
	"ms-badging/internal/badge/api"
	"ms-badging/internal/badge/cache"
	badge_db "ms-badging/internal/badge/db"
	"ms-badging/internal/badge/render"
	"ms-badging/internal/checkin"
	"ms-badging/internal/config"
	"ms-badging/internal/database/migrations"
	"ms-badging/internal/kafka"
	"ms-badging/internal/leads"
	"ms-badging/internal/logger"
	"ms-badging/internal/sse"
)

func connectPostgres(cfg *config.Config, log *logger.Logger) *bun.DB {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.Database.Username, cfg.Database.Password,
		cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)

	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", dsn)
		if err == nil {
			err = sqldb.Ping()
			if err == nil {
				break
			}
		}
		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	log.Info("DATABASE", "✅ PostgreSQL connection successful")
	return bun.NewDB(sqldb, pgdialect.New())
}

func connectRedis(ctx context.Context, cfg *config.Config, log *logger.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("REDIS", fmt.Sprintf("Redis unavailable at %s, running without cache: %v", cfg.Redis.Addr, err))
		return nil
	}
	log.Info("REDIS", fmt.Sprintf("✅ Redis connection successful to %s", cfg.Redis.Addr))
	return client
}

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting Badge Service initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	ctx := context.Background()

	bunDB := connectPostgres(cfg, log)
	defer bunDB.Close()

	if cfg.Database.AutoMigrate {
		runner := migrations.NewRunner(bunDB, migrations.DefaultOptions(), log)
		if err := runner.Run(); err != nil {
			log.Fatal("DATABASE", fmt.Sprintf("Migrations failed: %v", err))
		}
		defer runner.Close()
	}

	badgeService := badge.NewBadgeService(&badge_db.DB{Bun: bunDB})
	badgeService.Logger = log
	badgeService.DefaultEventID = cfg.Badge.DefaultEventID
	badgeService.BatchSize = cfg.Badge.BulkBatchSize

	analyticsService := analytics.NewService(bunDB)
	analyticsService.Logger = log
	badgeService.Analytics = analyticsService

	emitter := sse.NewBadgeEventEmitter()
	badgeService.Emitter = emitter

	if cfg.Redis.Enabled {
		if redisClient := connectRedis(ctx, cfg, log); redisClient != nil {
			defer redisClient.Close()
			badgeCache := cache.NewCache(redisClient, cfg.Redis.CacheTTL)
			badgeCache.Logger = log
			badgeService.Cache = badgeCache
		}
	}

	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		requiredTopics := []string{
			cfg.Kafka.Topics.BadgeCreated,
			cfg.Kafka.Topics.BadgeUpdated,
			cfg.Kafka.Topics.BadgeDeleted,
			cfg.Kafka.Topics.BadgeCheckedIn,
		}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, requiredTopics); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			log.Info("KAFKA", "Required topics ensured successfully")
		}

		producer = kafka.NewProducer(cfg.Kafka.Brokers, kafka.Topics{
			BadgeCreated:   cfg.Kafka.Topics.BadgeCreated,
			BadgeUpdated:   cfg.Kafka.Topics.BadgeUpdated,
			BadgeDeleted:   cfg.Kafka.Topics.BadgeDeleted,
			BadgeCheckedIn: cfg.Kafka.Topics.BadgeCheckedIn,
		})
		defer producer.Close()
		badgeService.Producer = producer
		log.Info("KAFKA", "Kafka producer initialized successfully")
	}

	checkinService := checkin.NewService(bunDB)
	checkinService.Logger = log
	if producer != nil {
		checkinService.Producer = producer
	}

	leadsService := leads.NewService(bunDB)
	leadsService.Logger = log

	engine := render.NewEngine(cfg.Badge.FontPath)

	handler := api.NewHandler(badgeService, engine, checkinService, leadsService, cfg, log)

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()

	registerRoutes := func(r chi.Router) {
		r.Route("/api/badges", func(r chi.Router) {
			r.Post("/", handler.CreateBadge)
			r.Post("/bulk-status", handler.BulkUpdateStatus)
			r.Get("/{badgeID}", handler.ViewBadge)
			r.Patch("/{badgeID}", handler.UpdateBadge)
			r.Delete("/{badgeID}", handler.DeleteBadge)
			r.Get("/{badgeID}/pdf", handler.DownloadBadgePDF)
		})
		log.Info("ROUTER", "Badge routes registered under /api/badges")

		r.Route("/api/users/{userID}", func(r chi.Router) {
			r.Get("/badges", handler.ListUserBadges)
		})

		r.Route("/api/events/{eventID}", func(r chi.Router) {
			r.Get("/badges", handler.ListEventBadges)
			r.Get("/badges/search", handler.SearchBadges)
			r.Get("/badges/stats", handler.BadgeStats)
			r.Get("/badges/export", handler.ExportBadges)
			r.Get("/badges/stream", handler.StreamEventBadges)
		})
		log.Info("ROUTER", "Event badge routes registered under /api/events")

		r.Post("/api/checkin", handler.CheckInScan)
		r.Post("/api/leads", handler.CaptureLead)
		r.Get("/api/exhibitors/{exhibitorID}/leads/export", handler.ExportLeads)
		log.Info("ROUTER", "Scan routes registered under /api/checkin and /api/leads")
	}

	if cfg.Auth.Enabled {
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(cfg.Auth.OIDCIssuer))
			log.Info("AUTH", "OIDC middleware applied to protected API routes")
			registerRoutes(r)
		})
	} else {
		registerRoutes(r)
	}

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("🚀 Badge Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "✅ Badge Service shutdown complete")
	}
}
