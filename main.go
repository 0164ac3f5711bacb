package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/uptrace/bun"

	"ms-visitors/internal/analytics"
	"ms-visitors/internal/auth"
	"ms-visitors/internal/config"
	"ms-visitors/internal/database"
	"ms-visitors/internal/database/migrations"
	"ms-visitors/internal/kafka"
	"ms-visitors/internal/logger"
	"ms-visitors/internal/reports"
	"ms-visitors/internal/reports/pdf"
	"ms-visitors/internal/reports/report_api"
	ticket_db "ms-visitors/internal/tickets/db"
	tickets "ms-visitors/internal/tickets/service"
	"ms-visitors/internal/tickets/ticket_api"
	user_db "ms-visitors/internal/users/db"
	users "ms-visitors/internal/users/service"
	"ms-visitors/internal/users/user_api"
	"ms-visitors/internal/utils"
	visitor_db "ms-visitors/internal/visitors/db"
	"ms-visitors/internal/visitors/pass"
	visitors "ms-visitors/internal/visitors/service"
	"ms-visitors/internal/visitors/visitor_api"
)

func prepareSchema(ctx context.Context, cfg *config.Config, bunDB *bun.DB, logger *logger.Logger) {
	if cfg.Database.AutoMigrate {
		if cfg.Database.Driver == "postgres" {
			runner := migrations.NewRunner(bunDB, logger)
			if err := runner.MigrateUp(); err != nil {
				logger.Fatal("MIGRATION", fmt.Sprintf("Failed to apply migrations: %v", err))
			}
		} else if err := migrations.CreateTables(ctx, bunDB); err != nil {
			logger.Fatal("MIGRATION", fmt.Sprintf("Failed to create tables: %v", err))
		}
		logger.Info("MIGRATION", "Schema is up to date")
	}

	if cfg.Database.Seed {
		if err := migrations.Seed(ctx, bunDB, cfg.Seed, cfg.Auth.BcryptCost, logger); err != nil {
			logger.Fatal("MIGRATION", fmt.Sprintf("Failed to seed database: %v", err))
		}
	}
}

// connectRedis returns nil when Redis is disabled. An unreachable Redis
// only disables the report cache.
func connectRedis(ctx context.Context, cfg config.RedisConfig, logger *logger.Logger) *redis.Client {
	if !cfg.Enabled {
		logger.Info("REDIS", "Redis disabled, reports will not be cached")
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("REDIS", fmt.Sprintf("Redis connection error, report cache disabled: %v", err))
		client.Close()
		return nil
	}
	logger.Info("REDIS", fmt.Sprintf("✅ Redis connection successful to %s (DB: %d)", cfg.Addr, cfg.DB))
	return client
}

func newPublisher(ctx context.Context, cfg config.KafkaConfig, logger *logger.Logger) (kafka.EventPublisher, func()) {
	if !cfg.Enabled {
		logger.Info("KAFKA", "Kafka disabled, domain events will not be published")
		return kafka.NopPublisher{}, func() {}
	}
	if err := kafka.EnsureTopicsExist(ctx, cfg.Brokers, kafka.Topics(cfg.TopicPrefix), logger); err != nil {
		logger.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
	} else {
		logger.Info("KAFKA", "Required topics ensured successfully")
	}
	producer := kafka.NewProducer(cfg.Brokers, cfg.TopicPrefix, logger)
	logger.Info("KAFKA", "Kafka producer initialized successfully")
	return producer, func() { producer.Close() }
}

func newVerifier(ctx context.Context, cfg config.AuthConfig, tokens *auth.TokenIssuer, users auth.UserLookup, logger *logger.Logger) auth.Verifier {
	if cfg.OIDCEnabled() {
		v, err := auth.NewOIDCVerifier(ctx, cfg.OIDCIssuer, cfg.OIDCClientID)
		if err != nil {
			logger.Fatal("AUTH", fmt.Sprintf("Failed to initialize OIDC verifier: %v", err))
		}
		logger.Info("AUTH", fmt.Sprintf("Bearer tokens verified against %s", cfg.OIDCIssuer))
		return v
	}
	logger.Info("AUTH", "Bearer tokens verified locally")
	return &auth.LocalVerifier{Tokens: tokens, Users: users}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	level := logger.ParseLevel(cfg.Log.Level)
	logger := logger.NewLogger(cfg.Log.Dir, cfg.Log.Service)
	defer logger.Close()
	logger.SetLevel(level)

	logger.Info("APP", "Starting Visitor Service initialization")

	ctx := context.Background()
	loc, _ := cfg.Reports.TimeLocation()
	weekStart, _ := cfg.Reports.WeekStartDay()

	bunDB, err := database.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Failed to connect to %s: %v", cfg.Database.Driver, err))
	}
	defer bunDB.Close()

	prepareSchema(ctx, cfg, bunDB, logger)

	redisClient := connectRedis(ctx, cfg.Redis, logger)
	var reportCache reports.Cache = reports.NopCache{}
	if redisClient != nil {
		defer redisClient.Close()
		reportCache = reports.NewRedisCache(redisClient, cfg.Redis.ReportTTL)
	}

	events, closeEvents := newPublisher(ctx, cfg.Kafka, logger)
	defer closeEvents()

	passes, err := pass.NewGenerator(cfg.Pass.Secret)
	if err != nil {
		logger.Fatal("CONFIG", fmt.Sprintf("Invalid admission pass secret: %v", err))
	}

	priceDB := &ticket_db.DB{Bun: bunDB}
	visitorDB := &visitor_db.DB{Bun: bunDB}
	userDB := &user_db.DB{Bun: bunDB}
	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	analyticsService := analytics.NewService(analytics.NewDB(bunDB), logger, loc)
	priceService := tickets.NewPriceService(priceDB, events, logger)
	visitorService := visitors.NewVisitorService(visitorDB, priceDB, &database.TxRunner{DB: bunDB}, events, logger, loc)
	userService := users.NewUserService(userDB, tokens, cfg.Auth.BcryptCost, logger)
	reportService := reports.NewService(
		reports.NewResolver(weekStart, loc, logger),
		analyticsService,
		visitorDB,
		pdf.NewRenderer(cfg.Reports.Brand),
		reports.NewSMTPMailer(cfg.Email),
		reportCache,
		events,
		logger,
		cfg.Reports.Brand,
	)

	visitorHandler := visitor_api.NewHandler(visitorService, analyticsService, passes, logger, loc)
	ticketHandler := ticket_api.NewHandler(priceService, analyticsService, logger, loc)
	reportHandler := report_api.NewHandler(reportService, logger)
	userHandler := user_api.NewHandler(userService, logger)

	authn := auth.Middleware(newVerifier(ctx, cfg.Auth, tokens, userDB, logger), logger)
	var login func(http.Handler) http.Handler
	if !cfg.Auth.OIDCEnabled() {
		login = auth.NewLoginLimiter(cfg.Auth.LoginRateLimit, logger).Middleware
	}

	logger.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, logger.Middleware, middleware.Recoverer)

	// --- Public Routes ---
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := bunDB.PingContext(r.Context()); err != nil {
			utils.WriteError(w, "Database unavailable", err)
			return
		}
		utils.WriteSuccess(w, http.StatusOK, "OK", map[string]string{"status": "up"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			userHandler.RegisterRoutes(r, authn, login)
		})
		logger.Info("ROUTER", "Auth routes registered under /api/auth")

		// --- Protected Routes ---
		r.Group(func(r chi.Router) {
			r.Use(authn)

			r.Route("/visitors", visitorHandler.RegisterRoutes)
			logger.Info("ROUTER", "Visitor routes registered under /api/visitors")

			r.Route("/tickets", ticketHandler.RegisterRoutes)
			logger.Info("ROUTER", "Ticket routes registered under /api/tickets")

			r.Route("/reports", reportHandler.RegisterRoutes)
			logger.Info("ROUTER", "Report routes registered under /api/reports")
		})
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("HTTP", fmt.Sprintf("🚀 Visitor Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	logger.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	logger.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		logger.Info("HTTP", "✅ Visitor Service shutdown complete")
	}
}
