package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cashup-backend/internal/admin"
	"cashup-backend/internal/audit"
	"cashup-backend/internal/auth"
	"cashup-backend/internal/cashup"
	"cashup-backend/internal/closure"
	"cashup-backend/internal/closures"
	"cashup-backend/internal/config"
	"cashup-backend/internal/dashboard"
	"cashup-backend/internal/database"
	"cashup-backend/internal/directory"
	"cashup-backend/internal/locks"
	"cashup-backend/internal/logger"
	"cashup-backend/internal/middleware"
	"cashup-backend/internal/rules"
	"cashup-backend/internal/scope"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zl.Sync()

	for _, w := range cfg.Warnings() {
		zl.Warn("insecure configuration", zap.String("detail", w))
	}

	db, err := database.Open(cfg)
	if err != nil {
		zl.Fatal("database connection failed", zap.Error(err))
	}
	if err := database.Migrate(db, logger.Named(zl, "migrate")); err != nil {
		zl.Fatal("migration failed", zap.Error(err))
	}

	var locker locks.Locker = locks.NewLocalLocker()
	if cfg.RedisAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		client, err := locks.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		cancel()
		if err != nil {
			zl.Fatal("redis connection failed", zap.Error(err))
		}
		defer client.Close()
		locker = locks.NewRedisLocker(client, cfg.LockTTL, logger.Named(zl, "locks"))
		zl.Info("using redis closure locks", zap.String("addr", cfg.RedisAddr))
	}

	dir := directory.NewGormDirectory(db)
	resolver := scope.NewResolver(dir)
	registry, err := rules.NewCashupRegistry(resolver, time.Now, cfg.EditablePeriod)
	if err != nil {
		zl.Fatal("permission registry", zap.Error(err))
	}

	svc := cashup.NewService(cashup.Deps{
		Closures:  closure.NewGormStore(db),
		Directory: dir,
		Scope:     resolver,
		Rules:     registry,
		Locker:    locker,
		Activity:  audit.NewGormLog(db),
		Logger:    logger.Named(zl, "cashup"),
	})

	limit, err := middleware.RateLimit(cfg.RateLimit, logger.Named(zl, "ratelimit"))
	if err != nil {
		zl.Fatal("rate limiter", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger.Named(zl, "http")),
	})

	app.Use(recover.New())
	app.Use(middleware.RequestLogger(logger.Named(zl, "http")))

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	api := app.Group("/api", limit)

	// Public
	api.Post("/auth/register", auth.RegisterHandler(svc, cfg.JWTSecret))
	api.Post("/auth/login", auth.LoginHandler(svc, cfg.JWTSecret))
	api.Get("/denominations", closures.DenominationsHandler())

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg.JWTSecret, svc))

	protected.Get("/auth/me", auth.MeHandler(svc))

	// Business and people
	protected.Get("/business", admin.GetBusinessHandler(svc))
	protected.Put("/business", admin.UpdateBusinessHandler(svc))
	protected.Get("/personnel", admin.ListPersonnelHandler(svc))
	protected.Post("/personnel", admin.CreatePersonnelHandler(svc))
	protected.Get("/personnel/:id/closures", closures.PersonnelClosuresHandler(svc))
	protected.Get("/activity", auth.RequireOwner(), audit.ListActivityHandler(svc, auth.Actor))

	// Outlets
	protected.Get("/home", admin.HomeHandler(svc))
	protected.Get("/outlets", admin.ListOutletsHandler(svc))
	protected.Post("/outlets", admin.CreateOutletHandler(svc))
	protected.Get("/outlets/:name", admin.GetOutletHandler(svc))
	protected.Put("/outlets/:name", admin.UpdateOutletHandler(svc))
	protected.Get("/outlets/:name/staff", admin.ListStaffHandler(svc))
	protected.Put("/outlets/:name/staff/:personnelID", admin.AssignStaffHandler(svc))
	protected.Delete("/outlets/:name/staff/:personnelID", admin.RemoveStaffHandler(svc))

	// Till closures
	protected.Get("/outlets/:name/closures", closures.ListOutletClosuresHandler(svc))
	protected.Post("/outlets/:name/closures", closures.CreateClosureHandler(svc))
	protected.Get("/outlets/:name/closures/export", closures.ExportOutletClosuresHandler(svc))
	protected.Get("/outlets/:name/takings-chart", dashboard.TakingsChartHandler(svc))
	protected.Get("/closures/:identity", closures.GetClosureHandler(svc))
	protected.Put("/closures/:identity", closures.AmendClosureHandler(svc))
	protected.Delete("/closures/:identity", closures.WithdrawClosureHandler(svc))
	protected.Get("/closures/:identity/versions", closures.ClosureVersionsHandler(svc))

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		zl.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			zl.Error("shutdown", zap.Error(err))
		}
	}()

	zl.Info("server listening", zap.String("port", cfg.HTTPPort))
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}
