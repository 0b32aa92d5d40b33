// main.go - Decantry API server
package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"decantry/config"
	"decantry/database"
	"decantry/handlers"
	"decantry/middleware"
	"decantry/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: invalid configuration: %v", err)
	}
	config.SetupLogging(cfg.LogLevel, cfg.IsProduction())

	db, err := database.InitDB(cfg.Database, cfg.IsProduction())
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	defer database.CloseDB()

	ledger, closeLedger, err := newLedger(cfg, db)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	defer closeLedger()

	svc := services.New(db, services.NewFactStore(db), ledger, clockwork.NewRealClock(), cfg.Game)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(cfg.IsProduction()),
		BodyLimit:    4 * 1024 * 1024, // 4MB
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
	}))
	app.Use(middleware.NewRateLimiter(cfg.RateLimit))

	handlers.New(svc).Register(app, middleware.NewAuth(cfg.JWTSecret, svc.Players))

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		log.Info("🛑 Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.WithError(err).Error("Server shutdown failed")
		}
	}()

	log.Infof("🚀 Server starting on port %s (%s)", cfg.Port, cfg.AppEnv)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
	log.Info("👋 Server stopped")
}

// newLedger picks the score ledger named by LEDGER_DRIVER. The returned func releases it.
func newLedger(cfg *config.Config, db *gorm.DB) (services.ScoreLedger, func(), error) {
	if cfg.Ledger.Driver == config.LedgerDriverNATS {
		ledger, err := services.ConnectNATSLedger(cfg.Ledger)
		if err != nil {
			return nil, nil, err
		}
		return ledger, func() {
			if err := ledger.Close(); err != nil {
				log.WithError(err).Warn("Failed to close NATS connection")
			}
		}, nil
	}
	return services.NewDBLedger(db), func() {}, nil
}
