package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/agrolink/farm-marketplace/internal/config"
	"github.com/agrolink/farm-marketplace/internal/cookie"
	"github.com/agrolink/farm-marketplace/internal/database"
	"github.com/agrolink/farm-marketplace/internal/handler"
	"github.com/agrolink/farm-marketplace/internal/middleware"
	"github.com/agrolink/farm-marketplace/internal/queue"
	"github.com/agrolink/farm-marketplace/internal/repository"
	"github.com/agrolink/farm-marketplace/internal/router"
	queue_publisher "github.com/agrolink/farm-marketplace/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Fatal("redis unavailable: verification flows cannot run without it")
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	verifications := repository.NewVerificationStore(rdb)
	cookies := cookie.NewManager(cfg.CookieSecure, cfg.CookieDomain)

	authHandler := handler.NewAuthHandler(cfg, users, tokens, verifications, cookies,
		queue_publisher.PublishNotification)

	// Drain verification/OTP notifications in the background; the loop
	// reconnects on broker failure and never returns in normal operation.
	go func() {
		if err := queue.StartNotificationConsumer(); err != nil {
			log.Printf("notification consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.RegisterRoutes(e)
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	router.RegisterAuth(e, authHandler, cfg.JWTSecret, limiter)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
