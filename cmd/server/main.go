package main

import (
	"log"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/ykravets/contacts-api/internal/auth"
	"github.com/ykravets/contacts-api/internal/cache"
	"github.com/ykravets/contacts-api/internal/config"
	"github.com/ykravets/contacts-api/internal/database"
	"github.com/ykravets/contacts-api/internal/handler"
	"github.com/ykravets/contacts-api/internal/middleware"
	"github.com/ykravets/contacts-api/internal/queue"
	"github.com/ykravets/contacts-api/internal/repository"
	"github.com/ykravets/contacts-api/internal/router"
)

func main() {
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis is optional: without it authentication falls back to the
	// database on every request and rate limiting is disabled.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable: user cache and rate limiting disabled")
	}

	users := repository.NewUserRepo(db)
	hasher := auth.NewHasher(cfg.BcryptCost)
	codec, err := auth.NewTokenCodec(cfg.JWTSecret, cfg.JWTAlgorithm, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, cfg.EmailTokenTTL)
	if err != nil {
		log.Fatalf("token codec: %v", err)
	}

	var userCache auth.UserCache
	if rdb != nil {
		userCache = cache.NewUserCache(rdb)
	}
	authn := auth.NewAuthenticator(codec, hasher, users, userCache, cfg.UserCacheTTL)

	e := echo.New()
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		AllowCredentials: true,
	}))

	h := handler.NewAuthHandler(cfg, authn, codec, hasher, users)
	router.RegisterRoutes(e)
	router.RegisterAuth(e, h, authn, middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	go func() {
		if err := queue.StartEmailConsumer(); err != nil {
			log.Printf("email consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
