package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/leduoyang/connect-backend/internal/auth"
	"github.com/leduoyang/connect-backend/internal/config"
	"github.com/leduoyang/connect-backend/internal/database"
	"github.com/leduoyang/connect-backend/internal/handler"
	"github.com/leduoyang/connect-backend/internal/queue"
	"github.com/leduoyang/connect-backend/internal/repository"
	"github.com/leduoyang/connect-backend/internal/router"
	"github.com/leduoyang/connect-backend/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	users := repository.NewUserRepo(db)
	posts := repository.NewPostRepo(db)
	comments := repository.NewCommentRepo(db)

	codec := auth.NewCodec(cfg.JWTSecret, time.Duration(cfg.TokenTTLMin)*time.Minute)
	verifier := auth.NewVerifier(users)
	publisher := &service.Publisher{URL: cfg.AMQPURL}

	if cfg.AMQPURL != "" {
		consumer := &queue.Consumer{URL: cfg.AMQPURL, Users: users, Posts: posts, Comments: comments}
		go consumer.Start(context.Background())
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; cache and rate limiting disabled")
	}

	e := echo.New()
	e.HideBanner = true
	router.Register(e, codec, rdb,
		handler.NewAuthHandler(cfg, users, codec, verifier),
		handler.NewUserHandler(users, publisher),
		handler.NewPostHandler(posts, publisher),
		handler.NewCommentHandler(comments, publisher),
	)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
