package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/bookly-project/bookly/internal/config"
	"github.com/bookly-project/bookly/internal/es"
	"github.com/bookly-project/bookly/internal/handlers"
	"github.com/bookly-project/bookly/internal/logging"
	authmw "github.com/bookly-project/bookly/internal/middleware/auth"
	"github.com/bookly-project/bookly/internal/middleware/loggingmw"
	"github.com/bookly-project/bookly/internal/mykafka"
	"github.com/bookly-project/bookly/internal/token"
	httpserver "github.com/bookly-project/bookly/internal/transport/http"
	"github.com/bookly-project/bookly/internal/users"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("database init error: %v", err)
	}

	codec, err := token.NewCodec(
		[]byte(configuration.JWT_SECRET),
		configuration.AccessTokenTTL,
		configuration.RefreshTokenTTL,
	)
	if err != nil {
		log.Fatal(err)
	}

	blocklist := token.NewBlocklist(configuration.REDIS_ADDR, configuration.REDIS_DB, configuration.BlocklistTTL)

	prod := mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})

	directory := users.NewDirectory(db)
	guard := authmw.NewTokenGuard(codec, blocklist)

	deps := &httpserver.Deps{
		Guard:     guard,
		Directory: directory,
		AuthHandler: &handlers.AuthHandler{
			Directory: directory,
			Codec:     codec,
			Blocklist: blocklist,
			Producer:  prod,
		},
		BookHandler:   &handlers.BookHandler{DB: db, Producer: prod},
		ReviewHandler: &handlers.ReviewHandler{DB: db, Producer: prod},
		TagHandler:    &handlers.TagHandler{DB: db},
	}

	if configuration.ES_URL != "" {
		esClient, err := es.NewClient(configuration)
		if err != nil {
			log.Fatal(err)
		}
		deps.SearchHandler = &handlers.SearchHandler{ES: esClient, Index: "books"}
	}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(loggingmw.RequestLogger(logger))

	httpserver.Register(e, deps)

	srv := &http.Server{
		Addr:         ":8080",
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if err := blocklist.Close(); err != nil {
		log.Printf("redis close error: %v", err)
	}

	if err := prod.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}
