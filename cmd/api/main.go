package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/moodlist/moodlist/internal/adapters/directory"
	"github.com/moodlist/moodlist/internal/adapters/gemini"
	handler "github.com/moodlist/moodlist/internal/adapters/http"
	"github.com/moodlist/moodlist/internal/adapters/postgres"
	"github.com/moodlist/moodlist/internal/adapters/spotify"
	"github.com/moodlist/moodlist/internal/app"
	"github.com/moodlist/moodlist/internal/config"

	_ "github.com/moodlist/moodlist/docs"
)

// @title			Moodlist API
// @version		1.0
// @description	Turns a free-text mood description into a persisted, shareable playlist
// @description	and manages who may view, edit, or like it.

// @contact.name	Moodlist API Support
// @license.name	MIT

// @host		localhost:8080
// @BasePath	/
func main() {
	cfg := config.Load()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "moodlist",
	})
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	ctx := context.Background()

	db, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", "err", err)
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		logger.Fatal("failed to run migrations", "err", err)
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, genre cache disabled", "err", err)
			rdb = nil
		}
	}

	httpClient := &http.Client{Timeout: time.Duration(cfg.HTTPTimeoutSeconds) * time.Second}

	analyzer := gemini.NewClient(cfg.GeminiAPIKey, cfg.GeminiBaseURL, httpClient)
	catalog := spotify.NewClient(spotify.Config{
		ClientID:     cfg.SpotifyClientID,
		ClientSecret: cfg.SpotifyClientSecret,
		Market:       cfg.SpotifyMarket,
		HTTPClient:   httpClient,
		Redis:        rdb,
		RateLimit:    cfg.CatalogRateLimit,
	})
	users := directory.NewClient(cfg.UserDirectoryURL, httpClient)
	store := postgres.NewStore(db)

	service := app.NewService(analyzer, catalog, store, users, logger)

	r := gin.Default()
	h := handler.NewHandler(service)
	h.RegisterRoutes(r)

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	addr := ":" + cfg.Port
	logger.Info("starting Moodlist API", "addr", addr)
	logger.Info("swagger UI", "url", "http://localhost"+addr+"/swagger/index.html")

	if err := r.Run(addr); err != nil {
		logger.Fatal("server exited", "err", err)
	}
}
