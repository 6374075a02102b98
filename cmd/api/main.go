package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"chefai/internal/api"
	"chefai/internal/config"
	"chefai/internal/platform/gemini"
	"chefai/internal/platform/pexels"
	"chefai/internal/scan"
	"chefai/internal/session"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	geminiClient, err := gemini.NewClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		slog.Error("failed to create gemini client", "error", err)
		os.Exit(1)
	}

	pexelsClient := pexels.NewClient(cfg.PexelsAPIKey)
	if cfg.PexelsAPIKey == "" {
		slog.Warn("PEXELS_API_KEY not set, recipe images degrade to placeholders")
	}

	// In-memory store is the default; scans then live only for the process
	// lifetime. Set DATABASE_URL to persist users and scans in Postgres.
	var store api.UserStore = scan.NewMemoryStore()
	if cfg.DatabaseURL != "" {
		pgStore, err := scan.NewPostgresStore(cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to create postgres store", "error", err)
			os.Exit(1)
		}
		store = pgStore
		slog.Info("using postgres store")
	} else {
		slog.Info("using in-memory store, history is lost on restart")
	}

	sessions := session.NewManager()
	handler := api.NewHandler(geminiClient, pexelsClient, store, sessions)

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.AllowedOrigin},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.LoadHTMLGlob("templates/*.html")

	r.GET("/", handler.Index)
	r.GET("/login", handler.LoginPage)
	r.GET("/logout", handler.Logout)
	r.GET("/account", handler.Account)
	r.GET("/scan_details/:scan_id", handler.ScanDetails)
	r.GET("/settings", handler.SettingsPage)
	r.POST("/settings", handler.SaveSettings)

	r.POST("/analyze", api.RateLimit(1, 5), handler.Analyze)
	r.POST("/login-or-register", api.RateLimit(5, 10), handler.LoginOrRegister)

	if err := r.Run(":" + cfg.Port); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
