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

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"rental-platform-server/config"
	"rental-platform-server/database"
	"rental-platform-server/jobs"
	"rental-platform-server/middleware"
	"rental-platform-server/routes"
	"rental-platform-server/services"
	"rental-platform-server/utils"
	ws "rental-platform-server/websocket"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	config.Load()
	cfg := config.AppConfig

	if cfg.Server.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := database.Initialize(); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}

	// Live notification hub
	hub := ws.NewHub()
	go hub.Run()

	opts := routes.Options{
		Hub:         hub,
		Cache:       utils.NewTTLCache(cfg.Cache.Size, cfg.Cache.TTL),
		RateLimiter: middleware.NewRateLimiter(),
	}

	if url := cfg.Cloudinary.CloudinaryURL(); url != "" {
		uploader, err := services.NewCloudinaryUploader(url)
		if err != nil {
			log.Fatal("Failed to initialize image storage:", err)
		}
		opts.Uploader = uploader
		log.Println("✅ Cloudinary image storage enabled")
	} else {
		log.Println("⚠️ Cloudinary is not configured, image uploads are disabled")
	}

	if cfg.Geocoding.Enabled {
		opts.Geocoder = utils.NewGeocoder(cfg.Geocoding.BaseURL, cfg.Geocoding.UserAgent)
		log.Printf("✅ Geocoding enabled via %s", cfg.Geocoding.BaseURL)
	}

	handler := routes.NewHandler(database.GetDB(), cfg.JWT, opts)
	router := routes.SetupRouter(handler, cfg.CORS.AllowedOrigins)

	maintenance := jobs.NewMaintenanceJob(handler.JWT, opts.Cache, opts.RateLimiter, time.Hour)
	maintenance.Start()
	defer maintenance.Stop()

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("🚀 Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("❌ Server forced to shut down: %v", err)
	}
}
