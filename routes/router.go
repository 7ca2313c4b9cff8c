package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"rental-platform-server/config"
	"rental-platform-server/middleware"
	"rental-platform-server/services"
	"rental-platform-server/utils"
	ws "rental-platform-server/websocket"
)

// Handler carries the services every route group needs
type Handler struct {
	DB            *gorm.DB
	Hub           *ws.Hub
	JWT           *services.JWTService
	Accounts      *services.AccountService
	Rentals       *services.RentalService
	Media         *services.MediaService
	Inquiries     *services.InquiryService
	Reviews       *services.ReviewService
	Helpfulness   *services.HelpfulnessService
	Moderation    *services.ModerationService
	Notifications *services.NotificationService

	// RateLimiter is nil when rate limiting is off
	RateLimiter *middleware.RateLimiter
	Cache       *utils.TTLCache
	startedAt   time.Time
}

// Options are the optional collaborators of NewHandler
type Options struct {
	Hub         *ws.Hub
	Uploader    services.ImageUploader
	Geocoder    services.Geocoder
	Cache       *utils.TTLCache
	RateLimiter *middleware.RateLimiter
}

// NewHandler wires the services over one database handle
func NewHandler(db *gorm.DB, jwtCfg config.JWTConfig, opts Options) *Handler {
	var pusher services.Pusher
	if opts.Hub != nil {
		pusher = opts.Hub
	}
	notifications := services.NewNotificationService(db, pusher)
	rentals := services.NewRentalService(db, opts.Cache, opts.Geocoder)

	h := &Handler{
		DB:            db,
		Hub:           opts.Hub,
		JWT:           services.NewJWTService(db, jwtCfg),
		Accounts:      services.NewAccountService(db),
		Rentals:       rentals,
		Media:         services.NewMediaService(db, rentals, opts.Uploader),
		Inquiries:     services.NewInquiryService(db, notifications),
		Reviews:       services.NewReviewService(db),
		Helpfulness:   services.NewHelpfulnessService(db),
		Moderation:    services.NewModerationService(db, notifications),
		Notifications: notifications,
		RateLimiter:   opts.RateLimiter,
		Cache:         opts.Cache,
		startedAt:     time.Now(),
	}
	if h.Hub != nil {
		h.registerSocketHandlers()
	}
	return h
}

// SetupRouter builds the gin engine with middleware and every API route
func SetupRouter(h *Handler, allowedOrigins []string) *gin.Engine {
	useJSONFieldNames()

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.CORSMiddleware(allowedOrigins))
	router.Use(middleware.InputValidationMiddleware())
	router.Use(middleware.AuditLogMiddleware())
	if h.RateLimiter != nil {
		router.Use(middleware.RateLimitMiddleware(h.RateLimiter))
	}

	router.GET("/health", h.health)
	if h.Hub != nil {
		h.Hub.AllowOrigins(allowedOrigins)
	}

	auth := middleware.NewAuthenticator(h.JWT, h.DB)
	apiV1 := router.Group("/api/v1")
	{
		h.RegisterAuthRoutes(apiV1.Group("/auth"), auth)
		h.RegisterRentalRoutes(apiV1.Group("/rentals"), auth)
		h.RegisterInquiryRoutes(apiV1.Group("/inquiries"), auth)
		h.RegisterReviewRoutes(apiV1.Group("/reviews"), auth)
		h.RegisterNotificationRoutes(apiV1, auth)
		h.RegisterAdminRoutes(apiV1.Group("/admin"), auth)
	}

	return router
}

func (h *Handler) health(c *gin.Context) {
	status := "ok"
	code := http.StatusOK
	if sqlDB, err := h.DB.DB(); err != nil || sqlDB.Ping() != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	body := gin.H{
		"status": status,
		"uptime": time.Since(h.startedAt).Round(time.Second).String(),
	}
	if h.Hub != nil {
		body["websocket_clients"] = h.Hub.ConnectedCount()
	}
	c.JSON(code, body)
}
