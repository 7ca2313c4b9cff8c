package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rental-platform-server/middleware"
	"rental-platform-server/models"
	"rental-platform-server/services"
)

// RegisterRentalRoutes registers listing, favorite and image routes
func (h *Handler) RegisterRentalRoutes(router *gin.RouterGroup, auth *middleware.Authenticator) {
	// Public routes
	router.GET("", h.searchRentals)
	router.GET("/featured", h.featuredRentals)
	router.GET("/recent", h.recentRentals)
	router.GET("/:id", auth.OptionalAuthMiddleware(), h.getRental)

	// Protected routes
	protected := router.Group("")
	protected.Use(auth.AuthMiddleware())
	{
		protected.GET("/favorites", h.favoriteRentals)
		protected.POST("/:id/favorite", h.toggleFavorite)

		managed := protected.Group("")
		managed.Use(middleware.RequireUserType(models.UserTypeLandlord, models.UserTypeAdmin))
		managed.GET("/mine", h.myRentals)
		managed.POST("", h.createRental)
		managed.PUT("/:id", h.updateRental)
		managed.PATCH("/:id", h.updateRental)
		managed.DELETE("/:id", h.deleteRental)
		managed.POST("/:id/images", h.uploadRentalImage)
		managed.PATCH("/:id/images/:imageId/primary", h.setPrimaryImage)
		managed.DELETE("/:id/images/:imageId", h.deleteRentalImage)
	}
}

// searchRentals lists available listings matching the query filters
func (h *Handler) searchRentals(c *gin.Context) {
	filter, err := services.ParseRentalFilter(c.Request.URL.Query())
	if err != nil {
		respondError(c, err)
		return
	}

	p := paginationFrom(c)
	rentals, total, err := h.Rentals.Search(filter, p)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, rentals, total, p)
}

func (h *Handler) featuredRentals(c *gin.Context) {
	rentals, err := h.Rentals.Featured()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rentals})
}

func (h *Handler) recentRentals(c *gin.Context) {
	rentals, err := h.Rentals.Recent()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rentals})
}

func (h *Handler) getRental(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	rental, err := h.Rentals.GetDetail(id, middleware.CurrentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rental})
}

func (h *Handler) myRentals(c *gin.Context) {
	p := paginationFrom(c)
	rentals, total, err := h.Rentals.MyRentals(c.GetUint("user_id"), p)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, rentals, total, p)
}

func (h *Handler) createRental(c *gin.Context) {
	var req models.RentalInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	rental, err := h.Rentals.Create(c.Request.Context(), middleware.CurrentUser(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Rental created successfully",
		"data":    rental,
	})
}

func (h *Handler) updateRental(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req models.RentalInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	rental, err := h.Rentals.Update(c.Request.Context(), middleware.CurrentUser(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Rental updated successfully",
		"data":    rental,
	})
}

func (h *Handler) deleteRental(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.Rentals.Delete(middleware.CurrentUser(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Rental deleted successfully"})
}

func (h *Handler) toggleFavorite(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	favorited, err := h.Rentals.ToggleFavorite(c.GetUint("user_id"), id)
	if err != nil {
		respondError(c, err)
		return
	}

	message := "Removed from favorites"
	if favorited {
		message = "Added to favorites"
	}
	c.JSON(http.StatusOK, gin.H{
		"message":   message,
		"favorited": favorited,
	})
}

func (h *Handler) favoriteRentals(c *gin.Context) {
	p := paginationFrom(c)
	favorites, total, err := h.Rentals.Favorites(c.GetUint("user_id"), p)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, favorites, total, p)
}
