package routes

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"rental-platform-server/middleware"
	"rental-platform-server/models"
	"rental-platform-server/services"
	"rental-platform-server/types"
)

type resolveReportRequest struct {
	AdminAction string `json:"admin_action" binding:"max=1000"`
}

type moderationNotesRequest struct {
	Notes string `json:"notes" binding:"required,max=2000"`
}

type rentalStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// RegisterAdminRoutes registers user, rental and review moderation routes
func (h *Handler) RegisterAdminRoutes(router *gin.RouterGroup, auth *middleware.Authenticator) {
	router.Use(auth.AuthMiddleware(), middleware.AdminOnly())
	{
		// Users
		router.GET("/users", h.adminListUsers)
		router.GET("/users/statistics", h.adminUserStatistics)
		router.GET("/users/:id", h.adminGetUser)
		router.PATCH("/users/:id", h.adminUpdateUser)
		router.DELETE("/users/:id", h.adminDeleteUser)
		router.POST("/users/:id/verify", h.adminVerifyUser)
		router.POST("/users/:id/toggle-active", h.adminToggleActive)

		// Rentals
		router.GET("/rentals/statistics", h.adminRentalStatistics)
		router.POST("/rentals/:id/toggle-featured", h.adminToggleFeatured)
		router.POST("/rentals/:id/status", h.adminRentalStatus)

		// Reviews
		router.GET("/reviews", h.adminListReviews)
		router.GET("/reviews/statistics", h.adminReviewStatistics)
		router.POST("/reviews/:id/toggle-approval", h.adminToggleApproval)
		router.POST("/reviews/:id/toggle-verification", h.adminToggleVerification)
		router.POST("/reviews/:id/notes", h.adminModerationNotes)

		// Reports
		router.GET("/reports", h.adminListReports)
		router.POST("/reports/:id/resolve", h.adminResolveReport)
		router.POST("/reports/:id/dismiss", h.adminDismissReport)
	}
}

func (h *Handler) adminListUsers(c *gin.Context) {
	filter := services.UserListFilter{
		UserType: c.Query("user_type"),
		Search:   c.Query("search"),
	}
	if raw := c.Query("is_active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(c, types.NewValidationError("is_active", "must be true or false"))
			return
		}
		filter.IsActive = &active
	}

	p := paginationFrom(c)
	users, total, err := h.Accounts.ListUsers(filter, p)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, users, total, p)
}

func (h *Handler) adminUserStatistics(c *gin.Context) {
	stats, err := h.Accounts.UserStatistics()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": stats})
}

func (h *Handler) adminGetUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	user, err := h.Accounts.GetUser(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": user})
}

func (h *Handler) adminUpdateUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req models.AdminUserUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.Accounts.AdminUpdateUser(c.GetUint("user_id"), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	if !user.IsActive {
		if err := h.JWT.RevokeAllUserTokens(user.ID); err != nil {
			respondError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "User updated successfully",
		"data":    user,
	})
}

func (h *Handler) adminDeleteUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.Accounts.DeleteUser(c.GetUint("user_id"), id); err != nil {
		respondError(c, err)
		return
	}
	// Listings may have gone with the account
	h.Rentals.PurgeCache()
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}

func (h *Handler) adminVerifyUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	user, err := h.Accounts.VerifyUser(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "User verified successfully",
		"data":    user,
	})
}

func (h *Handler) adminToggleActive(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	user, err := h.Accounts.ToggleActive(c.GetUint("user_id"), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if !user.IsActive {
		if err := h.JWT.RevokeAllUserTokens(user.ID); err != nil {
			respondError(c, err)
			return
		}
	}

	status := "activated"
	if !user.IsActive {
		status = "deactivated"
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "User " + status + " successfully",
		"data":    user,
	})
}

func (h *Handler) adminRentalStatistics(c *gin.Context) {
	stats, err := h.Rentals.Statistics()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": stats})
}

func (h *Handler) adminToggleFeatured(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	rental, err := h.Rentals.ToggleFeatured(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":     "Featured flag updated",
		"is_featured": rental.IsFeatured,
	})
}

func (h *Handler) adminRentalStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req rentalStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	rental, err := h.Rentals.UpdateStatus(id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Rental status updated",
		"status":  rental.Status,
	})
}

func (h *Handler) adminListReviews(c *gin.Context) {
	filter, err := services.ParseAdminReviewFilter(c.Request.URL.Query())
	if err != nil {
		respondError(c, err)
		return
	}

	p := paginationFrom(c)
	reviews, total, err := h.Moderation.ListReviews(filter, p)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, reviews, total, p)
}

func (h *Handler) adminReviewStatistics(c *gin.Context) {
	stats, err := h.Moderation.Statistics()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": stats})
}

func (h *Handler) adminToggleApproval(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	review, err := h.Moderation.ToggleApproval(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":     "Review approval updated",
		"is_approved": review.IsApproved,
	})
}

func (h *Handler) adminToggleVerification(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	review, err := h.Moderation.ToggleVerification(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":     "Review verification updated",
		"is_verified": review.IsVerified,
	})
}

func (h *Handler) adminModerationNotes(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req moderationNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	review, err := h.Moderation.AddModerationNotes(id, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Moderation notes saved",
		"data":    review,
	})
}

func (h *Handler) adminListReports(c *gin.Context) {
	p := paginationFrom(c)
	reports, total, err := h.Moderation.ListReports(c.Query("status"), p)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, reports, total, p)
}

func (h *Handler) adminResolveReport(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req resolveReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	report, err := h.Moderation.Resolve(id, c.GetUint("user_id"), req.AdminAction)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Report resolved",
		"data":    report,
	})
}

func (h *Handler) adminDismissReport(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	report, err := h.Moderation.Dismiss(id, c.GetUint("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Report dismissed",
		"data":    report,
	})
}
