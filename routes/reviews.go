package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rental-platform-server/middleware"
	"rental-platform-server/models"
	"rental-platform-server/services"
)

type voteRequest struct {
	IsHelpful *bool `json:"is_helpful" binding:"required"`
}

type reportRequest struct {
	Reason      string `json:"reason" binding:"required"`
	Description string `json:"description" binding:"max=1000"`
}

type respondRequest struct {
	Response string `json:"response" binding:"required,max=1000"`
}

// RegisterReviewRoutes registers review, voting, reporting and response routes
func (h *Handler) RegisterReviewRoutes(router *gin.RouterGroup, auth *middleware.Authenticator) {
	// Public routes
	router.GET("", h.listReviews)
	router.GET("/recent", h.recentReviews)
	router.GET("/top-rated", h.topRatedReviews)
	router.GET("/rental/:rentalId", h.rentalReviews)
	router.GET("/rental/:rentalId/stats", h.rentalReviewStats)
	router.GET("/:id", auth.OptionalAuthMiddleware(), h.getReview)

	// Protected routes
	protected := router.Group("")
	protected.Use(auth.AuthMiddleware())
	{
		protected.GET("/mine", h.myReviews)
		protected.POST("", middleware.RequireUserType(models.UserTypeTenant), h.createReview)
		protected.PUT("/:id", h.updateReview)
		protected.DELETE("/:id", h.deleteReview)
		protected.POST("/:id/vote", h.voteReview)
		protected.DELETE("/:id/vote", h.removeVote)
		protected.POST("/:id/report", h.reportReview)
		protected.POST("/:id/respond", middleware.RequireUserType(models.UserTypeLandlord), h.respondToReview)
	}
}

func (h *Handler) listReviews(c *gin.Context) {
	filter, err := services.ParseReviewFilter(c.Request.URL.Query())
	if err != nil {
		respondError(c, err)
		return
	}

	p := paginationFrom(c)
	reviews, total, err := h.Reviews.List(filter, p)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, reviews, total, p)
}

func (h *Handler) recentReviews(c *gin.Context) {
	reviews, err := h.Reviews.Recent()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": reviews})
}

func (h *Handler) topRatedReviews(c *gin.Context) {
	reviews, err := h.Reviews.TopRated()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": reviews})
}

func (h *Handler) rentalReviews(c *gin.Context) {
	rentalID, ok := parseID(c, "rentalId")
	if !ok {
		return
	}
	filter, err := services.ParseReviewFilter(c.Request.URL.Query())
	if err != nil {
		respondError(c, err)
		return
	}

	p := paginationFrom(c)
	reviews, total, err := h.Reviews.ForRental(rentalID, filter, p)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, reviews, total, p)
}

func (h *Handler) rentalReviewStats(c *gin.Context) {
	rentalID, ok := parseID(c, "rentalId")
	if !ok {
		return
	}

	stats, err := h.Reviews.RentalStats(rentalID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": stats})
}

func (h *Handler) getReview(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	review, err := h.Reviews.Get(id, middleware.CurrentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": review})
}

func (h *Handler) myReviews(c *gin.Context) {
	p := paginationFrom(c)
	reviews, total, err := h.Reviews.MyReviews(c.GetUint("user_id"), p)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, reviews, total, p)
}

func (h *Handler) createReview(c *gin.Context) {
	var req models.ReviewInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	review, err := h.Reviews.Create(middleware.CurrentUser(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Review created successfully",
		"data":    review,
	})
}

func (h *Handler) updateReview(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req models.ReviewInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	review, err := h.Reviews.Update(middleware.CurrentUser(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Review updated successfully",
		"data":    review,
	})
}

func (h *Handler) deleteReview(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.Reviews.Delete(middleware.CurrentUser(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Review deleted successfully"})
}

// voteReview records or overwrites the caller's helpfulness vote
func (h *Handler) voteReview(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	review, err := h.Helpfulness.Vote(id, c.GetUint("user_id"), *req.IsHelpful)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":                "Vote recorded",
		"helpful_votes":          review.HelpfulVotes,
		"total_votes":            review.TotalVotes,
		"helpfulness_percentage": review.HelpfulnessPercent,
	})
}

func (h *Handler) removeVote(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	review, err := h.Helpfulness.RemoveVote(id, c.GetUint("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":                "Vote removed",
		"helpful_votes":          review.HelpfulVotes,
		"total_votes":            review.TotalVotes,
		"helpfulness_percentage": review.HelpfulnessPercent,
	})
}

func (h *Handler) reportReview(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req reportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	report, err := h.Moderation.Report(id, c.GetUint("user_id"), req.Reason, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Review reported successfully",
		"data":    report,
	})
}

func (h *Handler) respondToReview(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req respondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	review, err := h.Moderation.Respond(id, c.GetUint("user_id"), req.Response)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Response added successfully",
		"data":    review,
	})
}
