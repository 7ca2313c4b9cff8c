package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rental-platform-server/middleware"
	"rental-platform-server/models"
)

type inquiryReplyRequest struct {
	Reply string `json:"reply" binding:"required,max=2000"`
}

type inquiryStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// RegisterInquiryRoutes registers tenant to landlord messaging
func (h *Handler) RegisterInquiryRoutes(router *gin.RouterGroup, auth *middleware.Authenticator) {
	router.Use(auth.AuthMiddleware())
	{
		router.GET("", h.listInquiries)
		router.POST("", middleware.RequireUserType(models.UserTypeTenant), h.createInquiry)
		router.GET("/:id", h.getInquiry)
		router.POST("/:id/reply", middleware.RequireUserType(models.UserTypeLandlord), h.replyInquiry)
		router.PATCH("/:id/status", middleware.RequireUserType(models.UserTypeLandlord), h.updateInquiryStatus)
	}
}

func (h *Handler) listInquiries(c *gin.Context) {
	p := paginationFrom(c)
	inquiries, total, err := h.Inquiries.List(middleware.CurrentUser(c), c.Query("status"), p)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, inquiries, total, p)
}

func (h *Handler) createInquiry(c *gin.Context) {
	var req models.InquiryCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	inquiry, err := h.Inquiries.Create(middleware.CurrentUser(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Inquiry sent successfully",
		"data":    inquiry,
	})
}

func (h *Handler) getInquiry(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	inquiry, err := h.Inquiries.Get(middleware.CurrentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": inquiry})
}

func (h *Handler) replyInquiry(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req inquiryReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	inquiry, err := h.Inquiries.Reply(middleware.CurrentUser(c), id, req.Reply)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Reply sent successfully",
		"data":    inquiry,
	})
}

func (h *Handler) updateInquiryStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req inquiryStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	inquiry, err := h.Inquiries.UpdateStatus(middleware.CurrentUser(c), id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Inquiry status updated",
		"data":    inquiry,
	})
}
