package routes

import (
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"rental-platform-server/middleware"
	"rental-platform-server/services"
	"rental-platform-server/types"
)

const maxImageSize = 5 * 1024 * 1024

// validateImageFile validates extension and size (<= 5MB)
func validateImageFile(h *multipart.FileHeader) bool {
	if h == nil || h.Size <= 0 || h.Size > maxImageSize {
		return false
	}
	switch strings.ToLower(filepath.Ext(h.Filename)) {
	case ".jpg", ".jpeg", ".png", ".webp":
		return true
	default:
		return false
	}
}

// uploadRentalImage accepts a multipart "image" with optional caption, is_primary and order
func (h *Handler) uploadRentalImage(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := c.Request.ParseMultipartForm(10 << 20); err != nil { // 10MB
		respondError(c, types.NewValidationError("image", "invalid form data"))
		return
	}
	header, err := c.FormFile("image")
	if err != nil {
		respondError(c, types.NewValidationError("image", "an image file is required"))
		return
	}
	if !validateImageFile(header) {
		respondError(c, types.NewValidationError("image", "image must be a jpg, jpeg, png or webp file of at most 5MB"))
		return
	}

	meta := services.ImageMeta{Caption: c.PostForm("caption")}
	meta.IsPrimary, _ = strconv.ParseBool(c.PostForm("is_primary"))
	if raw := c.PostForm("order"); raw != "" {
		order, err := strconv.Atoi(raw)
		if err != nil || order < 0 {
			respondError(c, types.NewValidationError("order", "must be a non-negative integer"))
			return
		}
		meta.Order = order
	}

	file, err := header.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer file.Close()

	image, err := h.Media.AddImage(c.Request.Context(), middleware.CurrentUser(c), id, file, meta)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Image uploaded successfully",
		"data":    image,
	})
}

func (h *Handler) setPrimaryImage(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	imageID, ok := parseID(c, "imageId")
	if !ok {
		return
	}

	image, err := h.Media.SetPrimary(middleware.CurrentUser(c), id, imageID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Primary image updated",
		"data":    image,
	})
}

func (h *Handler) deleteRentalImage(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	imageID, ok := parseID(c, "imageId")
	if !ok {
		return
	}

	if err := h.Media.DeleteImage(c.Request.Context(), middleware.CurrentUser(c), id, imageID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Image deleted successfully"})
}
