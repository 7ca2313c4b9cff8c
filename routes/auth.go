package routes

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"rental-platform-server/middleware"
	"rental-platform-server/models"
	"rental-platform-server/services"
)

// LoginRequest represents the sign in request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	DeviceID string `json:"device_id"`
}

// RefreshRequest carries a refresh token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
	DeviceID     string `json:"device_id"`
}

// LogoutRequest revokes one refresh token, or all of them when empty
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// VerifyRequest carries an access token to check
type VerifyRequest struct {
	Token string `json:"token" binding:"required"`
}

// ChangePasswordRequest represents a password change
type ChangePasswordRequest struct {
	OldPassword        string `json:"old_password" binding:"required"`
	NewPassword        string `json:"new_password" binding:"required,min=8,max=128"`
	NewPasswordConfirm string `json:"new_password_confirm" binding:"required"`
}

// AuthResponse represents the authentication response
type AuthResponse struct {
	*services.TokenPair
	User *models.User `json:"user"`
}

// RegisterAuthRoutes registers authentication and account routes
func (h *Handler) RegisterAuthRoutes(router *gin.RouterGroup, auth *middleware.Authenticator) {
	public := router.Group("")
	if h.RateLimiter != nil {
		public.Use(middleware.AuthRateLimitMiddleware(h.RateLimiter))
	}
	public.POST("/register", h.register)
	public.POST("/login", h.login)
	public.POST("/token/refresh", h.refreshToken)
	public.POST("/token/verify", h.verifyToken)

	protected := router.Group("")
	protected.Use(auth.AuthMiddleware())
	protected.POST("/logout", h.logout)
	protected.GET("/me", h.me)
	protected.GET("/profile", h.me)
	protected.PATCH("/profile", h.updateProfile)
	protected.GET("/preferences", h.getPreferences)
	protected.PATCH("/preferences", h.updatePreferences)
	protected.POST("/change-password", h.changePassword)
}

func deviceFrom(c *gin.Context, deviceID string) services.DeviceInfo {
	return services.DeviceInfo{
		DeviceID:  deviceID,
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	}
}

// register handles user registration
func (h *Handler) register(c *gin.Context) {
	var req models.UserRegistration
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.Accounts.Register(req)
	if err != nil {
		respondError(c, err)
		return
	}

	tokens, err := h.JWT.GenerateTokenPair(user, deviceFrom(c, ""))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"data":    AuthResponse{TokenPair: tokens, User: user},
	})
}

// login authenticates with email and password. Older sessions are revoked.
func (h *Handler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.Accounts.Authenticate(req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.JWT.RevokeAllUserTokens(user.ID); err != nil {
		log.Printf("⚠️ Failed to revoke old tokens for user %d: %v", user.ID, err)
	}
	tokens, err := h.JWT.GenerateTokenPair(user, deviceFrom(c, req.DeviceID))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"data":    AuthResponse{TokenPair: tokens, User: user},
	})
}

// refreshToken rotates a refresh token into a new pair
func (h *Handler) refreshToken(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	tokens, err := h.JWT.RefreshTokenPair(req.RefreshToken, deviceFrom(c, req.DeviceID))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Token refreshed successfully",
		"data":    tokens,
	})
}

func (h *Handler) verifyToken(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	claims, err := h.JWT.ValidateAccessToken(req.Token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "Invalid token",
			"message": "Token is invalid or expired",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":      true,
		"user_id":    claims.UserID,
		"user_type":  claims.UserType,
		"expires_at": claims.ExpiresAt,
	})
}

func (h *Handler) logout(c *gin.Context) {
	var req LogoutRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
	}

	userID := c.GetUint("user_id")
	var err error
	if req.RefreshToken != "" {
		err = h.JWT.RevokeRefreshToken(userID, req.RefreshToken)
	} else {
		err = h.JWT.RevokeAllUserTokens(userID)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (h *Handler) me(c *gin.Context) {
	user, err := h.Accounts.GetUser(c.GetUint("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": user})
}

func (h *Handler) updateProfile(c *gin.Context) {
	var req models.UserUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.Accounts.UpdateProfile(c.GetUint("user_id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Profile updated successfully",
		"data":    user,
	})
}

func (h *Handler) getPreferences(c *gin.Context) {
	profile, err := h.Accounts.GetPreferences(c.GetUint("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": profile})
}

func (h *Handler) updatePreferences(c *gin.Context) {
	var req models.UserUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	profile, err := h.Accounts.UpdatePreferences(c.GetUint("user_id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Preferences updated successfully",
		"data":    profile,
	})
}

func (h *Handler) changePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	userID := c.GetUint("user_id")
	if err := h.Accounts.ChangePassword(userID, req.OldPassword, req.NewPassword, req.NewPasswordConfirm); err != nil {
		respondError(c, err)
		return
	}
	if err := h.JWT.RevokeAllUserTokens(userID); err != nil {
		log.Printf("⚠️ Failed to revoke tokens after password change for user %d: %v", userID, err)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}
