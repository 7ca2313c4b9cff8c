package middleware

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"rental-platform-server/models"
	"rental-platform-server/services"
)

// Authenticator resolves bearer tokens to active users
type Authenticator struct {
	jwt *services.JWTService
	db  *gorm.DB
}

func NewAuthenticator(jwt *services.JWTService, db *gorm.DB) *Authenticator {
	return &Authenticator{jwt: jwt, db: db}
}

// userFromToken validates the token and loads the active user it names
func (a *Authenticator) userFromToken(tokenString string) (*models.User, string) {
	claims, err := a.jwt.ValidateAccessToken(tokenString)
	if err != nil {
		return nil, "Token is invalid or expired"
	}

	var user models.User
	if err := a.db.First(&user, claims.UserID).Error; err != nil {
		return nil, "User associated with token not found"
	}
	if !user.IsActive {
		return nil, "User account is deactivated"
	}
	return &user, ""
}

// AuthMiddleware validates JWT tokens and sets user context
func (a *Authenticator) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Authorization header required",
				"message": "Please provide a valid token",
			})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid token format",
				"message": "Token must be in format: Bearer <token>",
			})
			c.Abort()
			return
		}

		user, problem := a.userFromToken(tokenString)
		if user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid token",
				"message": problem,
			})
			c.Abort()
			return
		}

		c.Set("user", user)
		c.Set("user_id", user.ID)
		c.Next()
	}
}

// OptionalAuthMiddleware is like AuthMiddleware but doesn't require authentication
func (a *Authenticator) OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if tokenString == "" || tokenString == c.GetHeader("Authorization") {
			c.Next()
			return
		}

		if user, _ := a.userFromToken(tokenString); user != nil {
			c.Set("user", user)
			c.Set("user_id", user.ID)
		}
		c.Next()
	}
}

// WebSocketAuthMiddleware validates JWT tokens from query parameters for WebSocket connections
func (a *Authenticator) WebSocketAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.Query("token")
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Token required",
				"message": "Please provide a valid token in query parameters",
			})
			c.Abort()
			return
		}

		user, problem := a.userFromToken(tokenString)
		if user == nil {
			log.Printf("🔌 WebSocket auth rejected: %s", problem)
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid token",
				"message": problem,
			})
			c.Abort()
			return
		}

		c.Set("user", user)
		c.Set("user_id", user.ID)
		c.Next()
	}
}

// RequireUserType allows only the listed user types through. Must run after AuthMiddleware.
func RequireUserType(allowed ...models.UserType) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Authentication required",
				"message": "Please log in",
			})
			c.Abort()
			return
		}

		for _, t := range allowed {
			if user.UserType == t {
				c.Next()
				return
			}
		}

		c.JSON(http.StatusForbidden, gin.H{
			"error":   "Access denied",
			"message": "You do not have permission to perform this action",
		})
		c.Abort()
	}
}

// AdminOnly restricts a group to admins
func AdminOnly() gin.HandlerFunc {
	return RequireUserType(models.UserTypeAdmin)
}

// CurrentUser returns the authenticated user, or nil
func CurrentUser(c *gin.Context) *models.User {
	value, exists := c.Get("user")
	if !exists {
		return nil
	}
	user, _ := value.(*models.User)
	return user
}
