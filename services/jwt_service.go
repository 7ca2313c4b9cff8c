package services

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"rental-platform-server/config"
	"rental-platform-server/models"
	"rental-platform-server/types"
)

const tokenIssuer = "rental-platform-server"

var (
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenInvalid  = errors.New("refresh token is invalid or expired")
)

// JWTService handles JWT token operations
type JWTService struct {
	db         *gorm.DB
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewJWTService creates a new JWT service
func NewJWTService(db *gorm.DB, cfg config.JWTConfig) *JWTService {
	return &JWTService{
		db:         db,
		secret:     []byte(cfg.Secret),
		accessTTL:  time.Duration(cfg.ExpiryHours) * time.Hour,
		refreshTTL: time.Duration(cfg.RefreshExpiryDays) * 24 * time.Hour,
	}
}

// TokenPair represents a pair of access and refresh tokens
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// DeviceInfo is recorded on refresh tokens
type DeviceInfo struct {
	DeviceID  string
	UserAgent string
	IPAddress string
}

// GenerateTokenPair generates both access and refresh tokens
func (js *JWTService) GenerateTokenPair(user *models.User, device DeviceInfo) (*TokenPair, error) {
	return js.generateTokenPair(js.db, user, device)
}

func (js *JWTService) generateTokenPair(db *gorm.DB, user *models.User, device DeviceInfo) (*TokenPair, error) {
	accessToken, expiresIn, err := js.generateAccessToken(user)
	if err != nil {
		return nil, err
	}

	refreshToken, err := js.generateRefreshToken(db, user.ID, device)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
		TokenType:    "Bearer",
	}, nil
}

// generateAccessToken generates a short-lived access token
func (js *JWTService) generateAccessToken(user *models.User) (string, int64, error) {
	now := time.Now()
	claims := &types.Claims{
		UserID:   user.ID,
		UserType: string(user.UserType),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(js.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(js.secret)
	if err != nil {
		return "", 0, err
	}

	return tokenString, int64(js.accessTTL.Seconds()), nil
}

// generateRefreshToken stores an opaque random refresh token
func (js *JWTService) generateRefreshToken(db *gorm.DB, userID uint, device DeviceInfo) (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	tokenString := hex.EncodeToString(tokenBytes)

	refreshToken := &models.RefreshToken{
		Token:     tokenString,
		UserID:    userID,
		ExpiresAt: time.Now().Add(js.refreshTTL),
		DeviceID:  device.DeviceID,
		UserAgent: device.UserAgent,
		IPAddress: device.IPAddress,
	}
	if err := db.Create(refreshToken).Error; err != nil {
		return "", err
	}

	return tokenString, nil
}

// ValidateAccessToken parses and verifies an access token
func (js *JWTService) ValidateAccessToken(tokenString string) (*types.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &types.Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return js.secret, nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*types.Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// ValidateRefreshToken validates a refresh token
func (js *JWTService) ValidateRefreshToken(tokenString string) (*models.RefreshToken, error) {
	var refreshToken models.RefreshToken
	if err := js.db.Where("token = ?", tokenString).First(&refreshToken).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRefreshTokenNotFound
		}
		return nil, err
	}

	if !refreshToken.IsValid() {
		return nil, ErrRefreshTokenInvalid
	}
	return &refreshToken, nil
}

// RefreshTokenPair exchanges a refresh token for a new pair. The presented
// token is revoked in the same transaction, so it can be used only once.
func (js *JWTService) RefreshTokenPair(refreshTokenString string, device DeviceInfo) (*TokenPair, error) {
	var pair *TokenPair
	err := js.db.Transaction(func(tx *gorm.DB) error {
		var refreshToken models.RefreshToken
		if err := tx.Preload("User").Where("token = ?", refreshTokenString).First(&refreshToken).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRefreshTokenNotFound
			}
			return err
		}
		if !refreshToken.IsValid() {
			return ErrRefreshTokenInvalid
		}
		if refreshToken.User == nil || !refreshToken.User.IsActive {
			return ErrRefreshTokenInvalid
		}

		if err := refreshToken.Rotate(tx); err != nil {
			if errors.Is(err, models.ErrTokenAlreadyUsed) {
				return ErrRefreshTokenInvalid
			}
			return err
		}

		var err error
		pair, err = js.generateTokenPair(tx, refreshToken.User, device)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// RevokeRefreshToken revokes one of the user's refresh tokens
func (js *JWTService) RevokeRefreshToken(userID uint, tokenString string) error {
	result := js.db.Model(&models.RefreshToken{}).
		Where("token = ? AND user_id = ?", tokenString, userID).
		Update("is_revoked", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRefreshTokenNotFound
	}

	log.Printf("✅ Refresh token revoked for user %d", userID)
	return nil
}

// RevokeAllUserTokens revokes all refresh tokens for a user
func (js *JWTService) RevokeAllUserTokens(userID uint) error {
	if err := js.db.Model(&models.RefreshToken{}).
		Where("user_id = ? AND is_revoked = ?", userID, false).
		Update("is_revoked", true).Error; err != nil {
		return err
	}

	log.Printf("✅ All refresh tokens revoked for user %d", userID)
	return nil
}

// CleanupExpiredTokens removes expired and revoked refresh tokens
func (js *JWTService) CleanupExpiredTokens() (int64, error) {
	result := js.db.Where("expires_at < ? OR is_revoked = ?", time.Now(), true).
		Delete(&models.RefreshToken{})
	if result.Error != nil {
		return 0, result.Error
	}

	log.Printf("✅ Cleaned up %d refresh tokens", result.RowsAffected)
	return result.RowsAffected, nil
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash compares a password with its hash
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
