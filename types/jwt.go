package types

import "github.com/golang-jwt/jwt/v5"

// Claims represents the JWT claims carried by access tokens
type Claims struct {
	UserID   uint   `json:"user_id"`
	UserType string `json:"user_type"`
	jwt.RegisteredClaims
}
