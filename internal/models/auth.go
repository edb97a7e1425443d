package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a student.
type LoginRequest struct {
	RollNumber string `json:"roll_number" validate:"required"`
	Password   string `json:"password" validate:"required"`
	IP         string `json:"-"`
	UserAgent  string `json:"-"`
}

// RegisterRequest creates a new account. The initial password is derived
// server-side as the uppercase roll number; callers never supply one.
type RegisterRequest struct {
	RollNumber string `json:"roll_number" validate:"required,alphanum,min=5,max=20"`
	IP         string `json:"-"`
	UserAgent  string `json:"-"`
}

// AuthResponse returns the issued tokens and user info.
type AuthResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	User         UserInfo  `json:"user"`
	IssuedAt     time.Time `json:"issued_at"`
}

// RefreshTokenRequest exchanges a refresh token for a new access token.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	IP           string `json:"-"`
	UserAgent    string `json:"-"`
}

// UserInfo describes the authenticated student in responses.
type UserInfo struct {
	ID         string `json:"id"`
	RollNumber string `json:"roll_number"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID     string `json:"user_id"`
	RollNumber string `json:"roll_number"`
	jwt.RegisteredClaims
}
