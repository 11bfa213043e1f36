package auth

import (
	"time"

	"github.com/google/uuid"
)

// LoginRequest carries the admin credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest rotates an expired access token using its refresh pair.
type RefreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LogoutRequest revokes the session tied to the access token.
type LogoutRequest struct {
	AccessToken string `json:"access_token" validate:"required"`
}

// AdminSummary is the admin identity returned on login.
type AdminSummary struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// LoginResponse is the issued token pair plus the admin identity.
type LoginResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	Admin        AdminSummary `json:"admin"`
}

// TokenPairResponse is the result of a refresh rotation.
type TokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
