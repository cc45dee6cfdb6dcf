package profile

import (
	"time"

	"govflow/authz"
)

// Profile is the domain representation of a reviewer identity. It
// mirrors the profiles table and carries no JSON annotations so it can
// be reused by different presentation layers.
type Profile struct {
	ID           string
	Email        string
	FullName     string
	PasswordHash string
	AccessLevel  authz.AccessLevel
	Role         authz.AccountRole
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RegisterRequest contains registration data supplied by callers.
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FullName    string `json:"full_name"`
	AccessLevel string `json:"access_level"`
	Role        string `json:"role"`
}

// LoginRequest contains login credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
