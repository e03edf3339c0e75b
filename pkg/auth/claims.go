package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// Role is the shopper's account role.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	}
	return false
}

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID   string
	Email    string
	Role     Role
	Provider string
	JTI      string
}

// AccessTokenClaims represents the typed JWT issued to the shopper.
type AccessTokenClaims struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	Provider string `json:"provider,omitempty"`
	jwt.RegisteredClaims
}
