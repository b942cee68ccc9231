package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the JWT payload for access tokens. Institution scope
// is empty for site admins (they operate across tenants).
type JWTClaims struct {
	UserID               string   `json:"user_id"`
	Email                string   `json:"email"`
	Role                 UserRole `json:"role"`
	InstitutionShortName string   `json:"institution_short_name"`
	jwt.RegisteredClaims
}
