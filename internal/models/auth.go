package models

import "github.com/golang-jwt/jwt/v5"

// UserRole mirrors the platform-wide role claim carried in access tokens.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleStaff   UserRole = "STAFF"
	RoleTeacher UserRole = "TEACHER"
)

// JWTClaims are the claims embedded in platform-issued access tokens. This
// service only validates tokens; issuing happens in the identity service.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	Email  string   `json:"email"`
	jwt.RegisteredClaims
}
