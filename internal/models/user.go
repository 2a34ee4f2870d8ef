package models

import "strings"

// User represents a user in the system
type User struct {
	ID           string `json:"id" gorm:"type:uuid;primaryKey"`
	Email        string `json:"email" gorm:"uniqueIndex;size:320;not null"`
	Name         string `json:"name" gorm:"size:120;not null"`
	PasswordHash string `json:"-" gorm:"size:255;not null"` // Not serialized
}

// NormalizeEmail lowercases and trims an email so lookups and the unique index agree.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RegisterRequest is the JSON body for POST /api/auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// LoginRequest is the JSON body for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}
