package model

import (
	"github.com/google/uuid"
)

// AuthRequest types
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=6"`
	FullName string `json:"fullName" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
}

// AuthResponse types
type AuthResponse struct {
	Token    string `json:"token"`
	Type     string `json:"type"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Message  string `json:"message"`
}

// Identity is the authenticated caller as seen by the services.
type Identity struct {
	UserID   uuid.UUID `json:"-"`
	Username string    `json:"username"`
	FullName string    `json:"fullName"`
	Email    string    `json:"email"`
}

func NewIdentity(u *User) *Identity {
	return &Identity{
		UserID:   u.ID,
		Username: u.Username,
		FullName: u.FullName,
		Email:    u.Email,
	}
}
