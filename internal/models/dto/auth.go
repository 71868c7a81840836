package dto

import "github.com/hongminglow/parkshare/internal/models"

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest accepts either identifier or username; both match a username or an email.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Username   string `json:"username"`
	Password   string `json:"password"`
}

type AuthResponse struct {
	Token string             `json:"token"`
	User  models.UserSummary `json:"user"`
}
