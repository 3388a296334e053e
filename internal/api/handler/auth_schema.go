package handler

import "github.com/shogunlabs/reports-api/internal/core/ports"

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type signupRequest struct {
	Username    string   `json:"username"     validate:"required,min=3"`
	Password    string   `json:"password"     validate:"required,min=8"`
	DisplayName string   `json:"display_name"`
	Email       string   `json:"email"        validate:"omitempty,email"`
	Phone       string   `json:"phone"`
	Roles       []string `json:"roles"`
}

type recoverRequest struct {
	Username string `json:"username"`
	Email    string `json:"email" validate:"omitempty,email"`
	Message  string `json:"message"`
}

type leadRequest struct {
	Name    string `json:"name"    validate:"required"`
	Email   string `json:"email"   validate:"required,email"`
	Message string `json:"message" validate:"required"`
}

type authResponse struct {
	Token string             `json:"token,omitempty"`
	User  *ports.SessionUser `json:"user,omitempty"`
}

type okResponse struct {
	OK bool `json:"ok"`
}
