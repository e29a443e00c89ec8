// Package transport defines request and response DTOs for the auth HTTP API.
package transport

import "github.com/google/uuid"

type SignUpRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=64"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
	Team      string `json:"team" validate:"required,oneof=ADMIN SALES TECH"`
	IsManager bool   `json:"isManager"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UserPayload struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Team      string    `json:"team"`
	IsManager bool      `json:"isManager"`
}

type SignInResponse struct {
	AccessToken string      `json:"accessToken"`
	User        UserPayload `json:"user"`
}
