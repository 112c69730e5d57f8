package domain

import "time"

// User is keyed by the lowercased email and never changes after registration.
type User struct {
	UserID       string    `json:"userId" dynamodbav:"user_id"`
	Email        string    `json:"email" dynamodbav:"email"`
	Name         string    `json:"name" dynamodbav:"name"`
	PasswordHash string    `json:"-" dynamodbav:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" dynamodbav:"created_at"`
}

// Identity is the authenticated caller resolved from a bearer token.
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

func (u *User) Identity() Identity {
	return Identity{UserID: u.UserID, Email: u.Email, Name: u.Name}
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,password"`
	Name     string `json:"name" validate:"required,min=1,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=72"`
}
