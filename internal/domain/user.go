package domain

import "time"

// UserRole distinguishes riders from administrators.
type UserRole string

const (
	UserRoleUser  UserRole = "USER"
	UserRoleAdmin UserRole = "ADMIN"
)

// User is the domain model for registered riders and admins.
type User struct {
	ID           string
	Email        string
	FullName     string
	PasswordHash string
	Role         UserRole
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
