package models

import (
	"strings"
	"time"
)

type UserRole string

const (
	RoleAdmin           UserRole = "admin"
	RolePrimaryDelegate UserRole = "primary_delegate"
	RoleDelegate        UserRole = "delegate"
)

type User struct {
	ID           int       `json:"id" db:"id"`
	FirstName    string    `json:"first_name" db:"first_name"`
	LastName     string    `json:"last_name" db:"last_name"`
	Email        string    `json:"email" db:"email"`
	Phone        *string   `json:"phone,omitempty" db:"phone"`
	ClubID       *int      `json:"club_id,omitempty" db:"club_id"`
	Role         UserRole  `json:"role" db:"role"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// BelongsTo reports whether the user is linked to clubID.
func (u *User) BelongsTo(clubID int) bool {
	return u.ClubID != nil && *u.ClubID == clubID
}
