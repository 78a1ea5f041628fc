package models

import (
	"strings"
	"time"
)

// UserRole enumerates the privilege levels a forum member can hold.
type UserRole string

const (
	RoleUser   UserRole = "USER"
	RoleAdmin  UserRole = "ADMIN"
	RoleBanned UserRole = "BANNED"
)

// ParseUserRole normalises a role string, reporting whether it is known.
func ParseUserRole(value string) (UserRole, bool) {
	switch role := UserRole(strings.ToUpper(strings.TrimSpace(value))); role {
	case RoleUser, RoleAdmin, RoleBanned:
		return role, true
	default:
		return "", false
	}
}

// User represents a registered forum member.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Role      UserRole  `gorm:"size:16;not null;default:USER" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user holds moderation privileges.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsBanned reports whether the user was banned by a moderator.
func (u User) IsBanned() bool {
	return u.Role == RoleBanned
}
