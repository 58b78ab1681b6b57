package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Role string

const (
	RoleUser   Role = "user"
	RoleGuide  Role = "guide"
	RoleAgency Role = "agency"
	RoleAdmin  Role = "admin"
)

type UserStatus string

const (
	UserActive   UserStatus = "active"
	UserInactive UserStatus = "inactive"
	UserBanned   UserStatus = "banned"
)

type User struct {
	bun.BaseModel `bun:"table:users"`

	ID           string     `bun:"id,pk" json:"id"`
	Email        string     `bun:"email,unique,nullzero" json:"email,omitempty"`
	Phone        string     `bun:"phone,unique,nullzero" json:"phone,omitempty"`
	PasswordHash string     `bun:"password_hash,nullzero" json:"-"`
	FullName     string     `bun:"full_name" json:"fullName"`
	Role         Role       `bun:"role,notnull" json:"role"`
	Status       UserStatus `bun:"status,notnull" json:"status"`
	AuthProvider string     `bun:"auth_provider,notnull" json:"authProvider"`
	CreatedAt    time.Time  `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt    time.Time  `bun:"updated_at,notnull" json:"updatedAt"`
}

type UserFilter struct {
	Role   string
	Status string
	Search string
	Page   int
	Limit  int
}

type UserStats struct {
	Total    int            `json:"total"`
	ByRole   map[string]int `json:"byRole"`
	ByStatus map[string]int `json:"byStatus"`
}
