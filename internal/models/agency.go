package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Agency struct {
	bun.BaseModel `bun:"table:agencies"`

	ID          string    `bun:"id,pk" json:"id"`
	Name        string    `bun:"name,notnull" json:"name"`
	Email       string    `bun:"email,nullzero" json:"email,omitempty"`
	Phone       string    `bun:"phone,nullzero" json:"phone,omitempty"`
	Address     string    `bun:"address,nullzero" json:"address,omitempty"`
	Description string    `bun:"description,nullzero" json:"description,omitempty"`
	Status      string    `bun:"status,notnull" json:"status"`
	CreatedAt   time.Time `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt   time.Time `bun:"updated_at,notnull" json:"updatedAt"`

	EmployeeCount int `bun:"employee_count,scanonly" json:"employeeCount"`
}

type AgencyEmployee struct {
	bun.BaseModel `bun:"table:agency_employees"`

	ID        string    `bun:"id,pk" json:"id"`
	AgencyID  string    `bun:"agency_id,notnull" json:"agencyId"`
	FullName  string    `bun:"full_name,notnull" json:"fullName"`
	Email     string    `bun:"email,nullzero" json:"email,omitempty"`
	Phone     string    `bun:"phone,nullzero" json:"phone,omitempty"`
	Position  string    `bun:"position,nullzero" json:"position,omitempty"`
	Status    string    `bun:"status,notnull" json:"status"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"createdAt"`
}

type AgencyStats struct {
	Total     int `json:"total"`
	Active    int `json:"active"`
	Inactive  int `json:"inactive"`
	Employees int `json:"employees"`
}

type AgencyInput struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

type EmployeeInput struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Position string `json:"position"`
	Status   string `json:"status"`
}

type AgencyFilter struct {
	Status string
	Search string
	Page   int
	Limit  int
}
