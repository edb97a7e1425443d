package models

import "time"

// User represents a registered student stored in the users table.
// The roll number is the institutional identifier used as the username.
type User struct {
	ID           string     `db:"id" json:"id"`
	RollNumber   string     `db:"roll_number" json:"roll_number"`
	PasswordHash string     `db:"password_hash" json:"-"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
