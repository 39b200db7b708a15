package domain

import "time"

// User is an opaque borrower reference. Identity management lives outside
// this service; only the id and display name are ever read.
type User struct {
	ID        string    `json:"id" db:"id"`
	FullName  string    `json:"full_name" db:"full_name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
