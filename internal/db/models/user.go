// Package models defines the persistence-layer entities for the station registry.
package models

import "time"

// User represents a registered account. Username and email are stored
// lower-cased and are unique case-insensitively.
//
// PasswordHash is tagged `json:"-"` so no handler can leak it by serializing a
// User directly; it is populated only by the repository lookups that need it
// for password verification.
type User struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}
