package domain

import "time"

// Account is a registered principal. Email is stored normalized
// (lowercased, trimmed) and is unique across the store.
type Account struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
}
