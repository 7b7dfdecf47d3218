package postgres

import "time"

type accountRow struct {
	ID                string
	Email             string
	Name              string
	PasswordHash      string
	PasswordChangedAt *time.Time
	CreatedAt         time.Time
}
