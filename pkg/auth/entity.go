package auth

import (
	"time"

	"github.com/google/uuid"
)

// User is a domain entity representing a recruiter account. Every job
// posting, candidate and match in the system is scoped to exactly one user.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
