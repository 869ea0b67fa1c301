package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a job posting. Only Active postings take
// part in candidate-triggered matching.
type Status string

const (
	StatusActive Status = "Active"
	StatusDraft  Status = "Draft"
	StatusClosed Status = "Closed"
)

// ParseStatus validates a raw status string.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusActive, StatusDraft, StatusClosed:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown job status %q", s)
}

// Posting describes an open role authored by a recruiter.
// MatchedCandidates is denormalized and always derived from the count of
// stored matches for the posting, never written from a partial view.
type Posting struct {
	ID                uuid.UUID `json:"id"`
	OwnerID           uuid.UUID `json:"user_id"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	Requirements      string    `json:"requirements"`
	Skills            []string  `json:"skills"`
	Status            Status    `json:"status"`
	MatchedCandidates int       `json:"matched_candidates"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

var ErrNotFound = errors.New("job posting not found")

// Repository is the persistence port for job postings. All reads and writes
// are scoped to the owning user.
type Repository interface {
	Create(ctx context.Context, p Posting) error
	GetForOwner(ctx context.Context, ownerID, id uuid.UUID) (Posting, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]Posting, error)
	ListActiveByOwner(ctx context.Context, ownerID uuid.UUID) ([]Posting, error)
	UpdateForOwner(ctx context.Context, p Posting) error
	DeleteForOwner(ctx context.Context, ownerID, id uuid.UUID) error
}
