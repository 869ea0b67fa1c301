package candidate

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Candidate is the structured record derived from one uploaded resume.
// It is created once and never mutated afterwards.
type Candidate struct {
	ID              uuid.UUID `json:"id"`
	OwnerID         uuid.UUID `json:"user_id"`
	Name            string    `json:"name"`
	Email           *string   `json:"email"`
	Phone           *string   `json:"phone"`
	ExperienceYears int       `json:"experience_years"`
	Skills          []string  `json:"skills"`
	Education       *string   `json:"education"`
	Summary         string    `json:"summary"`
	ResumeText      string    `json:"resume_text,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// FileStatus is the processing state recorded for an uploaded resume file.
type FileStatus string

const (
	FileStatusCompleted FileStatus = "completed"
	FileStatusFailed    FileStatus = "failed"
)

// ResumeFile records the upload provenance of a candidate: which file the
// record came from. Each file references exactly one candidate.
type ResumeFile struct {
	ID          uuid.UUID  `json:"id"`
	OwnerID     uuid.UUID  `json:"user_id"`
	CandidateID uuid.UUID  `json:"candidate_id"`
	Filename    string     `json:"filename"`
	FileSize    int64      `json:"file_size"`
	FileType    string     `json:"file_type"`
	Status      FileStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
}

var ErrNotFound = errors.New("candidate not found")

// Repository is the persistence port for candidates and resume files.
type Repository interface {
	Create(ctx context.Context, c Candidate) error
	CreateResumeFile(ctx context.Context, f ResumeFile) error
	GetForOwner(ctx context.Context, ownerID, id uuid.UUID) (Candidate, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]Candidate, error)
}
