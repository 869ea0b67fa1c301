package match

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Match is a scored association between one job posting and one candidate.
// A (job, candidate) pair is matched at most once; re-matching is skipped,
// not refreshed.
type Match struct {
	ID             uuid.UUID `json:"id"`
	OwnerID        uuid.UUID `json:"user_id"`
	JobPostingID   uuid.UUID `json:"job_posting_id"`
	CandidateID    uuid.UUID `json:"candidate_id"`
	Score          int       `json:"match_score"`
	Explanation    string    `json:"explanation"`
	MatchingSkills []string  `json:"matching_skills"`
	MissingSkills  []string  `json:"missing_skills"`
	CreatedAt      time.Time `json:"created_at"`
}

// TaskStatus is the lifecycle of a durable matching work item.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskProcessing TaskStatus = "processing"
	TaskDone       TaskStatus = "done"
	TaskFailed     TaskStatus = "failed"
)

// Task is one durable "match this candidate against the user's active jobs"
// work item, written when a resume is processed and drained by the Worker.
// It replaces a fire-and-forget goroutine: failures are retried and the
// outcome is observable.
type Task struct {
	ID          uuid.UUID  `json:"id"`
	OwnerID     uuid.UUID  `json:"user_id"`
	CandidateID uuid.UUID  `json:"candidate_id"`
	Status      TaskStatus `json:"status"`
	Attempts    int        `json:"attempts"`
	LastError   string     `json:"last_error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

var ErrTaskNotFound = errors.New("match task not found")

// Repository is the persistence port for matches and match tasks.
type Repository interface {
	// Create inserts a match unless the (job, candidate) pair already
	// exists; it reports whether a row was actually written.
	Create(ctx context.Context, m Match) (bool, error)
	Exists(ctx context.Context, jobPostingID, candidateID uuid.UUID) (bool, error)
	ListByJobForOwner(ctx context.Context, ownerID, jobPostingID uuid.UUID, limit, offset int) ([]Match, error)
	// RefreshMatchedCount re-derives the posting's matched_candidates from
	// the stored matches and returns the fresh value.
	RefreshMatchedCount(ctx context.Context, jobPostingID uuid.UUID) (int, error)

	EnqueueTask(ctx context.Context, t Task) error
	// ClaimTasks atomically moves up to limit claimable tasks with fewer
	// than maxAttempts attempts into processing and returns them. Claimable
	// means: pending and never attempted, pending and past the store's
	// retry cooldown, or processing with a claim old enough that its worker
	// must have died before finishing.
	ClaimTasks(ctx context.Context, limit, maxAttempts int) ([]Task, error)
	CompleteTask(ctx context.Context, id uuid.UUID) error
	// FailTask records an attempt; retry re-queues the task, otherwise it is
	// marked failed terminally.
	FailTask(ctx context.Context, id uuid.UUID, attempts int, lastError string, retry bool) error
	GetTaskForOwner(ctx context.Context, ownerID, id uuid.UUID) (Task, error)
}
