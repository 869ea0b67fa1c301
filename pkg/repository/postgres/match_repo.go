package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/talentmatch/backend/pkg/match"
)

// Claim policy for match tasks. A retried task waits out a cooldown before
// it can be claimed again, so its remaining attempts are not burned
// back-to-back against the same upstream outage. A processing claim older
// than the stale window belongs to a worker that died mid-task and is
// reclaimed by the next sweep.
const (
	taskRetryCooldown = time.Minute
	taskStaleAfter    = 5 * time.Minute
)

// MatchRepository stores job matches and the durable match task queue.
type MatchRepository struct {
	pool *pgxpool.Pool
}

func NewMatchRepository(pool *pgxpool.Pool) (*MatchRepository, error) {
	r := &MatchRepository{pool: pool}
	if err := r.ensureSchema(context.Background()); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *MatchRepository) ensureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS job_matches (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL,
	job_posting_id UUID NOT NULL REFERENCES job_postings(id) ON DELETE CASCADE,
	candidate_id UUID NOT NULL REFERENCES candidates(id) ON DELETE CASCADE,
	match_score INT NOT NULL CHECK (match_score >= 0 AND match_score <= 100),
	explanation TEXT NOT NULL DEFAULT '',
	matching_skills TEXT[] NOT NULL DEFAULT '{}',
	missing_skills TEXT[] NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL,
	UNIQUE (job_posting_id, candidate_id)
);
CREATE INDEX IF NOT EXISTS idx_job_matches_owner ON job_matches(user_id);
CREATE TABLE IF NOT EXISTS match_tasks (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL,
	candidate_id UUID NOT NULL REFERENCES candidates(id) ON DELETE CASCADE,
	status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'processing', 'done', 'failed')),
	attempts INT NOT NULL DEFAULT 0,
	last_error TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_match_tasks_status ON match_tasks(status, created_at);
`)
	return err
}

// Create inserts a match; the unique (job_posting_id, candidate_id)
// constraint makes duplicate pairs a no-op. Returns whether a row was
// written.
func (r *MatchRepository) Create(ctx context.Context, m match.Match) (bool, error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	cmd, err := r.pool.Exec(ctx, `
INSERT INTO job_matches (id, user_id, job_posting_id, candidate_id, match_score, explanation, matching_skills, missing_skills, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (job_posting_id, candidate_id) DO NOTHING
`, m.ID, m.OwnerID, m.JobPostingID, m.CandidateID, m.Score, m.Explanation, m.MatchingSkills, m.MissingSkills, m.CreatedAt)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *MatchRepository) Exists(ctx context.Context, jobPostingID, candidateID uuid.UUID) (bool, error) {
	row := r.pool.QueryRow(ctx, `
SELECT EXISTS (SELECT 1 FROM job_matches WHERE job_posting_id = $1 AND candidate_id = $2)
`, jobPostingID, candidateID)
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *MatchRepository) ListByJobForOwner(ctx context.Context, ownerID, jobPostingID uuid.UUID, limit, offset int) ([]match.Match, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
SELECT id, user_id, job_posting_id, candidate_id, match_score, explanation, matching_skills, missing_skills, created_at
FROM job_matches WHERE job_posting_id = $3 AND user_id = $4
ORDER BY match_score DESC, created_at DESC
LIMIT $1 OFFSET $2
`, limit, offset, jobPostingID, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []match.Match
	for rows.Next() {
		var m match.Match
		var created time.Time
		if err := rows.Scan(&m.ID, &m.OwnerID, &m.JobPostingID, &m.CandidateID, &m.Score, &m.Explanation, &m.MatchingSkills, &m.MissingSkills, &created); err != nil {
			return nil, err
		}
		m.CreatedAt = created.UTC()
		if m.MatchingSkills == nil {
			m.MatchingSkills = []string{}
		}
		if m.MissingSkills == nil {
			m.MissingSkills = []string{}
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

// RefreshMatchedCount re-derives matched_candidates from the source-of-truth
// table in a single statement, so concurrent runs cannot reset it to a
// partial view.
func (r *MatchRepository) RefreshMatchedCount(ctx context.Context, jobPostingID uuid.UUID) (int, error) {
	row := r.pool.QueryRow(ctx, `
UPDATE job_postings
SET matched_candidates = (SELECT COUNT(*) FROM job_matches WHERE job_posting_id = $1),
	updated_at = NOW()
WHERE id = $1
RETURNING matched_candidates
`, jobPostingID)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *MatchRepository) EnqueueTask(ctx context.Context, t match.Task) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.Status == "" {
		t.Status = match.TaskPending
	}
	_, err := r.pool.Exec(ctx, `
INSERT INTO match_tasks (id, user_id, candidate_id, status, attempts, last_error, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`, t.ID, t.OwnerID, t.CandidateID, string(t.Status), t.Attempts, t.LastError, t.CreatedAt, now)
	return err
}

// ClaimTasks moves a batch of claimable tasks into processing: fresh pending
// tasks immediately, retried ones after the cooldown, and stale processing
// rows left behind by a crashed worker after the stale window. SKIP LOCKED
// keeps concurrent workers from claiming the same rows.
func (r *MatchRepository) ClaimTasks(ctx context.Context, limit, maxAttempts int) ([]match.Task, error) {
	rows, err := r.pool.Query(ctx, `
UPDATE match_tasks
SET status = 'processing', updated_at = NOW()
WHERE id IN (
	SELECT id FROM match_tasks
	WHERE attempts < $2
		AND (
			(status = 'pending' AND (attempts = 0 OR updated_at < NOW() - make_interval(secs => $3)))
			OR (status = 'processing' AND updated_at < NOW() - make_interval(secs => $4))
		)
	ORDER BY created_at
	LIMIT $1
	FOR UPDATE SKIP LOCKED
)
RETURNING id, user_id, candidate_id, status, attempts, last_error, created_at, updated_at
`, limit, maxAttempts, taskRetryCooldown.Seconds(), taskStaleAfter.Seconds())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []match.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r *MatchRepository) CompleteTask(ctx context.Context, id uuid.UUID) error {
	cmd, err := r.pool.Exec(ctx, `
UPDATE match_tasks SET status = 'done', last_error = '', updated_at = NOW() WHERE id = $1
`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return match.ErrTaskNotFound
	}
	return nil
}

func (r *MatchRepository) FailTask(ctx context.Context, id uuid.UUID, attempts int, lastError string, retry bool) error {
	status := string(match.TaskFailed)
	if retry {
		status = string(match.TaskPending)
	}
	cmd, err := r.pool.Exec(ctx, `
UPDATE match_tasks SET status = $2, attempts = $3, last_error = $4, updated_at = NOW() WHERE id = $1
`, id, status, attempts, lastError)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return match.ErrTaskNotFound
	}
	return nil
}

func (r *MatchRepository) GetTaskForOwner(ctx context.Context, ownerID, id uuid.UUID) (match.Task, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, user_id, candidate_id, status, attempts, last_error, created_at, updated_at
FROM match_tasks WHERE id = $1 AND user_id = $2
`, id, ownerID)
	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return match.Task{}, match.ErrTaskNotFound
		}
		return match.Task{}, err
	}
	return t, nil
}

func scanTask(row rowScanner) (match.Task, error) {
	var t match.Task
	var status string
	var created, updated time.Time
	if err := row.Scan(&t.ID, &t.OwnerID, &t.CandidateID, &status, &t.Attempts, &t.LastError, &created, &updated); err != nil {
		return match.Task{}, err
	}
	t.Status = match.TaskStatus(status)
	t.CreatedAt = created.UTC()
	t.UpdatedAt = updated.UTC()
	return t, nil
}
