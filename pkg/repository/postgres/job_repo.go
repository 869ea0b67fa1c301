package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/talentmatch/backend/pkg/job"
)

// JobRepository stores job postings.
type JobRepository struct {
	pool *pgxpool.Pool
}

func NewJobRepository(pool *pgxpool.Pool) (*JobRepository, error) {
	r := &JobRepository{pool: pool}
	if err := r.ensureSchema(context.Background()); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *JobRepository) ensureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS job_postings (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	requirements TEXT NOT NULL DEFAULT '',
	skills TEXT[] NOT NULL DEFAULT '{}',
	status TEXT NOT NULL DEFAULT 'Draft' CHECK (status IN ('Active', 'Draft', 'Closed')),
	matched_candidates INT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_job_postings_owner ON job_postings(user_id);
`)
	return err
}

func (r *JobRepository) Create(ctx context.Context, p job.Posting) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}
	_, err := r.pool.Exec(ctx, `
INSERT INTO job_postings (id, user_id, title, description, requirements, skills, status, matched_candidates, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`, p.ID, p.OwnerID, strings.TrimSpace(p.Title), p.Description, p.Requirements, p.Skills, string(p.Status), p.MatchedCandidates, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *JobRepository) GetForOwner(ctx context.Context, ownerID, id uuid.UUID) (job.Posting, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, user_id, title, description, requirements, skills, status, matched_candidates, created_at, updated_at
FROM job_postings WHERE id = $1 AND user_id = $2
`, id, ownerID)
	return scanPosting(row)
}

func (r *JobRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]job.Posting, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
SELECT id, user_id, title, description, requirements, skills, status, matched_candidates, created_at, updated_at
FROM job_postings WHERE user_id = $3
ORDER BY created_at DESC
LIMIT $1 OFFSET $2
`, limit, offset, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPostings(rows)
}

func (r *JobRepository) ListActiveByOwner(ctx context.Context, ownerID uuid.UUID) ([]job.Posting, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, user_id, title, description, requirements, skills, status, matched_candidates, created_at, updated_at
FROM job_postings WHERE user_id = $1 AND status = 'Active'
ORDER BY created_at DESC
`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPostings(rows)
}

func (r *JobRepository) UpdateForOwner(ctx context.Context, p job.Posting) error {
	cmd, err := r.pool.Exec(ctx, `
UPDATE job_postings
SET title = $3, description = $4, requirements = $5, skills = $6, status = $7, updated_at = $8
WHERE id = $1 AND user_id = $2
`, p.ID, p.OwnerID, strings.TrimSpace(p.Title), p.Description, p.Requirements, p.Skills, string(p.Status), time.Now().UTC())
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return job.ErrNotFound
	}
	return nil
}

func (r *JobRepository) DeleteForOwner(ctx context.Context, ownerID, id uuid.UUID) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM job_postings WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return job.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPosting(row rowScanner) (job.Posting, error) {
	var p job.Posting
	var status string
	var created, updated time.Time
	if err := row.Scan(&p.ID, &p.OwnerID, &p.Title, &p.Description, &p.Requirements, &p.Skills, &status, &p.MatchedCandidates, &created, &updated); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return job.Posting{}, job.ErrNotFound
		}
		return job.Posting{}, err
	}
	p.Status = job.Status(status)
	p.CreatedAt = created.UTC()
	p.UpdatedAt = updated.UTC()
	if p.Skills == nil {
		p.Skills = []string{}
	}
	return p, nil
}

func collectPostings(rows pgx.Rows) ([]job.Posting, error) {
	var res []job.Posting
	for rows.Next() {
		p, err := scanPosting(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}
