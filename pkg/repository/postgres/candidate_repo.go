package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/talentmatch/backend/pkg/candidate"
)

// CandidateRepository stores candidates and their resume file provenance.
type CandidateRepository struct {
	pool *pgxpool.Pool
}

func NewCandidateRepository(pool *pgxpool.Pool) (*CandidateRepository, error) {
	r := &CandidateRepository{pool: pool}
	if err := r.ensureSchema(context.Background()); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *CandidateRepository) ensureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS candidates (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL,
	name TEXT NOT NULL DEFAULT 'Unknown',
	email TEXT,
	phone TEXT,
	experience_years INT NOT NULL DEFAULT 0 CHECK (experience_years >= 0),
	skills TEXT[] NOT NULL DEFAULT '{}',
	education TEXT,
	summary TEXT NOT NULL DEFAULT '',
	resume_text TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_candidates_owner ON candidates(user_id);
CREATE TABLE IF NOT EXISTS resume_files (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL,
	candidate_id UUID NOT NULL REFERENCES candidates(id) ON DELETE CASCADE,
	filename TEXT NOT NULL,
	file_size BIGINT NOT NULL DEFAULT 0,
	file_type TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'completed',
	created_at TIMESTAMPTZ NOT NULL
);
`)
	return err
}

func (r *CandidateRepository) Create(ctx context.Context, c candidate.Candidate) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, `
INSERT INTO candidates (id, user_id, name, email, phone, experience_years, skills, education, summary, resume_text, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`, c.ID, c.OwnerID, c.Name, c.Email, c.Phone, c.ExperienceYears, c.Skills, c.Education, c.Summary, c.ResumeText, c.CreatedAt)
	return err
}

func (r *CandidateRepository) CreateResumeFile(ctx context.Context, f candidate.ResumeFile) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, `
INSERT INTO resume_files (id, user_id, candidate_id, filename, file_size, file_type, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`, f.ID, f.OwnerID, f.CandidateID, f.Filename, f.FileSize, f.FileType, string(f.Status), f.CreatedAt)
	return err
}

func (r *CandidateRepository) GetForOwner(ctx context.Context, ownerID, id uuid.UUID) (candidate.Candidate, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, user_id, name, email, phone, experience_years, skills, education, summary, resume_text, created_at
FROM candidates WHERE id = $1 AND user_id = $2
`, id, ownerID)
	return scanCandidate(row)
}

// ListByOwner returns the user's candidates. limit <= 0 means no limit: the
// orchestrator matches against the full candidate pool.
func (r *CandidateRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]candidate.Candidate, error) {
	q := `
SELECT id, user_id, name, email, phone, experience_years, skills, education, summary, resume_text, created_at
FROM candidates WHERE user_id = $1
ORDER BY created_at DESC
`
	args := []any{ownerID}
	if limit > 0 {
		q += `LIMIT $2 OFFSET $3`
		args = append(args, limit, offset)
	}
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []candidate.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func scanCandidate(row rowScanner) (candidate.Candidate, error) {
	var c candidate.Candidate
	var created time.Time
	if err := row.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Email, &c.Phone, &c.ExperienceYears, &c.Skills, &c.Education, &c.Summary, &c.ResumeText, &created); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return candidate.Candidate{}, candidate.ErrNotFound
		}
		return candidate.Candidate{}, err
	}
	c.CreatedAt = created.UTC()
	if c.Skills == nil {
		c.Skills = []string{}
	}
	return c, nil
}
