package job

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UseCase encapsulates job posting management.
type UseCase interface {
	Create(ctx context.Context, p Posting) (Posting, error)
	Get(ctx context.Context, ownerID, id uuid.UUID) (Posting, error)
	List(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]Posting, error)
	Update(ctx context.Context, p Posting) (Posting, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) UseCase { return &service{repo: repo} }

func (s *service) Create(ctx context.Context, p Posting) (Posting, error) {
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" {
		return Posting{}, ErrValidation("title is required")
	}
	if p.Status == "" {
		p.Status = StatusDraft
	}
	if _, err := ParseStatus(string(p.Status)); err != nil {
		return Posting{}, ErrValidation(err.Error())
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	p.MatchedCandidates = 0
	if err := s.repo.Create(ctx, p); err != nil {
		return Posting{}, err
	}
	return p, nil
}

func (s *service) Get(ctx context.Context, ownerID, id uuid.UUID) (Posting, error) {
	return s.repo.GetForOwner(ctx, ownerID, id)
}

func (s *service) List(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]Posting, error) {
	return s.repo.ListByOwner(ctx, ownerID, limit, offset)
}

func (s *service) Update(ctx context.Context, p Posting) (Posting, error) {
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" {
		return Posting{}, ErrValidation("title is required")
	}
	if _, err := ParseStatus(string(p.Status)); err != nil {
		return Posting{}, ErrValidation(err.Error())
	}
	p.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpdateForOwner(ctx, p); err != nil {
		return Posting{}, err
	}
	return s.repo.GetForOwner(ctx, p.OwnerID, p.ID)
}

func (s *service) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	return s.repo.DeleteForOwner(ctx, ownerID, id)
}

// ErrValidation is a simple validation error.
type ErrValidation string

func (e ErrValidation) Error() string { return string(e) }
