package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/talentmatch/backend/api/http/presenter"
	"github.com/talentmatch/backend/pkg/job"
	"github.com/talentmatch/backend/pkg/match"
)

// MatchingHandler exposes match generation, match listing and task status.
type MatchingHandler struct {
	orch    *match.Orchestrator
	matches match.Repository
}

func NewMatchingHandler(orch *match.Orchestrator, matches match.Repository) *MatchingHandler {
	return &MatchingHandler{orch: orch, matches: matches}
}

// Generate scores every candidate of the caller against one job posting.
// Runs synchronously; candidates that fail to score are skipped, not fatal.
// @Summary Generate matches for a job posting
// @Tags    matching
// @Produce json
// @Param   id path string true "job posting ID (UUID)"
// @Security BearerAuth
// @Success 200 {object} map[string]any
// @Failure 404 {object} presenter.ErrorResponse
// @Router  /jobs/{id}/matches [post]
func (h *MatchingHandler) Generate(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return presenter.Error(c, http.StatusBadRequest, "invalid UUID")
	}
	res, err := h.orch.GenerateForJob(c.Context(), uid, id)
	if err != nil {
		if errors.Is(err, job.ErrNotFound) {
			return presenter.Error(c, http.StatusNotFound, "job posting not found")
		}
		return presenter.Error(c, http.StatusInternalServerError, "failed to generate matches")
	}
	return presenter.JSON(c, http.StatusOK, fiber.Map{
		"success":          true,
		"message":          fmt.Sprintf("Generated %d new matches", res.MatchesCreated),
		"matches_created":  res.MatchesCreated,
		"total_candidates": res.TotalCandidates,
	})
}

// @Summary List matches for a job posting
// @Tags    matching
// @Produce json
// @Param   id path string true "job posting ID (UUID)"
// @Param   limit query int false "page size (max 200)"
// @Param   offset query int false "page offset"
// @Security BearerAuth
// @Success 200 {array} match.Match
// @Router  /jobs/{id}/matches [get]
func (h *MatchingHandler) ListByJob(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return presenter.Error(c, http.StatusBadRequest, "invalid UUID")
	}
	limit, offset := parseLimitOffset(c, 50)
	ms, err := h.matches.ListByJobForOwner(c.Context(), uid, id, limit, offset)
	if err != nil {
		return presenter.Error(c, http.StatusInternalServerError, "failed to list matches")
	}
	if ms == nil {
		ms = []match.Match{}
	}
	return presenter.JSON(c, http.StatusOK, ms)
}

// TaskStatus reports the state of a background matching task, so a client
// that uploaded a resume can poll until matching has finished.
// @Summary Get match task status
// @Tags    matching
// @Produce json
// @Param   id path string true "match task ID (UUID)"
// @Security BearerAuth
// @Success 200 {object} match.Task
// @Failure 404 {object} presenter.ErrorResponse
// @Router  /match-tasks/{id} [get]
func (h *MatchingHandler) TaskStatus(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return presenter.Error(c, http.StatusBadRequest, "invalid UUID")
	}
	t, err := h.matches.GetTaskForOwner(c.Context(), uid, id)
	if err != nil {
		if errors.Is(err, match.ErrTaskNotFound) {
			return presenter.Error(c, http.StatusNotFound, "match task not found")
		}
		return presenter.Error(c, http.StatusInternalServerError, "failed to load match task")
	}
	return presenter.JSON(c, http.StatusOK, t)
}
