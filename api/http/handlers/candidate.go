package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/talentmatch/backend/api/http/presenter"
	"github.com/talentmatch/backend/pkg/candidate"
)

type CandidateHandler struct {
	repo candidate.Repository
}

func NewCandidateHandler(repo candidate.Repository) *CandidateHandler {
	return &CandidateHandler{repo: repo}
}

// @Summary List candidates
// @Tags    candidates
// @Produce json
// @Param   limit query int false "page size (max 200)"
// @Param   offset query int false "page offset"
// @Security BearerAuth
// @Success 200 {array} candidate.Candidate
// @Router  /candidates [get]
func (h *CandidateHandler) List(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	limit, offset := parseLimitOffset(c, 50)
	cs, err := h.repo.ListByOwner(c.Context(), uid, limit, offset)
	if err != nil {
		return presenter.Error(c, http.StatusInternalServerError, "failed to list candidates")
	}
	if cs == nil {
		cs = []candidate.Candidate{}
	}
	return presenter.JSON(c, http.StatusOK, cs)
}

// @Summary Get candidate by ID
// @Tags    candidates
// @Produce json
// @Param   id path string true "candidate ID (UUID)"
// @Security BearerAuth
// @Success 200 {object} candidate.Candidate
// @Failure 404 {object} presenter.ErrorResponse
// @Router  /candidates/{id} [get]
func (h *CandidateHandler) GetByID(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return presenter.Error(c, http.StatusBadRequest, "invalid UUID")
	}
	cand, err := h.repo.GetForOwner(c.Context(), uid, id)
	if err != nil {
		if errors.Is(err, candidate.ErrNotFound) {
			return presenter.Error(c, http.StatusNotFound, "candidate not found")
		}
		return presenter.Error(c, http.StatusInternalServerError, "failed to load candidate")
	}
	return presenter.JSON(c, http.StatusOK, cand)
}
