package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/talentmatch/backend/api/http/presenter"
	"github.com/talentmatch/backend/pkg/job"
)

type JobHandler struct {
	uc job.UseCase
}

func NewJobHandler(uc job.UseCase) *JobHandler { return &JobHandler{uc: uc} }

type jobRequest struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Requirements string   `json:"requirements"`
	Skills       []string `json:"skills"`
	Status       string   `json:"status"`
}

// @Summary Create job posting
// @Tags    jobs
// @Accept  json
// @Produce json
// @Param   input body jobRequest true "job posting payload"
// @Security BearerAuth
// @Success 201 {object} job.Posting
// @Failure 400 {object} presenter.ErrorResponse
// @Router  /jobs [post]
func (h *JobHandler) Create(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	var req jobRequest
	if err := c.BodyParser(&req); err != nil {
		return presenter.Error(c, http.StatusBadRequest, "invalid JSON payload")
	}
	p := job.Posting{
		OwnerID:      uid,
		Title:        req.Title,
		Description:  req.Description,
		Requirements: req.Requirements,
		Skills:       req.Skills,
		Status:       job.Status(req.Status),
	}
	p, err = h.uc.Create(c.Context(), p)
	if err != nil {
		var verr job.ErrValidation
		if errors.As(err, &verr) {
			return presenter.Error(c, http.StatusBadRequest, verr.Error())
		}
		return presenter.Error(c, http.StatusInternalServerError, "failed to create job posting")
	}
	return presenter.JSON(c, http.StatusCreated, p)
}

// @Summary Get job posting by ID
// @Tags    jobs
// @Produce json
// @Param   id path string true "job posting ID (UUID)"
// @Security BearerAuth
// @Success 200 {object} job.Posting
// @Failure 404 {object} presenter.ErrorResponse
// @Router  /jobs/{id} [get]
func (h *JobHandler) GetByID(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return presenter.Error(c, http.StatusBadRequest, "invalid UUID")
	}
	p, err := h.uc.Get(c.Context(), uid, id)
	if err != nil {
		if errors.Is(err, job.ErrNotFound) {
			return presenter.Error(c, http.StatusNotFound, "job posting not found")
		}
		return presenter.Error(c, http.StatusInternalServerError, "failed to load job posting")
	}
	return presenter.JSON(c, http.StatusOK, p)
}

// @Summary List job postings
// @Tags    jobs
// @Produce json
// @Param   limit query int false "page size (max 200)"
// @Param   offset query int false "page offset"
// @Security BearerAuth
// @Success 200 {array} job.Posting
// @Router  /jobs [get]
func (h *JobHandler) List(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	limit, offset := parseLimitOffset(c, 50)
	ps, err := h.uc.List(c.Context(), uid, limit, offset)
	if err != nil {
		return presenter.Error(c, http.StatusInternalServerError, "failed to list job postings")
	}
	if ps == nil {
		ps = []job.Posting{}
	}
	return presenter.JSON(c, http.StatusOK, ps)
}

// @Summary Update job posting
// @Tags    jobs
// @Accept  json
// @Produce json
// @Param   id path string true "job posting ID (UUID)"
// @Param   input body jobRequest true "job posting payload"
// @Security BearerAuth
// @Success 200 {object} job.Posting
// @Failure 400 {object} presenter.ErrorResponse
// @Failure 404 {object} presenter.ErrorResponse
// @Router  /jobs/{id} [put]
func (h *JobHandler) Update(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return presenter.Error(c, http.StatusBadRequest, "invalid UUID")
	}
	var req jobRequest
	if err := c.BodyParser(&req); err != nil {
		return presenter.Error(c, http.StatusBadRequest, "invalid JSON payload")
	}
	p := job.Posting{
		ID:           id,
		OwnerID:      uid,
		Title:        req.Title,
		Description:  req.Description,
		Requirements: req.Requirements,
		Skills:       req.Skills,
		Status:       job.Status(req.Status),
	}
	p, err = h.uc.Update(c.Context(), p)
	if err != nil {
		var verr job.ErrValidation
		switch {
		case errors.As(err, &verr):
			return presenter.Error(c, http.StatusBadRequest, verr.Error())
		case errors.Is(err, job.ErrNotFound):
			return presenter.Error(c, http.StatusNotFound, "job posting not found")
		default:
			return presenter.Error(c, http.StatusInternalServerError, "failed to update job posting")
		}
	}
	return presenter.JSON(c, http.StatusOK, p)
}

// @Summary Delete job posting
// @Tags    jobs
// @Produce json
// @Param   id path string true "job posting ID (UUID)"
// @Security BearerAuth
// @Success 204 {object} nil
// @Failure 404 {object} presenter.ErrorResponse
// @Router  /jobs/{id} [delete]
func (h *JobHandler) Delete(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return presenter.Error(c, http.StatusBadRequest, "invalid UUID")
	}
	if err := h.uc.Delete(c.Context(), uid, id); err != nil {
		if errors.Is(err, job.ErrNotFound) {
			return presenter.Error(c, http.StatusNotFound, "job posting not found")
		}
		return presenter.Error(c, http.StatusInternalServerError, "failed to delete job posting")
	}
	return c.SendStatus(http.StatusNoContent)
}
