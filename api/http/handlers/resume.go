package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/talentmatch/backend/api/http/presenter"
	"github.com/talentmatch/backend/pkg/candidate"
	"github.com/talentmatch/backend/pkg/llm"
	"github.com/talentmatch/backend/pkg/match"
)

// ResumeHandler accepts uploaded resumes, turns them into candidates and
// queues them for matching.
type ResumeHandler struct {
	orch *match.Orchestrator
	// Limit uploaded file size read into memory (bytes)
	maxBytes int64
}

func NewResumeHandler(orch *match.Orchestrator) *ResumeHandler {
	return &ResumeHandler{orch: orch, maxBytes: 15 << 20} // 15MB
}

type processResumeRequest struct {
	ResumeText string `json:"resumeText"`
	Filename   string `json:"filename"`
	FileSize   int64  `json:"fileSize"`
	FileType   string `json:"fileType"`
}

// Process handles an uploaded resume. Two payloads are accepted: a multipart
// form with a "file" field (PDF or DOCX, text extracted server-side) or a
// JSON body with already-extracted resume_text. Either way the resume is
// structured into a candidate and a matching task is enqueued.
// @Summary Process resume into candidate
// @Description Extracts a structured candidate from the resume via the language model, stores it and queues background matching against the user's active job postings.
// @Tags    resumes
// @Accept  multipart/form-data
// @Accept  json
// @Produce json
// @Param   file formData file false "resume file (PDF or DOCX)"
// @Param   input body processResumeRequest false "pre-extracted resume text"
// @Security BearerAuth
// @Success 200 {object} map[string]any
// @Failure 400 {object} presenter.ErrorResponse
// @Failure 502 {object} presenter.ErrorResponse
// @Router  /resumes [post]
func (h *ResumeHandler) Process(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}

	in, err := h.resumeInput(c)
	if err != nil {
		return presenter.Error(c, http.StatusBadRequest, err.Error())
	}

	cand, task, err := h.orch.ProcessResume(c.Context(), uid, in)
	if err != nil {
		if errors.Is(err, llm.ErrUpstream) {
			return presenter.Error(c, http.StatusBadGateway, "resume extraction failed: upstream model error")
		}
		return presenter.Error(c, http.StatusBadRequest, fmt.Sprintf("failed to process resume: %v", err))
	}

	return presenter.JSON(c, http.StatusOK, fiber.Map{
		"success":       true,
		"candidate":     cand,
		"match_task_id": task.ID.String(),
		"message":       fmt.Sprintf("Resume processed successfully. Candidate %s added.", cand.Name),
	})
}

func (h *ResumeHandler) resumeInput(c *fiber.Ctx) (match.ResumeInput, error) {
	fh, err := c.FormFile("file")
	if err == nil && fh != nil {
		ext := strings.ToLower(filepath.Ext(fh.Filename))
		if ext != ".pdf" && ext != ".docx" {
			return match.ResumeInput{}, errors.New("unsupported file format: only pdf and docx are allowed")
		}
		file, err := fh.Open()
		if err != nil {
			return match.ResumeInput{}, errors.New("failed to open uploaded file")
		}
		defer file.Close()
		data, err := readAtMost(file, h.maxBytes)
		if err != nil {
			return match.ResumeInput{}, err
		}
		text, err := candidate.ExtractText(fh.Filename, data)
		if err != nil {
			return match.ResumeInput{}, fmt.Errorf("failed to read resume: %w", err)
		}
		return match.ResumeInput{
			ResumeText: text,
			Filename:   fh.Filename,
			FileSize:   fh.Size,
			FileType:   fh.Header.Get("Content-Type"),
		}, nil
	}

	var req processResumeRequest
	if err := c.BodyParser(&req); err != nil {
		return match.ResumeInput{}, errors.New("file upload or JSON resumeText is required")
	}
	if strings.TrimSpace(req.ResumeText) == "" {
		return match.ResumeInput{}, errors.New("resumeText is required")
	}
	if req.Filename == "" {
		req.Filename = "resume.txt"
	}
	if req.FileSize == 0 {
		req.FileSize = int64(len(req.ResumeText))
	}
	if req.FileType == "" {
		req.FileType = "text/plain"
	}
	return match.ResumeInput{
		ResumeText: req.ResumeText,
		Filename:   req.Filename,
		FileSize:   req.FileSize,
		FileType:   req.FileType,
	}, nil
}

func readAtMost(f multipart.File, max int64) ([]byte, error) {
	limited := io.LimitReader(f, max+1)
	b, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if int64(len(b)) > max {
		return nil, fmt.Errorf("file too large: limit is %d bytes", max)
	}
	return b, nil
}
