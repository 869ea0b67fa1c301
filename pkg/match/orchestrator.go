package match

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/talentmatch/backend/pkg/candidate"
	"github.com/talentmatch/backend/pkg/job"
)

// GenerateResult summarizes one job-triggered matching run.
type GenerateResult struct {
	MatchesCreated  int
	TotalCandidates int
}

// ResumeInput is the payload of a resume-processing request. The text is
// assumed already extracted from the original file.
type ResumeInput struct {
	ResumeText string
	Filename   string
	FileSize   int64
	FileType   string
}

// Orchestrator coordinates the extractor and scorer across (job, candidate)
// pairs and persists the results. Both entry points are idempotent at pair
// granularity: pairs that already have a match are skipped.
type Orchestrator struct {
	jobs       job.Repository
	candidates candidate.Repository
	matches    Repository
	extractor  *candidate.Extractor
	scorer     *Scorer
	limiter    *rate.Limiter
	log        *zap.Logger
	// kick nudges the worker after a task is enqueued; nil is fine, the
	// cron sweep will pick the task up on the next tick.
	kick func()
}

func NewOrchestrator(
	jobs job.Repository,
	candidates candidate.Repository,
	matches Repository,
	extractor *candidate.Extractor,
	scorer *Scorer,
	pace time.Duration,
	log *zap.Logger,
) *Orchestrator {
	if pace <= 0 {
		pace = 300 * time.Millisecond
	}
	return &Orchestrator{
		jobs:       jobs,
		candidates: candidates,
		matches:    matches,
		extractor:  extractor,
		scorer:     scorer,
		limiter:    rate.NewLimiter(rate.Every(pace), 1),
		log:        log,
	}
}

// OnEnqueue registers a callback invoked after a match task is enqueued.
// The worker hooks its Kick here; construction order makes a constructor
// argument awkward.
func (o *Orchestrator) OnEnqueue(f func()) { o.kick = f }

// GenerateForJob scores every candidate of the posting's owner against the
// posting. Scoring and persistence errors are isolated per candidate; the
// loop always runs to completion. The posting's matched_candidates is
// re-derived from the stored matches afterwards, so a run that creates zero
// new matches never resets a previously positive count.
func (o *Orchestrator) GenerateForJob(ctx context.Context, ownerID, jobPostingID uuid.UUID) (GenerateResult, error) {
	posting, err := o.jobs.GetForOwner(ctx, ownerID, jobPostingID)
	if err != nil {
		return GenerateResult{}, err
	}

	candidates, err := o.candidates.ListByOwner(ctx, ownerID, 0, 0)
	if err != nil {
		return GenerateResult{}, fmt.Errorf("list candidates: %w", err)
	}
	res := GenerateResult{TotalCandidates: len(candidates)}
	if len(candidates) == 0 {
		return res, nil
	}

	for _, cand := range candidates {
		created, err := o.matchPair(ctx, posting, cand)
		if err != nil {
			o.log.Warn("skipping candidate",
				zap.String("jobPostingId", posting.ID.String()),
				zap.String("candidateId", cand.ID.String()),
				zap.Error(err))
			continue
		}
		if created {
			res.MatchesCreated++
		}
	}

	if _, err := o.matches.RefreshMatchedCount(ctx, posting.ID); err != nil {
		o.log.Error("refresh matched count",
			zap.String("jobPostingId", posting.ID.String()),
			zap.Error(err))
	}
	return res, nil
}

// ProcessResume extracts a structured candidate from resume text, persists
// the candidate and its file record, and enqueues a durable matching task.
// The caller gets the candidate and the task back immediately; matching runs
// in the background and its outcome is observable through the task.
func (o *Orchestrator) ProcessResume(ctx context.Context, ownerID uuid.UUID, in ResumeInput) (candidate.Candidate, Task, error) {
	if strings.TrimSpace(in.ResumeText) == "" {
		return candidate.Candidate{}, Task{}, fmt.Errorf("resume text is required")
	}

	extracted, err := o.extractor.Extract(ctx, in.ResumeText)
	if err != nil {
		return candidate.Candidate{}, Task{}, err
	}

	cand := candidate.Candidate{
		ID:              uuid.New(),
		OwnerID:         ownerID,
		Name:            extracted.Name,
		Email:           extracted.Email,
		Phone:           extracted.Phone,
		ExperienceYears: extracted.ExperienceYears,
		Skills:          extracted.Skills,
		Education:       extracted.Education,
		Summary:         extracted.Summary,
		ResumeText:      in.ResumeText,
		CreatedAt:       time.Now().UTC(),
	}
	if err := o.candidates.Create(ctx, cand); err != nil {
		return candidate.Candidate{}, Task{}, fmt.Errorf("create candidate: %w", err)
	}

	file := candidate.ResumeFile{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		CandidateID: cand.ID,
		Filename:    in.Filename,
		FileSize:    in.FileSize,
		FileType:    in.FileType,
		Status:      candidate.FileStatusCompleted,
		CreatedAt:   time.Now().UTC(),
	}
	if err := o.candidates.CreateResumeFile(ctx, file); err != nil {
		// The candidate row is the source of truth; a missing provenance
		// record is logged, not fatal.
		o.log.Error("create resume file record",
			zap.String("candidateId", cand.ID.String()),
			zap.Error(err))
	}

	task := Task{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		CandidateID: cand.ID,
		Status:      TaskPending,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	if err := o.matches.EnqueueTask(ctx, task); err != nil {
		return candidate.Candidate{}, Task{}, fmt.Errorf("enqueue match task: %w", err)
	}
	if o.kick != nil {
		o.kick()
	}
	return cand, task, nil
}

// MatchCandidate scores one candidate against every Active posting of its
// owner. Used by the worker when draining tasks. Pair errors are counted and
// reported so the task can be retried; pairs already matched are skipped.
func (o *Orchestrator) MatchCandidate(ctx context.Context, ownerID, candidateID uuid.UUID) error {
	cand, err := o.candidates.GetForOwner(ctx, ownerID, candidateID)
	if err != nil {
		return fmt.Errorf("load candidate: %w", err)
	}
	postings, err := o.jobs.ListActiveByOwner(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("list active postings: %w", err)
	}
	if len(postings) == 0 {
		o.log.Info("no active job postings for matching",
			zap.String("candidateId", candidateID.String()))
		return nil
	}

	var failed int
	for _, posting := range postings {
		created, err := o.matchPair(ctx, posting, cand)
		if err != nil {
			failed++
			o.log.Warn("skipping job posting",
				zap.String("jobPostingId", posting.ID.String()),
				zap.String("candidateId", cand.ID.String()),
				zap.Error(err))
			continue
		}
		if created {
			if _, err := o.matches.RefreshMatchedCount(ctx, posting.ID); err != nil {
				o.log.Error("refresh matched count",
					zap.String("jobPostingId", posting.ID.String()),
					zap.Error(err))
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d pairs failed", failed, len(postings))
	}
	return nil
}

// matchPair scores and persists a single (job, candidate) pair. The
// pre-check avoids spending a completion call on pairs that already have a
// match; the unique constraint behind Create closes the remaining race.
func (o *Orchestrator) matchPair(ctx context.Context, posting job.Posting, cand candidate.Candidate) (bool, error) {
	exists, err := o.matches.Exists(ctx, posting.ID, cand.ID)
	if err != nil {
		return false, fmt.Errorf("check existing match: %w", err)
	}
	if exists {
		return false, nil
	}

	if err := o.limiter.Wait(ctx); err != nil {
		return false, err
	}
	assessment, err := o.scorer.Score(ctx, posting, cand)
	if err != nil {
		return false, err
	}

	m := Match{
		ID:             uuid.New(),
		OwnerID:        posting.OwnerID,
		JobPostingID:   posting.ID,
		CandidateID:    cand.ID,
		Score:          assessment.Score,
		Explanation:    assessment.Explanation,
		MatchingSkills: assessment.MatchingSkills,
		MissingSkills:  assessment.MissingSkills,
		CreatedAt:      time.Now().UTC(),
	}
	created, err := o.matches.Create(ctx, m)
	if err != nil {
		return false, fmt.Errorf("persist match: %w", err)
	}
	return created, nil
}
