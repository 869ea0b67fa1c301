package match

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/talentmatch/backend/pkg/candidate"
	"github.com/talentmatch/backend/pkg/job"
)

// selectiveModel answers extraction and scoring prompts and can be told to
// fail whenever the user prompt contains a marker string.
type selectiveModel struct {
	response string
	failOn   string
	calls    int
}

func (m *selectiveModel) Ask(_ context.Context, _, userPrompt string, _ int) (string, error) {
	m.calls++
	if m.failOn != "" && strings.Contains(userPrompt, m.failOn) {
		return "", errors.New("model unavailable")
	}
	return m.response, nil
}

type fakeJobRepo struct {
	mu       sync.Mutex
	postings map[uuid.UUID]job.Posting
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{postings: make(map[uuid.UUID]job.Posting)}
}

func (r *fakeJobRepo) Create(_ context.Context, p job.Posting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.postings[p.ID] = p
	return nil
}

func (r *fakeJobRepo) GetForOwner(_ context.Context, ownerID, id uuid.UUID) (job.Posting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.postings[id]
	if !ok || p.OwnerID != ownerID {
		return job.Posting{}, job.ErrNotFound
	}
	return p, nil
}

func (r *fakeJobRepo) ListByOwner(_ context.Context, ownerID uuid.UUID, _, _ int) ([]job.Posting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []job.Posting
	for _, p := range r.postings {
		if p.OwnerID == ownerID {
			res = append(res, p)
		}
	}
	return res, nil
}

func (r *fakeJobRepo) ListActiveByOwner(_ context.Context, ownerID uuid.UUID) ([]job.Posting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []job.Posting
	for _, p := range r.postings {
		if p.OwnerID == ownerID && p.Status == job.StatusActive {
			res = append(res, p)
		}
	}
	return res, nil
}

func (r *fakeJobRepo) UpdateForOwner(_ context.Context, p job.Posting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.postings[p.ID]
	if !ok || cur.OwnerID != p.OwnerID {
		return job.ErrNotFound
	}
	r.postings[p.ID] = p
	return nil
}

func (r *fakeJobRepo) DeleteForOwner(_ context.Context, ownerID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.postings[id]
	if !ok || p.OwnerID != ownerID {
		return job.ErrNotFound
	}
	delete(r.postings, id)
	return nil
}

type fakeCandidateRepo struct {
	mu         sync.Mutex
	candidates map[uuid.UUID]candidate.Candidate
	files      []candidate.ResumeFile
}

func newFakeCandidateRepo() *fakeCandidateRepo {
	return &fakeCandidateRepo{candidates: make(map[uuid.UUID]candidate.Candidate)}
}

func (r *fakeCandidateRepo) Create(_ context.Context, c candidate.Candidate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.candidates[c.ID] = c
	return nil
}

func (r *fakeCandidateRepo) CreateResumeFile(_ context.Context, f candidate.ResumeFile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files = append(r.files, f)
	return nil
}

func (r *fakeCandidateRepo) GetForOwner(_ context.Context, ownerID, id uuid.UUID) (candidate.Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.candidates[id]
	if !ok || c.OwnerID != ownerID {
		return candidate.Candidate{}, candidate.ErrNotFound
	}
	return c, nil
}

func (r *fakeCandidateRepo) ListByOwner(_ context.Context, ownerID uuid.UUID, limit, _ int) ([]candidate.Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []candidate.Candidate
	for _, c := range r.candidates {
		if c.OwnerID == ownerID {
			res = append(res, c)
		}
	}
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

type fakeMatchRepo struct {
	mu      sync.Mutex
	matches map[string]Match
	tasks   map[uuid.UUID]Task
	counts  map[uuid.UUID]int

	// Claim policy mirroring the Postgres store: retried tasks wait out a
	// cooldown, stale processing claims are reclaimed. Tests backdate a
	// task's UpdatedAt to cross these windows.
	retryCooldown time.Duration
	staleAfter    time.Duration
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{
		matches:       make(map[string]Match),
		tasks:         make(map[uuid.UUID]Task),
		counts:        make(map[uuid.UUID]int),
		retryCooldown: time.Minute,
		staleAfter:    5 * time.Minute,
	}
}

func (r *fakeMatchRepo) backdateTask(t *testing.T, id uuid.UUID, by time.Duration) {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		t.Fatalf("task %s not found", id)
	}
	task.UpdatedAt = task.UpdatedAt.Add(-by)
	r.tasks[id] = task
}

func pairKey(jobID, candID uuid.UUID) string { return jobID.String() + "|" + candID.String() }

func (r *fakeMatchRepo) Create(_ context.Context, m Match) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := pairKey(m.JobPostingID, m.CandidateID)
	if _, ok := r.matches[key]; ok {
		return false, nil
	}
	r.matches[key] = m
	return true, nil
}

func (r *fakeMatchRepo) Exists(_ context.Context, jobID, candID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.matches[pairKey(jobID, candID)]
	return ok, nil
}

func (r *fakeMatchRepo) ListByJobForOwner(_ context.Context, ownerID, jobID uuid.UUID, _, _ int) ([]Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []Match
	for _, m := range r.matches {
		if m.JobPostingID == jobID && m.OwnerID == ownerID {
			res = append(res, m)
		}
	}
	return res, nil
}

func (r *fakeMatchRepo) RefreshMatchedCount(_ context.Context, jobID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.matches {
		if m.JobPostingID == jobID {
			n++
		}
	}
	r.counts[jobID] = n
	return n, nil
}

func (r *fakeMatchRepo) EnqueueTask(_ context.Context, t Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = time.Now()
	}
	r.tasks[t.ID] = t
	return nil
}

func (r *fakeMatchRepo) ClaimTasks(_ context.Context, limit, maxAttempts int) ([]Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	var res []Task
	for id, t := range r.tasks {
		if len(res) >= limit {
			break
		}
		if t.Attempts >= maxAttempts {
			continue
		}
		claimable := false
		switch t.Status {
		case TaskPending:
			claimable = t.Attempts == 0 || now.Sub(t.UpdatedAt) >= r.retryCooldown
		case TaskProcessing:
			claimable = now.Sub(t.UpdatedAt) >= r.staleAfter
		}
		if !claimable {
			continue
		}
		t.Status = TaskProcessing
		t.UpdatedAt = now
		r.tasks[id] = t
		res = append(res, t)
	}
	return res, nil
}

func (r *fakeMatchRepo) CompleteTask(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}
	t.Status = TaskDone
	t.LastError = ""
	r.tasks[id] = t
	return nil
}

func (r *fakeMatchRepo) FailTask(_ context.Context, id uuid.UUID, attempts int, lastError string, retry bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}
	t.Attempts = attempts
	t.LastError = lastError
	t.UpdatedAt = time.Now()
	if retry {
		t.Status = TaskPending
	} else {
		t.Status = TaskFailed
	}
	r.tasks[id] = t
	return nil
}

func (r *fakeMatchRepo) GetTaskForOwner(_ context.Context, ownerID, id uuid.UUID) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok || t.OwnerID != ownerID {
		return Task{}, ErrTaskNotFound
	}
	return t, nil
}

const scoreReply = `{"match_score": 80, "explanation": "solid", "matching_skills": ["Go"], "missing_skills": []}`

const extractReply = `{"name": "Jane Doe", "email": "jane@example.com", "experience_years": 7, "skills": ["Go"], "summary": "Backend engineer"}`

type fixture struct {
	jobs    *fakeJobRepo
	cands   *fakeCandidateRepo
	matches *fakeMatchRepo
	model   *selectiveModel
	orch    *Orchestrator
}

func newFixture(model *selectiveModel) *fixture {
	f := &fixture{
		jobs:    newFakeJobRepo(),
		cands:   newFakeCandidateRepo(),
		matches: newFakeMatchRepo(),
		model:   model,
	}
	f.orch = NewOrchestrator(
		f.jobs,
		f.cands,
		f.matches,
		candidate.NewExtractor(model),
		NewScorer(model),
		time.Nanosecond,
		zap.NewNop(),
	)
	return f
}

func (f *fixture) addPosting(ownerID uuid.UUID, title string, status job.Status) job.Posting {
	p := job.Posting{
		ID:      uuid.New(),
		OwnerID: ownerID,
		Title:   title,
		Status:  status,
		Skills:  []string{"Go"},
	}
	f.jobs.Create(context.Background(), p)
	return p
}

func (f *fixture) addCandidate(ownerID uuid.UUID, name string) candidate.Candidate {
	c := candidate.Candidate{
		ID:      uuid.New(),
		OwnerID: ownerID,
		Name:    name,
		Skills:  []string{"Go"},
	}
	f.cands.Create(context.Background(), c)
	return c
}

func TestGenerateForJobCreatesMatches(t *testing.T) {
	owner := uuid.New()
	f := newFixture(&selectiveModel{response: scoreReply})
	p := f.addPosting(owner, "Backend Engineer", job.StatusActive)
	for i := 0; i < 3; i++ {
		f.addCandidate(owner, fmt.Sprintf("Candidate %d", i))
	}

	res, err := f.orch.GenerateForJob(context.Background(), owner, p.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.MatchesCreated != 3 || res.TotalCandidates != 3 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if f.matches.counts[p.ID] != 3 {
		t.Fatalf("expected matched count 3, got %d", f.matches.counts[p.ID])
	}
}

func TestGenerateForJobIsIdempotent(t *testing.T) {
	owner := uuid.New()
	f := newFixture(&selectiveModel{response: scoreReply})
	p := f.addPosting(owner, "Backend Engineer", job.StatusActive)
	f.addCandidate(owner, "Jane")

	if _, err := f.orch.GenerateForJob(context.Background(), owner, p.ID); err != nil {
		t.Fatalf("first run: %v", err)
	}
	callsAfterFirst := f.model.calls

	res, err := f.orch.GenerateForJob(context.Background(), owner, p.ID)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if res.MatchesCreated != 0 {
		t.Fatalf("expected no new matches, got %d", res.MatchesCreated)
	}
	if f.model.calls != callsAfterFirst {
		t.Fatalf("expected no scoring calls for existing pairs, got %d extra", f.model.calls-callsAfterFirst)
	}
	// The count must not be reset by a run that created nothing.
	if f.matches.counts[p.ID] != 1 {
		t.Fatalf("expected matched count 1, got %d", f.matches.counts[p.ID])
	}
}

func TestGenerateForJobNoCandidates(t *testing.T) {
	owner := uuid.New()
	f := newFixture(&selectiveModel{response: scoreReply})
	p := f.addPosting(owner, "Backend Engineer", job.StatusActive)

	res, err := f.orch.GenerateForJob(context.Background(), owner, p.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.MatchesCreated != 0 || res.TotalCandidates != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if f.model.calls != 0 {
		t.Fatalf("expected no model calls, got %d", f.model.calls)
	}
}

func TestGenerateForJobIsolatesCandidateFailures(t *testing.T) {
	owner := uuid.New()
	f := newFixture(&selectiveModel{response: scoreReply, failOn: "Broken"})
	p := f.addPosting(owner, "Backend Engineer", job.StatusActive)
	f.addCandidate(owner, "Jane")
	f.addCandidate(owner, "Broken Bob")
	f.addCandidate(owner, "Alice")
	f.addCandidate(owner, "Broken Eve")
	f.addCandidate(owner, "Tom")

	res, err := f.orch.GenerateForJob(context.Background(), owner, p.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.MatchesCreated != 3 {
		t.Fatalf("expected 3 matches, got %d", res.MatchesCreated)
	}
	if res.TotalCandidates != 5 {
		t.Fatalf("expected 5 candidates, got %d", res.TotalCandidates)
	}
	if len(f.matches.matches) != 3 {
		t.Fatalf("expected 3 stored matches, got %d", len(f.matches.matches))
	}
}

func TestGenerateForJobUnknownPosting(t *testing.T) {
	owner := uuid.New()
	f := newFixture(&selectiveModel{response: scoreReply})

	_, err := f.orch.GenerateForJob(context.Background(), owner, uuid.New())
	if !errors.Is(err, job.ErrNotFound) {
		t.Fatalf("expected job.ErrNotFound, got %v", err)
	}
}

func TestProcessResume(t *testing.T) {
	owner := uuid.New()
	f := newFixture(&selectiveModel{response: extractReply})
	kicked := false
	f.orch.OnEnqueue(func() { kicked = true })

	cand, task, err := f.orch.ProcessResume(context.Background(), owner, ResumeInput{
		ResumeText: "Jane Doe, backend engineer",
		Filename:   "jane.pdf",
		FileSize:   1234,
		FileType:   "application/pdf",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cand.Name != "Jane Doe" {
		t.Fatalf("expected extracted name, got %q", cand.Name)
	}
	if _, err := f.cands.GetForOwner(context.Background(), owner, cand.ID); err != nil {
		t.Fatalf("candidate not persisted: %v", err)
	}
	if len(f.cands.files) != 1 || f.cands.files[0].Filename != "jane.pdf" {
		t.Fatalf("resume file not recorded: %+v", f.cands.files)
	}
	stored, err := f.matches.GetTaskForOwner(context.Background(), owner, task.ID)
	if err != nil {
		t.Fatalf("task not enqueued: %v", err)
	}
	if stored.Status != TaskPending || stored.CandidateID != cand.ID {
		t.Fatalf("unexpected task: %+v", stored)
	}
	if !kicked {
		t.Fatal("expected worker kick after enqueue")
	}
}

func TestProcessResumeExtractionFailure(t *testing.T) {
	owner := uuid.New()
	f := newFixture(&selectiveModel{response: scoreReply, failOn: "resume"})

	_, _, err := f.orch.ProcessResume(context.Background(), owner, ResumeInput{ResumeText: "broken resume"})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(f.cands.candidates) != 0 {
		t.Fatal("no candidate should be stored when extraction fails")
	}
	if len(f.matches.tasks) != 0 {
		t.Fatal("no task should be enqueued when extraction fails")
	}
}

func TestProcessResumeEmptyText(t *testing.T) {
	f := newFixture(&selectiveModel{response: extractReply})
	_, _, err := f.orch.ProcessResume(context.Background(), uuid.New(), ResumeInput{ResumeText: "   "})
	if err == nil {
		t.Fatal("expected error for empty resume text")
	}
	if f.model.calls != 0 {
		t.Fatal("model should not be called for empty text")
	}
}

func TestMatchCandidateAgainstActivePostingsOnly(t *testing.T) {
	owner := uuid.New()
	f := newFixture(&selectiveModel{response: scoreReply})
	active1 := f.addPosting(owner, "Backend Engineer", job.StatusActive)
	active2 := f.addPosting(owner, "Platform Engineer", job.StatusActive)
	f.addPosting(owner, "Unpublished", job.StatusDraft)
	f.addPosting(owner, "Old Role", job.StatusClosed)
	c := f.addCandidate(owner, "Jane")

	if err := f.orch.MatchCandidate(context.Background(), owner, c.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.matches.matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(f.matches.matches))
	}
	for _, id := range []uuid.UUID{active1.ID, active2.ID} {
		if f.matches.counts[id] != 1 {
			t.Fatalf("expected matched count 1 for posting %s", id)
		}
	}
}

func TestMatchCandidateNoActivePostings(t *testing.T) {
	owner := uuid.New()
	f := newFixture(&selectiveModel{response: scoreReply})
	c := f.addCandidate(owner, "Jane")

	if err := f.orch.MatchCandidate(context.Background(), owner, c.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.model.calls != 0 {
		t.Fatalf("expected no model calls, got %d", f.model.calls)
	}
}

func TestMatchCandidateReportsPairFailures(t *testing.T) {
	owner := uuid.New()
	f := newFixture(&selectiveModel{response: scoreReply, failOn: "Cursed Role"})
	f.addPosting(owner, "Backend Engineer", job.StatusActive)
	f.addPosting(owner, "Cursed Role", job.StatusActive)
	c := f.addCandidate(owner, "Jane")

	err := f.orch.MatchCandidate(context.Background(), owner, c.ID)
	if err == nil {
		t.Fatal("expected error so the task is retried")
	}
	if !strings.Contains(err.Error(), "pairs failed") {
		t.Fatalf("unexpected error: %v", err)
	}
	// The successful pair must still be persisted.
	if len(f.matches.matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(f.matches.matches))
	}
}

func TestMatchCandidateUnknownCandidate(t *testing.T) {
	owner := uuid.New()
	f := newFixture(&selectiveModel{response: scoreReply})

	err := f.orch.MatchCandidate(context.Background(), owner, uuid.New())
	if !errors.Is(err, candidate.ErrNotFound) {
		t.Fatalf("expected candidate.ErrNotFound, got %v", err)
	}
}
