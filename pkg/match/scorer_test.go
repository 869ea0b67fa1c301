package match

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/talentmatch/backend/pkg/candidate"
	"github.com/talentmatch/backend/pkg/job"
	"github.com/talentmatch/backend/pkg/llm"
)

type stubModel struct {
	response string
	err      error
	lastUser string
	calls    int
}

func (s *stubModel) Ask(_ context.Context, _, userPrompt string, _ int) (string, error) {
	s.calls++
	s.lastUser = userPrompt
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func strptr(s string) *string { return &s }

func TestScorerScore(t *testing.T) {
	stub := &stubModel{response: `{
		"match_score": 85,
		"explanation": "Strong overlap in backend skills",
		"matching_skills": ["Go", "PostgreSQL"],
		"missing_skills": ["Kubernetes"]
	}`}
	s := NewScorer(stub)

	j := job.Posting{
		Title:        "Backend Engineer",
		Description:  "Build services",
		Requirements: "5+ years",
		Skills:       []string{"Go", "PostgreSQL", "Kubernetes"},
	}
	c := candidate.Candidate{
		Name:            "Jane",
		ExperienceYears: 7,
		Skills:          []string{"Go", "PostgreSQL"},
		Education:       strptr("BSc"),
		Summary:         "Backend engineer",
	}

	got, err := s.Score(context.Background(), j, c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Score != 85 {
		t.Fatalf("expected score 85, got %d", got.Score)
	}
	if len(got.MatchingSkills) != 2 || len(got.MissingSkills) != 1 {
		t.Fatalf("unexpected skills: %v / %v", got.MatchingSkills, got.MissingSkills)
	}
	for _, want := range []string{"Backend Engineer", "Jane", "Go, PostgreSQL, Kubernetes", "7 years"} {
		if !strings.Contains(stub.lastUser, want) {
			t.Fatalf("expected %q in prompt, got:\n%s", want, stub.lastUser)
		}
	}
}

func TestScorerClampsOutOfRangeScores(t *testing.T) {
	cases := []struct {
		response string
		want     int
	}{
		{`{"match_score": 150}`, 100},
		{`{"match_score": -5}`, 0},
		{`{"match_score": 72.6}`, 72},
		{`{"match_score": 0}`, 0},
	}
	for _, tc := range cases {
		s := NewScorer(&stubModel{response: tc.response})
		got, err := s.Score(context.Background(), job.Posting{Title: "X"}, candidate.Candidate{Name: "Y"})
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", tc.response, err)
		}
		if got.Score != tc.want {
			t.Fatalf("score for %s = %d, want %d", tc.response, got.Score, tc.want)
		}
	}
}

func TestScorerDefaultsForMissingFields(t *testing.T) {
	s := NewScorer(&stubModel{response: `{"match_score": 60}`})
	got, err := s.Score(context.Background(), job.Posting{Title: "X"}, candidate.Candidate{Name: "Y"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.MatchingSkills == nil || got.MissingSkills == nil {
		t.Fatal("expected empty slices, not nil")
	}
	if got.Explanation != "" {
		t.Fatalf("expected empty explanation, got %q", got.Explanation)
	}
}

func TestScorerPlaceholdersForSparseInput(t *testing.T) {
	stub := &stubModel{response: `{"match_score": 50}`}
	s := NewScorer(stub)

	_, err := s.Score(context.Background(), job.Posting{Title: "X"}, candidate.Candidate{Name: "Y"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stub.lastUser, "Not specified") {
		t.Fatalf("expected placeholder for missing fields, got:\n%s", stub.lastUser)
	}
}

func TestScorerRejectsReplyWithoutScore(t *testing.T) {
	s := NewScorer(&stubModel{response: `{"explanation": "looks fine"}`})
	_, err := s.Score(context.Background(), job.Posting{Title: "X"}, candidate.Candidate{Name: "Y"})
	if !errors.Is(err, llm.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestScorerRejectsNonJSONReply(t *testing.T) {
	s := NewScorer(&stubModel{response: "The candidate seems fine."})
	_, err := s.Score(context.Background(), job.Posting{Title: "X"}, candidate.Candidate{Name: "Y"})
	if !errors.Is(err, llm.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestScorerPropagatesModelError(t *testing.T) {
	want := errors.New("rate limited")
	s := NewScorer(&stubModel{err: want})
	_, err := s.Score(context.Background(), job.Posting{Title: "X"}, candidate.Candidate{Name: "Y"})
	if !errors.Is(err, want) {
		t.Fatalf("expected model error passthrough, got %v", err)
	}
}
