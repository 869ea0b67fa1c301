package candidate

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/talentmatch/backend/pkg/llm"
)

type stubModel struct {
	response   string
	err        error
	lastSystem string
	lastUser   string
	lastMax    int
}

func (s *stubModel) Ask(_ context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	s.lastSystem = systemPrompt
	s.lastUser = userPrompt
	s.lastMax = maxTokens
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func TestExtractorExtract(t *testing.T) {
	stub := &stubModel{response: `{
		"name": "Jane Doe",
		"email": "jane@example.com",
		"phone": null,
		"experience_years": 7,
		"skills": ["Go", "PostgreSQL"],
		"education": "BSc Computer Science",
		"summary": "Backend engineer"
	}`}
	e := NewExtractor(stub)

	got, err := e.Extract(context.Background(), "Jane Doe, backend engineer, 7 years with Go")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "Jane Doe" {
		t.Fatalf("expected name Jane Doe, got %q", got.Name)
	}
	if got.Email == nil || *got.Email != "jane@example.com" {
		t.Fatalf("unexpected email: %v", got.Email)
	}
	if got.Phone != nil {
		t.Fatalf("expected nil phone, got %v", *got.Phone)
	}
	if got.ExperienceYears != 7 {
		t.Fatalf("expected 7 years, got %d", got.ExperienceYears)
	}
	if len(got.Skills) != 2 || got.Skills[0] != "Go" {
		t.Fatalf("unexpected skills: %v", got.Skills)
	}
	if stub.lastMax != 1000 {
		t.Fatalf("expected max tokens 1000, got %d", stub.lastMax)
	}
	if !strings.Contains(stub.lastUser, "Jane Doe") {
		t.Fatalf("expected resume text in user prompt")
	}
}

func TestExtractorDefaults(t *testing.T) {
	stub := &stubModel{response: `{"name": null, "skills": null, "experience_years": null}`}
	e := NewExtractor(stub)

	got, err := e.Extract(context.Background(), "some resume")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "Unknown" {
		t.Fatalf("expected fallback name Unknown, got %q", got.Name)
	}
	if got.Skills == nil || len(got.Skills) != 0 {
		t.Fatalf("expected empty skills slice, got %v", got.Skills)
	}
	if got.ExperienceYears != 0 {
		t.Fatalf("expected 0 years, got %d", got.ExperienceYears)
	}
}

func TestExtractorToleratesCodeFences(t *testing.T) {
	stub := &stubModel{response: "```json\n{\"name\": \"Bob\"}\n```"}
	e := NewExtractor(stub)

	got, err := e.Extract(context.Background(), "resume")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "Bob" {
		t.Fatalf("expected Bob, got %q", got.Name)
	}
}

func TestExtractorRejectsNonJSON(t *testing.T) {
	stub := &stubModel{response: "I could not parse this resume, sorry."}
	e := NewExtractor(stub)

	_, err := e.Extract(context.Background(), "resume")
	if !errors.Is(err, llm.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestExtractorRejectsSchemaViolations(t *testing.T) {
	cases := []struct {
		name     string
		response string
	}{
		{"negative experience", `{"name": "X", "experience_years": -3}`},
		{"skills not strings", `{"name": "X", "skills": [1, 2]}`},
		{"name not string", `{"name": 42}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := NewExtractor(&stubModel{response: tc.response})
			_, err := e.Extract(context.Background(), "resume")
			if !errors.Is(err, llm.ErrUpstream) {
				t.Fatalf("expected upstream error, got %v", err)
			}
		})
	}
}

func TestExtractorPropagatesModelError(t *testing.T) {
	want := errors.New("boom")
	e := NewExtractor(&stubModel{err: want})

	_, err := e.Extract(context.Background(), "resume")
	if !errors.Is(err, want) {
		t.Fatalf("expected model error passthrough, got %v", err)
	}
}

func TestExtractorEmptyText(t *testing.T) {
	e := NewExtractor(&stubModel{})
	if _, err := e.Extract(context.Background(), "   \n "); err == nil {
		t.Fatal("expected error for empty resume text")
	}
}

func TestExtractorTruncatesLongResumes(t *testing.T) {
	stub := &stubModel{response: `{"name": "X"}`}
	e := NewExtractor(stub)

	long := strings.Repeat("a", 20_000)
	if _, err := e.Extract(context.Background(), long); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stub.lastUser) > 13_000 {
		t.Fatalf("expected truncated prompt, got %d chars", len(stub.lastUser))
	}
}

func TestExtractorTruncatesOnRuneBoundary(t *testing.T) {
	stub := &stubModel{response: `{"name": "X"}`}
	e := NewExtractor(stub)

	// Multi-byte runes must not be split at the truncation point.
	long := strings.Repeat("é", 10_000) // 20k bytes of 2-byte runes
	if _, err := e.Extract(context.Background(), long); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !utf8.ValidString(stub.lastUser) {
		t.Fatal("truncated prompt is not valid UTF-8")
	}
}
