package match

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/talentmatch/backend/pkg/candidate"
	"github.com/talentmatch/backend/pkg/job"
	"github.com/talentmatch/backend/pkg/llm"
)

const scoreMaxTokens = 800

const scoreSystemPrompt = `You are an expert recruiter. Analyze the match between a candidate and a job posting. Return JSON with this format:
{
  "match_score": number (0-100),
  "explanation": "Brief explanation of the match quality and key factors",
  "matching_skills": ["skill1", "skill2"],
  "missing_skills": ["skill1", "skill2"]
}

Scoring criteria:
- 90-100: Excellent match, candidate exceeds requirements
- 80-89: Very good match, candidate meets most requirements with some strengths
- 70-79: Good match, candidate meets basic requirements
- 60-69: Fair match, candidate partially meets requirements
- 50-59: Weak match, candidate has some relevant experience
- 0-49: Poor match, candidate lacks key requirements

Return ONLY the JSON object, no markdown, no code fences.`

// scoreSchema requires match_score but leaves its range unchecked: out-of-range
// scores are clamped rather than rejected.
const scoreSchema = `{
	"type": "object",
	"required": ["match_score"],
	"properties": {
		"match_score": {"type": "number"},
		"explanation": {"type": ["string", "null"]},
		"matching_skills": {"type": ["array", "null"], "items": {"type": "string"}},
		"missing_skills": {"type": ["array", "null"], "items": {"type": "string"}}
	}
}`

var scoreSchemaCompiled = gojsonschema.NewStringLoader(scoreSchema)

// Assessment is the scorer's verdict for one (job, candidate) pair.
type Assessment struct {
	Score          int      `json:"match_score"`
	Explanation    string   `json:"explanation"`
	MatchingSkills []string `json:"matching_skills"`
	MissingSkills  []string `json:"missing_skills"`
}

// Scorer asks the completion service how well one candidate fits one job
// posting. Failures here are per-pair: callers log and move on.
type Scorer struct {
	llm llm.ChatModel
}

func NewScorer(model llm.ChatModel) *Scorer {
	return &Scorer{llm: model}
}

func (s *Scorer) Score(ctx context.Context, j job.Posting, c candidate.Candidate) (Assessment, error) {
	user := fmt.Sprintf(`
Job Posting:
Title: %s
Description: %s
Requirements: %s
Skills Required: %s

Candidate:
Name: %s
Experience: %d years
Skills: %s
Education: %s
Summary: %s

Please analyze the match quality and provide a detailed assessment.`,
		j.Title,
		orNotSpecified(j.Description),
		orNotSpecified(j.Requirements),
		joinOrNotSpecified(j.Skills),
		c.Name,
		c.ExperienceYears,
		joinOrNotSpecified(c.Skills),
		derefOrNotSpecified(c.Education),
		orNotSpecified(c.Summary),
	)

	raw, err := s.llm.Ask(ctx, scoreSystemPrompt, user, scoreMaxTokens)
	if err != nil {
		return Assessment{}, err
	}

	doc, err := extractJSONObject(raw)
	if err != nil {
		return Assessment{}, fmt.Errorf("%w: %v", llm.ErrUpstream, err)
	}
	res, err := gojsonschema.Validate(scoreSchemaCompiled, gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return Assessment{}, fmt.Errorf("%w: validate reply: %v", llm.ErrUpstream, err)
	}
	if !res.Valid() {
		return Assessment{}, fmt.Errorf("%w: reply does not match schema: %s", llm.ErrUpstream, schemaErrors(res))
	}

	var payload struct {
		Score          float64  `json:"match_score"`
		Explanation    string   `json:"explanation"`
		MatchingSkills []string `json:"matching_skills"`
		MissingSkills  []string `json:"missing_skills"`
	}
	if err := json.Unmarshal(doc, &payload); err != nil {
		return Assessment{}, fmt.Errorf("%w: parse reply: %v", llm.ErrUpstream, err)
	}

	out := Assessment{
		Score:          clampScore(int(payload.Score)),
		Explanation:    payload.Explanation,
		MatchingSkills: payload.MatchingSkills,
		MissingSkills:  payload.MissingSkills,
	}
	if out.MatchingSkills == nil {
		out.MatchingSkills = []string{}
	}
	if out.MissingSkills == nil {
		out.MissingSkills = []string{}
	}
	return out, nil
}

// clampScore forces the score into [0,100]; the upstream service occasionally
// wanders outside the rubric.
func clampScore(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

func orNotSpecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Not specified"
	}
	return s
}

func derefOrNotSpecified(s *string) string {
	if s == nil {
		return "Not specified"
	}
	return orNotSpecified(*s)
}

func joinOrNotSpecified(items []string) string {
	if len(items) == 0 {
		return "Not specified"
	}
	return strings.Join(items, ", ")
}

// extractJSONObject finds the JSON object in a model reply, tolerating
// surrounding prose or code fences.
func extractJSONObject(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if json.Valid([]byte(raw)) {
		return []byte(raw), nil
	}
	if i := strings.Index(raw, "{"); i >= 0 {
		if j := strings.LastIndex(raw, "}"); j > i {
			obj := raw[i : j+1]
			if json.Valid([]byte(obj)) {
				return []byte(obj), nil
			}
		}
	}
	return nil, fmt.Errorf("reply is not a JSON object")
}

func schemaErrors(res *gojsonschema.Result) string {
	var b strings.Builder
	for i, e := range res.Errors() {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(e.String())
	}
	return b.String()
}
