package candidate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xeipuuv/gojsonschema"

	"github.com/talentmatch/backend/pkg/llm"
)

const extractMaxTokens = 1000

const extractSystemPrompt = `You are an expert resume parser. Extract structured information from the resume text and return it as JSON with the following format:
{
  "name": "Full Name",
  "email": "email@example.com",
  "phone": "phone number",
  "experience_years": number,
  "skills": ["skill1", "skill2", "skill3"],
  "education": "Highest education degree and institution",
  "summary": "Brief professional summary"
}

Rules:
- Extract only information that is explicitly mentioned in the resume
- For experience_years, calculate total years of professional experience
- Include only technical and professional skills in the skills array
- Keep the summary under 200 characters
- If information is not available, use null for strings and 0 for numbers
- Return ONLY the JSON object, no markdown, no code fences`

// extractedSchema rejects replies that drift from the requested shape so a
// malformed reply surfaces as an upstream error instead of silently
// defaulting fields.
const extractedSchema = `{
	"type": "object",
	"properties": {
		"name": {"type": ["string", "null"]},
		"email": {"type": ["string", "null"]},
		"phone": {"type": ["string", "null"]},
		"experience_years": {"type": ["integer", "null"], "minimum": 0},
		"skills": {"type": ["array", "null"], "items": {"type": "string"}},
		"education": {"type": ["string", "null"]},
		"summary": {"type": ["string", "null"]}
	}
}`

var extractedSchemaCompiled = gojsonschema.NewStringLoader(extractedSchema)

// Extracted is the candidate information pulled out of raw resume text.
type Extracted struct {
	Name            string   `json:"name"`
	Email           *string  `json:"email"`
	Phone           *string  `json:"phone"`
	ExperienceYears int      `json:"experience_years"`
	Skills          []string `json:"skills"`
	Education       *string  `json:"education"`
	Summary         string   `json:"summary"`
}

// Extractor turns raw resume text into a structured candidate record by
// delegating to the completion service. Any failure — transport, parse, or
// schema — is fatal for the whole extraction: no partial record is returned.
type Extractor struct {
	llm      llm.ChatModel
	maxChars int
}

func NewExtractor(model llm.ChatModel) *Extractor {
	return &Extractor{llm: model, maxChars: 12_000}
}

func (e *Extractor) Extract(ctx context.Context, resumeText string) (Extracted, error) {
	text := strings.TrimSpace(resumeText)
	if text == "" {
		return Extracted{}, fmt.Errorf("empty resume text")
	}
	if len(text) > e.maxChars {
		// Back off to a rune boundary so the prompt stays valid UTF-8.
		cut := e.maxChars
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}

	user := fmt.Sprintf("Please extract information from this resume:\n\n%s", text)
	raw, err := e.llm.Ask(ctx, extractSystemPrompt, user, extractMaxTokens)
	if err != nil {
		return Extracted{}, err
	}

	doc, err := extractJSONObject(raw)
	if err != nil {
		return Extracted{}, fmt.Errorf("%w: %v", llm.ErrUpstream, err)
	}
	res, err := gojsonschema.Validate(extractedSchemaCompiled, gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return Extracted{}, fmt.Errorf("%w: validate reply: %v", llm.ErrUpstream, err)
	}
	if !res.Valid() {
		return Extracted{}, fmt.Errorf("%w: reply does not match schema: %s", llm.ErrUpstream, schemaErrors(res))
	}

	var out Extracted
	if err := json.Unmarshal(doc, &out); err != nil {
		return Extracted{}, fmt.Errorf("%w: parse reply: %v", llm.ErrUpstream, err)
	}
	if strings.TrimSpace(out.Name) == "" {
		out.Name = "Unknown"
	}
	if out.Skills == nil {
		out.Skills = []string{}
	}
	return out, nil
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
			candidate := raw[i : j+1]
			if json.Valid([]byte(candidate)) {
				return []byte(candidate), nil
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
