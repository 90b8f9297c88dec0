// Package summary produces structured profile summaries for clients
// using a local Ollama model. Output is validated against a JSON
// schema before anyone sees it; low-confidence results are rejected
// rather than surfaced.
package summary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/qri-io/jsonschema"
	"github.com/talentdesk/backoffice/internal/config"
	"github.com/talentdesk/backoffice/pkg/models"
	"github.com/talentdesk/backoffice/pkg/ollama"
)

// ErrLowConfidence marks a model response below the configured floor.
var ErrLowConfidence = errors.New("summary confidence below threshold")

// ProfileSummary is the structured response expected from the model.
type ProfileSummary struct {
	Headline   string   `json:"headline"`
	Summary    string   `json:"summary"`
	Skills     []string `json:"skills"`
	Risks      []string `json:"risks,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`

	// Raw keeps the original model output for auditing.
	Raw string `json:"-"`
}

// Summarizer is what the API layer depends on.
type Summarizer interface {
	Summarize(ctx context.Context, client models.Client, regs []models.Registration) (*ProfileSummary, error)
}

// responseSchema constrains the model output. Extra fields are
// tolerated; missing required ones are not.
const responseSchema = `{
	"type": "object",
	"required": ["headline", "summary", "skills"],
	"properties": {
		"headline":   {"type": "string", "minLength": 1},
		"summary":    {"type": "string", "minLength": 1},
		"skills":     {"type": "array", "items": {"type": "string"}},
		"risks":      {"type": "array", "items": {"type": "string"}},
		"confidence": {"type": "number", "minimum": 0, "maximum": 1}
	}
}`

const promptTemplate = `You are an assistant for a staffing agency back office.
Summarize the client profile below for a placement manager.
Respond with a single JSON object matching this shape:
{"headline": string, "summary": string, "skills": [string], "risks": [string], "confidence": number between 0 and 1}

Client: {{.Client.Name}}
Education: {{.Client.Education}}
Employment history: {{.Client.Employment}}
Visa status: {{.Client.VisaStatus}}
{{if .Registrations}}Enrollments:
{{range .Registrations}}- {{.Service}} ({{.Status}}){{end}}
{{end}}`

// Engine renders the prompt, calls the model, and validates the reply.
type Engine struct {
	client *ollama.Client
	cfg    config.EngineConfig
	schema *jsonschema.Schema
	logger *slog.Logger
}

// NewEngine compiles the response schema and applies config defaults.
func NewEngine(client *ollama.Client, cfg config.EngineConfig, logger *slog.Logger) (*Engine, error) {
	if client == nil {
		return nil, fmt.Errorf("ollama client is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = 0.5
	}
	if logger == nil {
		logger = slog.Default()
	}
	rs := &jsonschema.Schema{}
	if err := json.Unmarshal([]byte(responseSchema), rs); err != nil {
		return nil, fmt.Errorf("compile response schema: %w", err)
	}
	return &Engine{client: client, cfg: cfg, schema: rs, logger: logger}, nil
}

type promptData struct {
	Client        models.Client
	Registrations []promptRegistration
}

type promptRegistration struct {
	Service string
	Status  models.AssignmentStatus
}

// Summarize produces a validated profile summary for one client.
func (e *Engine) Summarize(ctx context.Context, client models.Client, regs []models.Registration) (*ProfileSummary, error) {
	data := promptData{Client: client}
	for _, r := range regs {
		data.Registrations = append(data.Registrations, promptRegistration{Service: r.Service, Status: r.Status()})
	}
	prompt, err := ollama.RenderTemplate(promptTemplate, data)
	if err != nil {
		return nil, fmt.Errorf("render prompt: %w", err)
	}

	ctxReq, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	out, err := e.client.Generate(ctxReq, e.cfg.Model, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	resp, err := e.parse(ctx, out.Text)
	if err != nil {
		e.logger.Warn("summary parse failed", slog.String("client", client.ID), slog.Any("err", err))
		return nil, err
	}
	resp.Raw = out.Text

	confidence := AssessConfidence(resp)
	if confidence < e.cfg.MinConfidence {
		e.logger.Info("summary rejected",
			slog.String("client", client.ID),
			slog.Float64("confidence", confidence),
			slog.Float64("threshold", e.cfg.MinConfidence),
		)
		return nil, fmt.Errorf("%w: %.2f < %.2f", ErrLowConfidence, confidence, e.cfg.MinConfidence)
	}
	return resp, nil
}

// parse extracts the JSON object from the model output and validates
// it against the response schema. Models often wrap the object in
// prose, so everything outside the outermost braces is ignored.
func (e *Engine) parse(ctx context.Context, text string) (*ProfileSummary, error) {
	raw := extractJSON(text)
	if raw == "" {
		return nil, fmt.Errorf("no JSON object in model output")
	}
	errs, err := e.schema.ValidateBytes(ctx, []byte(raw))
	if err != nil {
		return nil, fmt.Errorf("validate response: %w", err)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("response failed schema validation: %v", errs[0])
	}
	var resp ProfileSummary
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &resp, nil
}

// AssessConfidence returns the model-reported confidence, or a
// heuristic score when the model omitted one.
func AssessConfidence(r *ProfileSummary) float64 {
	if r.Confidence != nil {
		return *r.Confidence
	}
	score := 0.0
	if strings.TrimSpace(r.Headline) != "" {
		score += 0.25
	}
	if strings.TrimSpace(r.Summary) != "" {
		score += 0.5
	}
	if len(r.Skills) > 0 {
		score += 0.25
	}
	return score
}

func extractJSON(s string) string {
	first := strings.Index(s, "{")
	last := strings.LastIndex(s, "}")
	if first == -1 || last == -1 || last < first {
		return ""
	}
	return s[first : last+1]
}
