package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"strings"
	"text/template"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/backforge/backforge/models"
	"github.com/backforge/backforge/prompts"
	"github.com/backforge/backforge/types"
)

const (
	// MaxGenerationRetries is the maximum number of retry attempts for validation failures
	MaxGenerationRetries = 3

	// RetryDelay is the delay between retries
	RetryDelay = 500 * time.Millisecond
)

// GeneratorConfig configures the structured generator.
type GeneratorConfig struct {
	LLM Config
	// TemplatesDir holds optional per-project prompt overrides.
	TemplatesDir string
}

// Generator produces validated structured output from an LLM. It implements
// Planner.
type Generator struct {
	cfg       GeneratorConfig
	chatModel *CloseableChatModel
}

// NewGenerator creates a new structured generator.
func NewGenerator(cfg GeneratorConfig) *Generator {
	return &Generator{cfg: cfg}
}

// Close releases LLM resources.
func (g *Generator) Close() error {
	if g.chatModel != nil {
		return g.chatModel.Close()
	}
	return nil
}

// generationResult contains the raw outcome of a structured generation.
type generationResult[T any] struct {
	Result    T
	RawOutput string
	Attempts  int
	Duration  time.Duration
}

// GeneratePlan generates a validated project plan with retry logic. If
// validation fails, the error is fed back to the LLM for self-correction.
func (g *Generator) GeneratePlan(ctx context.Context, prompt string, planCtx *types.PlanContext) (*types.PlanResult, error) {
	system, err := prompts.GetPrompt(prompts.KeyGeneratePlan, g.cfg.TemplatesDir)
	if err != nil {
		return nil, fmt.Errorf("load plan prompt: %w", err)
	}

	contextJSON := ""
	if planCtx != nil && (planCtx.ProjectInfo != nil || len(planCtx.Features) > 0) {
		b, err := json.MarshalIndent(planCtx, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal plan context: %w", err)
		}
		contextJSON = string(b)
	}

	res, err := generateWithRetry(
		ctx,
		g,
		planPromptTemplate,
		map[string]any{
			"System":  system,
			"Context": contextJSON,
			"Request": prompt,
		},
		func(p *types.ProjectPlan) error {
			return p.Validate()
		},
	)
	if err != nil {
		return nil, err
	}

	return &types.PlanResult{
		Plan:     &res.Result,
		Raw:      res.RawOutput,
		Model:    g.cfg.LLM.Model,
		Attempts: res.Attempts,
	}, nil
}

// GenerateConfig generates a kind-specific feature configuration payload.
func (g *Generator) GenerateConfig(ctx context.Context, kind models.FeatureKind, prompt string, base map[string]any) (map[string]any, error) {
	system, err := prompts.GetPrompt(configPromptKey(kind), g.cfg.TemplatesDir)
	if err != nil {
		return nil, fmt.Errorf("load config prompt: %w", err)
	}

	baseJSON := ""
	if len(base) > 0 {
		b, err := json.MarshalIndent(base, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal base config: %w", err)
		}
		baseJSON = string(b)
	}

	res, err := generateWithRetry(
		ctx,
		g,
		configPromptTemplate,
		map[string]any{
			"System":     system,
			"BaseConfig": baseJSON,
			"Request":    prompt,
		},
		func(cfg *map[string]any) error {
			if len(*cfg) == 0 {
				return fmt.Errorf("generated configuration is empty")
			}
			return nil
		},
	)
	if err != nil {
		return nil, err
	}
	return res.Result, nil
}

// configPromptKey picks the kind-specific prompt; unknown kinds reuse the
// CRUD prompt as the closest generic schema.
func configPromptKey(kind models.FeatureKind) prompts.PromptKey {
	switch kind {
	case models.KindAuth:
		return prompts.KeyGenerateAuthConfig
	case models.KindFunctions:
		return prompts.KeyGenerateFunctionsConfig
	case models.KindAnalytics:
		return prompts.KeyGenerateAnalyticsConfig
	default:
		return prompts.KeyGenerateCRUDConfig
	}
}

// generateWithRetry is the core generation loop with validation and error feedback.
func generateWithRetry[T any](
	ctx context.Context,
	g *Generator,
	promptTemplate string,
	input map[string]any,
	validate func(*T) error,
) (*generationResult[T], error) {
	start := time.Now()

	if g.chatModel == nil {
		model, err := NewCloseableChatModel(ctx, g.cfg.LLM)
		if err != nil {
			return nil, fmt.Errorf("create chat model: %w", err)
		}
		g.chatModel = model
	}

	tmpl, err := template.New("prompt").Parse(promptTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}

	var lastRaw string
	var lastErr error
	var validationErrors string

	for attempt := 1; attempt <= MaxGenerationRetries; attempt++ {
		promptInput := copyMap(input)
		if validationErrors != "" {
			promptInput["ValidationErrors"] = validationErrors
		}

		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, promptInput); err != nil {
			return nil, fmt.Errorf("execute template: %w", err)
		}

		messages := []*schema.Message{
			schema.UserMessage(buf.String()),
		}

		resp, err := g.chatModel.Generate(ctx, messages)
		if err != nil {
			lastErr = fmt.Errorf("LLM generate: %w", err)
			if isTransientError(err) && attempt < MaxGenerationRetries {
				time.Sleep(RetryDelay * time.Duration(attempt))
				continue
			}
			return nil, lastErr
		}

		lastRaw = resp.Content

		var result T
		result, err = ExtractAndParseJSON[T](resp.Content)
		if err != nil {
			lastErr = fmt.Errorf("parse JSON (attempt %d): %w", attempt, err)
			validationErrors = formatErrorFeedback("JSON Parse Error", err.Error(), resp.Content)
			if attempt < MaxGenerationRetries {
				time.Sleep(RetryDelay)
				continue
			}
			return nil, lastErr
		}

		if verr := validate(&result); verr != nil {
			lastErr = fmt.Errorf("validation failed (attempt %d): %w", attempt, verr)
			validationErrors = formatErrorFeedback("Schema Validation Error", verr.Error(), resp.Content)
			if attempt < MaxGenerationRetries {
				time.Sleep(RetryDelay)
				continue
			}
			return nil, lastErr
		}

		return &generationResult[T]{
			Result:    result,
			RawOutput: lastRaw,
			Attempts:  attempt,
			Duration:  time.Since(start),
		}, nil
	}

	return nil, fmt.Errorf("generation failed after %d attempts: %w", MaxGenerationRetries, lastErr)
}

// formatErrorFeedback creates a prompt section for error feedback.
func formatErrorFeedback(errorType, errorMsg, rawOutput string) string {
	truncated := rawOutput
	if len(truncated) > 500 {
		truncated = truncated[:500] + "... [truncated]"
	}

	return fmt.Sprintf(`
PREVIOUS ATTEMPT FAILED - PLEASE FIX

Error Type: %s
Error: %s

Your previous output (which failed):
%s

Please ensure your response is valid JSON matching the required schema.
`, errorType, errorMsg, truncated)
}

// copyMap creates a shallow copy of a map.
func copyMap(m map[string]any) map[string]any {
	result := make(map[string]any, len(m))
	maps.Copy(result, m)
	return result
}

// isTransientError checks if an error is transient and worth retrying.
func isTransientError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())

	if strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "quota exceeded") {
		return true
	}

	if strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection") ||
		strings.Contains(errStr, "temporary") {
		return true
	}

	return false
}

// Prompt templates with support for validation error feedback.
const planPromptTemplate = `{{.System}}
{{if .Context}}
CURRENT PROJECT STATE (Refine this based on user request):
{{.Context}}
{{end}}{{if .ValidationErrors}}
{{.ValidationErrors}}
{{end}}
User Request: {{.Request}}

JSON Plan:`

const configPromptTemplate = `{{.System}}
{{if .BaseConfig}}
CURRENT CONFIGURATION:
{{.BaseConfig}}
{{end}}{{if .ValidationErrors}}
{{.ValidationErrors}}
{{end}}
User Description: {{.Request}}

JSON:`
