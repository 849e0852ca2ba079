package planner

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/backforge/backforge/models"
	"github.com/backforge/backforge/types"
)

// fakeChatModel returns scripted responses and records the prompts it saw.
type fakeChatModel struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (f *fakeChatModel) Generate(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	i := f.calls
	f.calls++
	if len(in) > 0 {
		f.prompts = append(f.prompts, in[len(in)-1].Content)
	}
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i >= len(f.responses) {
		return nil, errors.New("no scripted response")
	}
	return schema.AssistantMessage(f.responses[i], nil), nil
}

func (f *fakeChatModel) Stream(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not supported")
}

func newTestGenerator(fake *fakeChatModel) *Generator {
	g := NewGenerator(GeneratorConfig{LLM: Config{Provider: ProviderOllama, Model: "test"}})
	g.chatModel = &CloseableChatModel{BaseChatModel: fake}
	return g
}

const validPlanJSON = `{
  "project_info": {"name": "Shop", "description": "An online shop"},
  "features": [
    {"name": "Products", "type": "CRUD", "config": {"table": "products"}},
    {"name": "Auth", "type": "AUTH", "config": {"auth_type": "jwt"}}
  ]
}`

func TestGeneratePlanSuccess(t *testing.T) {
	fake := &fakeChatModel{responses: []string{"```json\n" + validPlanJSON + "\n```"}}
	g := newTestGenerator(fake)

	res, err := g.GeneratePlan(context.Background(), "build me a shop", nil)
	if err != nil {
		t.Fatalf("GeneratePlan: %v", err)
	}
	if res.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", res.Attempts)
	}
	if res.Plan.ProjectInfo.Name != "Shop" {
		t.Errorf("plan = %+v", res.Plan)
	}
	if len(res.Plan.Features) != 2 || res.Plan.Features[0].Name != "Products" {
		t.Errorf("features = %+v", res.Plan.Features)
	}
	if !strings.Contains(fake.prompts[0], "build me a shop") {
		t.Error("user request not in prompt")
	}
	if strings.Contains(fake.prompts[0], "CURRENT PROJECT STATE") {
		t.Error("empty context should not be injected")
	}
}

func TestGeneratePlanInjectsCurrentState(t *testing.T) {
	fake := &fakeChatModel{responses: []string{validPlanJSON}}
	g := newTestGenerator(fake)

	planCtx := &types.PlanContext{
		ProjectInfo: &types.PlanProjectInfo{Name: "Shop"},
		Features:    []types.PlanFeature{{Name: "Products", Type: "CRUD"}},
	}
	if _, err := g.GeneratePlan(context.Background(), "add auth", planCtx); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(fake.prompts[0], "CURRENT PROJECT STATE") {
		t.Error("context header missing from prompt")
	}
	if !strings.Contains(fake.prompts[0], "Products") {
		t.Error("existing features missing from prompt")
	}
}

func TestGeneratePlanRetriesWithFeedback(t *testing.T) {
	fake := &fakeChatModel{responses: []string{
		"sorry, I can only answer in prose",
		validPlanJSON,
	}}
	g := newTestGenerator(fake)

	res, err := g.GeneratePlan(context.Background(), "build me a shop", nil)
	if err != nil {
		t.Fatalf("GeneratePlan: %v", err)
	}
	if res.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", res.Attempts)
	}
	if !strings.Contains(fake.prompts[1], "PREVIOUS ATTEMPT FAILED") {
		t.Error("retry prompt missing error feedback")
	}
}

func TestGeneratePlanValidationFeedback(t *testing.T) {
	// Shape-valid JSON but an unnamed project fails plan validation.
	fake := &fakeChatModel{responses: []string{
		`{"project_info": {"name": ""}, "features": []}`,
		validPlanJSON,
	}}
	g := newTestGenerator(fake)

	res, err := g.GeneratePlan(context.Background(), "build me a shop", nil)
	if err != nil {
		t.Fatalf("GeneratePlan: %v", err)
	}
	if res.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", res.Attempts)
	}
	if !strings.Contains(fake.prompts[1], "project_info.name") {
		t.Error("validation detail missing from retry prompt")
	}
}

func TestGeneratePlanGivesUpAfterMaxRetries(t *testing.T) {
	fake := &fakeChatModel{responses: []string{"nope", "still nope", "prose again"}}
	g := newTestGenerator(fake)

	if _, err := g.GeneratePlan(context.Background(), "build me a shop", nil); err == nil {
		t.Fatal("expected failure after exhausting retries")
	}
	if fake.calls != MaxGenerationRetries {
		t.Errorf("calls = %d, want %d", fake.calls, MaxGenerationRetries)
	}
}

func TestGenerateConfig(t *testing.T) {
	fake := &fakeChatModel{responses: []string{`{"auth_type":"jwt","providers":["email"]}`}}
	g := newTestGenerator(fake)

	cfg, err := g.GenerateConfig(context.Background(), models.KindAuth, "jwt auth with email", nil)
	if err != nil {
		t.Fatalf("GenerateConfig: %v", err)
	}
	if cfg["auth_type"] != "jwt" {
		t.Errorf("config = %v", cfg)
	}
	if !strings.Contains(fake.prompts[0], "Authentication") {
		t.Error("auth-specific prompt not used")
	}
}

func TestValidateProvider(t *testing.T) {
	for _, p := range []string{"openai", "ollama", "anthropic", "gemini"} {
		if _, err := ValidateProvider(p); err != nil {
			t.Errorf("ValidateProvider(%q): %v", p, err)
		}
	}
	if _, err := ValidateProvider("bard"); err == nil {
		t.Error("unknown provider accepted")
	}
}
