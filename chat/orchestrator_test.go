package chat

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/backforge/backforge/models"
	"github.com/backforge/backforge/store"
	"github.com/backforge/backforge/types"
	"github.com/backforge/backforge/wizard"
)

// fakePlanner returns queued results in order. A nil result with a non-nil
// error simulates planner failure.
type fakePlanner struct {
	mu       sync.Mutex
	results  []*types.PlanResult
	errs     []error
	contexts []*types.PlanContext
	block    chan struct{}
}

func (p *fakePlanner) GeneratePlan(ctx context.Context, prompt string, planCtx *types.PlanContext) (*types.PlanResult, error) {
	p.mu.Lock()
	p.contexts = append(p.contexts, planCtx)
	var res *types.PlanResult
	var err error
	if len(p.results) > 0 {
		res = p.results[0]
		p.results = p.results[1:]
	}
	if len(p.errs) > 0 {
		err = p.errs[0]
		p.errs = p.errs[1:]
	}
	block := p.block
	p.mu.Unlock()
	if block != nil {
		<-block
	}
	return res, err
}

func (p *fakePlanner) GenerateConfig(ctx context.Context, kind models.FeatureKind, prompt string, base map[string]any) (map[string]any, error) {
	return base, nil
}

// memChatStore is an in-memory Store for orchestrator tests.
type memChatStore struct {
	mu             sync.Mutex
	nextID         int
	projects       map[string]models.Project
	features       map[string]models.Feature
	projectCreates int
	featureCreates int
	featureUpdates int
}

func newMemChatStore() *memChatStore {
	return &memChatStore{
		projects: make(map[string]models.Project),
		features: make(map[string]models.Feature),
	}
}

func (m *memChatStore) id() string {
	m.nextID++
	return strconv.Itoa(m.nextID)
}

func (m *memChatStore) CreateProject(ctx context.Context, info models.ProjectInfo, generationMode string) (models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projectCreates++
	p := models.Project{ID: m.id(), Name: info.Name, Description: info.Description, Status: models.ProjectDraft, GenerationMode: generationMode}
	m.projects[p.ID] = p
	return p, nil
}

func (m *memChatStore) GetProject(ctx context.Context, id string) (models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return models.Project{}, store.ErrNotFound
	}
	return p, nil
}

func (m *memChatStore) UpdateProject(ctx context.Context, id string, updates map[string]any) (models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return models.Project{}, store.ErrNotFound
	}
	if v, ok := updates["name"].(string); ok {
		p.Name = v
	}
	if v, ok := updates["description"].(string); ok {
		p.Description = v
	}
	m.projects[id] = p
	return p, nil
}

func (m *memChatStore) DeleteProject(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.projects, id)
	return nil
}

func (m *memChatStore) ListProjects(ctx context.Context) ([]models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Project
	for _, p := range m.projects {
		out = append(out, p)
	}
	return out, nil
}

func (m *memChatStore) ListFeatures(ctx context.Context, projectID string) ([]models.Feature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Feature
	for _, f := range m.features {
		if f.ProjectID == projectID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *memChatStore) CreateFeature(ctx context.Context, projectID string, f models.Feature) (models.Feature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.featureCreates++
	f.ID = m.id()
	f.ProjectID = projectID
	f.Normalize()
	m.features[f.ID] = f
	return f, nil
}

func (m *memChatStore) UpdateFeature(ctx context.Context, id string, updates map[string]any) (models.Feature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.features[id]
	if !ok {
		return models.Feature{}, store.ErrNotFound
	}
	m.featureUpdates++
	if v, ok := updates["name"].(string); ok {
		f.Name = v
	}
	if v, ok := updates["configuration"].(map[string]any); ok {
		f.SetConfig(v)
	}
	m.features[id] = f
	return f, nil
}

func (m *memChatStore) DeleteFeature(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.features[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.features, id)
	return nil
}

func newChatController(t *testing.T, s *memChatStore) *wizard.Controller {
	t.Helper()
	c := wizard.NewController(s, s, nil)
	if err := c.SelectMode(wizard.FlowChat, 0); err != nil {
		t.Fatalf("SelectMode: %v", err)
	}
	return c
}

func planResult(name string, features ...types.PlanFeature) *types.PlanResult {
	return &types.PlanResult{
		Plan: &types.ProjectPlan{
			ProjectInfo: types.PlanProjectInfo{Name: name, Description: "generated"},
			Features:    features,
		},
		Model:    "fake",
		Attempts: 1,
	}
}

func TestSendFirstTurnCreatesProjectAndFeatures(t *testing.T) {
	ctx := context.Background()
	s := newMemChatStore()
	ctrl := newChatController(t, s)
	p := &fakePlanner{results: []*types.PlanResult{
		planResult("Shop", types.PlanFeature{Name: "Products", Type: "CRUD", Config: map[string]any{"table": "products"}}),
	}}

	h, err := NewHistory(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = h.Close() }()

	o := NewOrchestrator(ctrl, p, s, s, h, nil)
	reply, err := o.Send(ctx, "I want an online shop")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if reply.Role != RoleAssistant || !strings.Contains(reply.Content, "Products") {
		t.Errorf("reply = %+v", reply)
	}

	if s.projectCreates != 1 || s.featureCreates != 1 {
		t.Errorf("creates: projects=%d features=%d", s.projectCreates, s.featureCreates)
	}

	st := ctrl.State()
	if st.ProjectID == "" {
		t.Error("durable project ID not adopted into wizard state")
	}
	if st.ProjectInfo.Name != "Shop" {
		t.Errorf("project info = %+v", st.ProjectInfo)
	}
	if len(st.Features) != 1 || st.Features[0].Name != "Products" || st.Features[0].ID == "" {
		t.Errorf("features = %+v", st.Features)
	}

	// The pre-project transcript was rebound to the new project.
	msgs, err := h.Messages(ctx, st.ProjectID)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 || msgs[0].Role != RoleUser || msgs[1].Role != RoleAssistant {
		t.Errorf("transcript = %+v", msgs)
	}
	orphans, _ := h.Messages(ctx, "")
	if len(orphans) != 0 {
		t.Errorf("pre-project messages not adopted: %+v", orphans)
	}
}

func TestSendSecondTurnUpdatesInsteadOfDuplicating(t *testing.T) {
	ctx := context.Background()
	s := newMemChatStore()
	ctrl := newChatController(t, s)
	p := &fakePlanner{results: []*types.PlanResult{
		planResult("Shop", types.PlanFeature{Name: "Products", Type: "CRUD"}),
		planResult("Shop", types.PlanFeature{Name: "Products", Type: "CRUD", Config: map[string]any{"soft_delete": true}}),
	}}

	o := NewOrchestrator(ctrl, p, s, s, nil, nil)
	if _, err := o.Send(ctx, "shop with products"); err != nil {
		t.Fatal(err)
	}
	if _, err := o.Send(ctx, "add soft delete to products"); err != nil {
		t.Fatal(err)
	}

	if s.projectCreates != 1 {
		t.Errorf("project created %d times", s.projectCreates)
	}
	if s.featureCreates != 1 || s.featureUpdates != 1 {
		t.Errorf("feature ops: creates=%d updates=%d", s.featureCreates, s.featureUpdates)
	}

	st := ctrl.State()
	if len(st.Features) != 1 || st.Features[0].Config["soft_delete"] != true {
		t.Errorf("features = %+v", st.Features)
	}

	// The second turn carried the existing state as planner context.
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.contexts[0] != nil {
		t.Errorf("first turn context = %+v, want nil", p.contexts[0])
	}
	if p.contexts[1] == nil || len(p.contexts[1].Features) != 1 {
		t.Errorf("second turn context = %+v", p.contexts[1])
	}
}

func TestSendPlannerFailureLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	s := newMemChatStore()
	ctrl := newChatController(t, s)
	p := &fakePlanner{errs: []error{errors.New("model unavailable")}}

	o := NewOrchestrator(ctrl, p, s, s, nil, nil)
	reply, err := o.Send(ctx, "build me a shop")
	if err != nil {
		t.Fatalf("Send returned error instead of assistant message: %v", err)
	}
	if reply.Role != RoleAssistant || !strings.Contains(reply.Content, "model unavailable") {
		t.Errorf("reply = %+v", reply)
	}
	if s.projectCreates != 0 || s.featureCreates != 0 {
		t.Error("failed turn touched the store")
	}
	if st := ctrl.State(); st.ProjectID != "" || len(st.Features) != 0 {
		t.Errorf("failed turn touched wizard state: %+v", st)
	}
}

func TestSendMalformedPlanIsNoOp(t *testing.T) {
	ctx := context.Background()
	s := newMemChatStore()
	ctrl := newChatController(t, s)
	p := &fakePlanner{results: []*types.PlanResult{
		{Plan: &types.ProjectPlan{ProjectInfo: types.PlanProjectInfo{Name: "Shop"}}},
	}}

	o := NewOrchestrator(ctrl, p, s, s, nil, nil)
	reply, err := o.Send(ctx, "shop")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(reply.Content, "unchanged") {
		t.Errorf("reply = %q", reply.Content)
	}
	if s.projectCreates != 0 {
		t.Error("malformed plan created a project")
	}
}

func TestSendRejectsConcurrentTurn(t *testing.T) {
	s := newMemChatStore()
	ctrl := newChatController(t, s)
	block := make(chan struct{})
	p := &fakePlanner{
		results: []*types.PlanResult{planResult("Shop")},
		block:   block,
	}

	o := NewOrchestrator(ctrl, p, s, s, nil, nil)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = o.Send(context.Background(), "first")
	}()

	for !o.InFlight() {
		time.Sleep(time.Millisecond)
	}
	if _, err := o.Send(context.Background(), "second"); !errors.Is(err, ErrTurnInFlight) {
		t.Errorf("concurrent Send: %v, want ErrTurnInFlight", err)
	}
	close(block)
	<-done
}

func TestBuildSummaryListsKinds(t *testing.T) {
	plan := &types.ProjectPlan{
		ProjectInfo: types.PlanProjectInfo{Name: "Shop"},
		Features: []types.PlanFeature{
			{Name: "Products", Type: "CRUD"},
			{Name: "Auth", Type: "AUTHENTICATION"},
			{Name: "Mystery", Type: "something-else"},
		},
	}
	got := buildSummary(plan, nil)
	for _, want := range []string{"Products (CRUD)", "Auth (AUTH)", "Mystery (CUSTOM)"} {
		if !strings.Contains(got, want) {
			t.Errorf("summary missing %q:\n%s", want, got)
		}
	}
	withErr := buildSummary(plan, fmt.Errorf("boom"))
	if !strings.Contains(withErr, "retried on your next message") {
		t.Errorf("partial-failure note missing:\n%s", withErr)
	}
}
