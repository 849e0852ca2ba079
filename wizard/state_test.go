package wizard

import (
	"testing"

	"github.com/backforge/backforge/models"
)

func strPtr(s string) *string { return &s }

func TestUpdateProjectInfoPartial(t *testing.T) {
	s := NewState()
	s = s.UpdateProjectInfo(ProjectInfoPatch{Name: strPtr("Shop")})
	if s.ProjectInfo.Name != "Shop" {
		t.Fatalf("name = %q", s.ProjectInfo.Name)
	}
	s = s.UpdateProjectInfo(ProjectInfoPatch{Description: strPtr("An online shop")})
	if s.ProjectInfo.Name != "Shop" || s.ProjectInfo.Description != "An online shop" {
		t.Errorf("partial update clobbered fields: %+v", s.ProjectInfo)
	}
}

func TestAddFeaturePreservesOrderAndOldSnapshot(t *testing.T) {
	s := NewState()
	s1 := s.AddFeature(models.NewFeature("Products", models.KindCRUD))
	s2 := s1.AddFeature(models.NewFeature("Orders", models.KindCRUD))

	if len(s.Features) != 0 {
		t.Error("original snapshot mutated by AddFeature")
	}
	if len(s1.Features) != 1 {
		t.Errorf("intermediate snapshot has %d features", len(s1.Features))
	}
	if s2.Features[0].Name != "Products" || s2.Features[1].Name != "Orders" {
		t.Errorf("insertion order not preserved: %v", s2.Features)
	}
}

func TestUpdateFeatureConfigAliasing(t *testing.T) {
	f := models.NewFeature("Products", models.KindCRUD)
	s := NewState().AddFeature(f)

	cfg := map[string]any{"table": "products", "fields": []string{"name", "price"}}
	s = s.UpdateFeature(f.ID, FeaturePatch{Config: cfg})

	got, ok := s.FeatureByID(f.ID)
	if !ok {
		t.Fatal("feature lost after update")
	}
	if got.Configuration["table"] != "products" {
		t.Errorf("alias field not updated: %v", got.Configuration)
	}
	// Re-reading the alias must always equal the config that was set.
	got.Config["extra"] = true
	if _, ok := got.Configuration["extra"]; !ok {
		t.Error("config and alias diverged")
	}
}

func TestUpdateFeatureUnknownIDIsNoOp(t *testing.T) {
	s := NewState().AddFeature(models.NewFeature("Products", models.KindCRUD))
	before := s.Features[0]
	s = s.UpdateFeature("nope", FeaturePatch{Name: strPtr("X")})
	if s.Features[0].Name != before.Name {
		t.Error("update of unknown ID changed a feature")
	}
}

func TestRemoveFeature(t *testing.T) {
	a := models.NewFeature("A", models.KindCRUD)
	b := models.NewFeature("B", models.KindCRUD)
	s := NewState().AddFeature(a).AddFeature(b)

	s = s.RemoveFeature(a.ID)
	if len(s.Features) != 1 || s.Features[0].Name != "B" {
		t.Errorf("unexpected features after removal: %v", s.Features)
	}
	s = s.RemoveFeature("nope")
	if len(s.Features) != 1 {
		t.Error("removal of unknown ID changed the list")
	}
}

func TestSetFeaturesNormalizes(t *testing.T) {
	s := NewState().SetFeatures([]models.Feature{
		{ID: "1", Name: "Auth", Configuration: map[string]any{"auth_type": "jwt"}},
	})
	f := s.Features[0]
	if f.Config["auth_type"] != "jwt" {
		t.Errorf("SetFeatures did not normalize aliasing: %v", f.Config)
	}
}

func TestSetProjectIDOnce(t *testing.T) {
	s := NewState()
	s = s.SetProjectID("")
	if s.ProjectID != "" {
		t.Error("empty ID should be a no-op")
	}
	s = s.SetProjectID("42")
	s = s.SetProjectID("43")
	if s.ProjectID != "42" {
		t.Errorf("project ID reassigned: %q", s.ProjectID)
	}
}

func TestStepBounds(t *testing.T) {
	s := NewState()
	s = s.PrevStep()
	if s.Step != StepProjectInfo {
		t.Errorf("PrevStep went below first step: %d", s.Step)
	}
	for i := 0; i < StepCount+3; i++ {
		s = s.NextStep()
	}
	if s.Step != StepCount+1 {
		t.Errorf("NextStep overran completion: %d", s.Step)
	}
	s = s.GoToStep(0)
	if s.Step != StepCount+1 {
		t.Error("GoToStep accepted out-of-range step")
	}
	s = s.GoToStep(StepTesting)
	if s.Step != StepTesting {
		t.Errorf("GoToStep = %d", s.Step)
	}
}

func TestAdoptFeatureID(t *testing.T) {
	f := models.NewFeature("Products", models.KindCRUD)
	s := NewState().AddFeature(f)
	s = s.AdoptFeatureID(f.ID, "101")
	if got := s.Features[0].ID; got != "101" {
		t.Errorf("ID = %q, want 101", got)
	}
	if !s.Features[0].HasDurableID() {
		t.Error("adopted ID should be durable")
	}
	s = s.AdoptFeatureID("unknown", "102")
	if s.Features[0].ID != "101" {
		t.Error("adoption with unknown local ID changed a feature")
	}
}

func TestValidateStep(t *testing.T) {
	s := NewState()
	errs := ValidateStep(s, StepProjectInfo)
	if errs["name"] == "" || errs["description"] == "" {
		t.Errorf("expected name and description errors, got %v", errs)
	}

	s = s.UpdateProjectInfo(ProjectInfoPatch{Name: strPtr("  "), Description: strPtr("desc")})
	errs = ValidateStep(s, StepProjectInfo)
	if errs["name"] == "" {
		t.Error("whitespace-only name should fail validation")
	}

	s = s.UpdateProjectInfo(ProjectInfoPatch{Name: strPtr("Shop")})
	if errs := ValidateStep(s, StepProjectInfo); len(errs) != 0 {
		t.Errorf("valid project info rejected: %v", errs)
	}

	if errs := ValidateStep(s, StepFeatures); errs["features"] == "" {
		t.Error("empty selection should fail the feature step")
	}
	s = s.AddFeature(models.NewFeature("CRUD 1", models.KindCRUD))
	if errs := ValidateStep(s, StepFeatures); len(errs) != 0 {
		t.Errorf("non-empty selection rejected: %v", errs)
	}

	for _, step := range []int{StepGenerationMode, StepConfiguration, StepTesting, StepDownload} {
		if errs := ValidateStep(NewState(), step); len(errs) != 0 {
			t.Errorf("step %d should have no blocking predicate, got %v", step, errs)
		}
	}
}
