package models

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// FeatureKind classifies a configurable backend capability.
type FeatureKind string

const (
	KindCRUD      FeatureKind = "CRUD"
	KindAuth      FeatureKind = "AUTH"
	KindFunctions FeatureKind = "FUNCTIONS"
	KindAnalytics FeatureKind = "ANALYTICS"
	KindCustom    FeatureKind = "CUSTOM"
)

// Singleton reports whether at most one feature of this kind may exist per
// project. A renamed singleton must merge into the existing record during
// reconciliation instead of creating a duplicate.
func (k FeatureKind) Singleton() bool {
	return k == KindAuth
}

// GenerationMode represents how a feature's configuration is produced.
type GenerationMode string

const (
	ModeManual GenerationMode = "manual"
	ModeAI     GenerationMode = "ai"
	ModeMixed  GenerationMode = "mixed"
)

// FeatureStatus represents the lifecycle state of a feature within the wizard.
type FeatureStatus string

const (
	StatusPending    FeatureStatus = "pending"
	StatusConfigured FeatureStatus = "configured"
	StatusTested     FeatureStatus = "tested"
)

// localIDPrefix marks identifiers minted in memory before the platform has
// acknowledged creation.
const localIDPrefix = "local-"

// Feature represents one configurable backend capability (CRUD table, auth
// block, function, analytics report, ...).
//
// Config is the single source of truth for feature-specific settings.
// Configuration is the persistence layer's legacy alias for the same payload;
// Normalize keeps the two pointing at identical data, and every mutation path
// in this module re-normalizes so readers never observe divergence.
type Feature struct {
	ID            string         `json:"id" validate:"required"`
	ProjectID     string         `json:"project_id,omitempty"`
	Name          string         `json:"name" validate:"required,min=1,max=255"`
	Kind          FeatureKind    `json:"feature_type,omitempty"`
	Mode          GenerationMode `json:"generation_mode,omitempty" validate:"omitempty,oneof=manual ai mixed"`
	Status        FeatureStatus  `json:"status,omitempty" validate:"omitempty,oneof=pending configured tested"`
	Config        map[string]any `json:"config,omitempty"`
	Configuration map[string]any `json:"configuration,omitempty"`
}

// NewFeature creates an in-memory feature with a temporary local identifier.
// The ID is replaced with a durable one once the platform acknowledges
// creation.
func NewFeature(name string, kind FeatureKind) Feature {
	f := Feature{
		ID:     localIDPrefix + uuid.NewString(),
		Name:   name,
		Kind:   kind,
		Mode:   ModeManual,
		Status: StatusPending,
		Config: map[string]any{},
	}
	f.Normalize()
	return f
}

// HasDurableID reports whether the feature carries a platform-assigned
// identifier.
func (f Feature) HasDurableID() bool {
	return f.ID != "" && !strings.HasPrefix(f.ID, localIDPrefix)
}

// Normalize reconciles the Config/Configuration alias pair in place. Whichever
// side is populated wins; afterwards both fields reference the same map, so
// they cannot drift apart between normalizations.
func (f *Feature) Normalize() {
	switch {
	case f.Config != nil:
		f.Configuration = f.Config
	case f.Configuration != nil:
		f.Config = f.Configuration
	default:
		f.Config = map[string]any{}
		f.Configuration = f.Config
	}
}

// SetConfig replaces the configuration payload and keeps the alias in sync.
func (f *Feature) SetConfig(cfg map[string]any) {
	if cfg == nil {
		cfg = map[string]any{}
	}
	f.Config = cfg
	f.Configuration = cfg
}

// ParseKind maps a free-form kind string (platform records, AI plan entries)
// to a FeatureKind. Unknown non-empty values classify as CUSTOM; the empty
// string stays empty so callers can apply their own default.
func ParseKind(s string) FeatureKind {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "":
		return ""
	case "CRUD":
		return KindCRUD
	case "AUTH", "AUTHENTICATION":
		return KindAuth
	case "FUNCTIONS", "FUNCTION":
		return KindFunctions
	case "ANALYTICS":
		return KindAnalytics
	default:
		return KindCustom
	}
}

// KindOf classifies a feature record. It is pure and deterministic: the same
// record always classifies the same way. Legacy records without an explicit
// kind fall back to a name heuristic: a record named "Auth" is AUTH,
// everything else is CUSTOM.
func KindOf(f Feature) FeatureKind {
	if k := ParseKind(string(f.Kind)); k != "" {
		return k
	}
	if strings.EqualFold(strings.TrimSpace(f.Name), "auth") {
		return KindAuth
	}
	return KindCustom
}

// global validator instance, shared with the project model.
var validate = validator.New()

// ValidateStruct performs validation on any struct carrying validation tags.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, fmt.Sprintf("field '%s' failed rule '%s' (value: '%v')", e.StructNamespace(), e.Tag(), e.Value()))
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}
