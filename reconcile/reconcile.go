// Package reconcile merges an AI-produced feature plan into the previously
// persisted feature set. Plans are exhaustive, never partial diffs, so every
// previous feature the plan no longer mentions is deleted. Durable IDs are
// preserved wherever an existing feature is merely edited rather than
// replaced.
package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/backforge/backforge/models"
	"github.com/backforge/backforge/store"
	"github.com/backforge/backforge/types"
)

// Create adds a feature the plan introduced.
type Create struct {
	Name   string
	Kind   models.FeatureKind
	Config map[string]any
}

// Update rewrites a matched feature in place, keeping its durable ID.
type Update struct {
	ID     string
	Name   string
	Kind   models.FeatureKind
	Config map[string]any
}

// Delete removes a previous feature the plan no longer contains.
type Delete struct {
	ID string
}

// Ops is one reconciliation pass's output. Deletes never target an ID that
// also appears in Updates, so the three groups may be applied in any order.
type Ops struct {
	Creates []Create
	Updates []Update
	Deletes []Delete
}

// Empty reports whether the pass produced no work.
func (o Ops) Empty() bool {
	return len(o.Creates) == 0 && len(o.Updates) == 0 && len(o.Deletes) == 0
}

// planKind resolves a plan entry's kind string. Entries without a kind
// default to CRUD, the most common capability.
func planKind(pf types.PlanFeature) models.FeatureKind {
	if k := models.ParseKind(pf.Type); k != "" {
		return k
	}
	return models.KindCRUD
}

// Plan computes the operations that transform previous into exactly the
// feature set the plan implies.
//
// Each plan entry first tries an exact name match against previous. Entries
// of a singleton kind that miss by name fall back to matching any previous
// feature of that kind: at most one instance of a singleton kind may exist,
// so a rename must resolve to the existing record instead of creating a
// duplicate. Matched entries become updates carrying the durable ID;
// unmatched entries become creates. Previous features left unmatched become
// deletes, except singleton-kind records when the plan still contains that
// kind (those were merged, not orphaned).
//
// Plan is pure and idempotent: re-running it against the list that results
// from applying its output yields only updates, never duplicate creates.
func Plan(previous []models.Feature, planFeatures []types.PlanFeature) Ops {
	var ops Ops
	matched := make(map[string]bool, len(previous))
	planSingletons := map[models.FeatureKind]bool{}
	for _, pf := range planFeatures {
		if k := planKind(pf); k.Singleton() {
			planSingletons[k] = true
		}
	}

	for _, pf := range planFeatures {
		kind := planKind(pf)
		var target *models.Feature
		for i := range previous {
			if previous[i].Name == pf.Name {
				target = &previous[i]
				break
			}
		}
		if target == nil && kind.Singleton() {
			for i := range previous {
				if models.KindOf(previous[i]) == kind {
					target = &previous[i]
					break
				}
			}
		}
		if target != nil {
			matched[target.ID] = true
			ops.Updates = append(ops.Updates, Update{
				ID:     target.ID,
				Name:   pf.Name,
				Kind:   kind,
				Config: pf.ConfigMap(),
			})
			continue
		}
		ops.Creates = append(ops.Creates, Create{
			Name:   pf.Name,
			Kind:   kind,
			Config: pf.ConfigMap(),
		})
	}

	for _, prev := range previous {
		if matched[prev.ID] {
			continue
		}
		if k := models.KindOf(prev); k.Singleton() && planSingletons[k] {
			continue
		}
		ops.Deletes = append(ops.Deletes, Delete{ID: prev.ID})
	}

	return ops
}

// Apply executes a pass's operations against the feature store. The batch is
// not atomic: each operation runs independently and failures are collected.
// A partial failure leaves a mixed state that the next reconciliation pass
// converges, since Plan is idempotent against the partially updated list.
func Apply(ctx context.Context, features store.FeatureStore, projectID string, ops Ops) error {
	var errs []error

	for _, cr := range ops.Creates {
		f := models.NewFeature(cr.Name, cr.Kind)
		f.Mode = models.ModeAI
		f.SetConfig(cr.Config)
		if _, err := features.CreateFeature(ctx, projectID, f); err != nil {
			errs = append(errs, fmt.Errorf("create feature %q: %w", cr.Name, err))
		}
	}

	for _, up := range ops.Updates {
		_, err := features.UpdateFeature(ctx, up.ID, map[string]any{
			"name":          up.Name,
			"feature_type":  string(up.Kind),
			"configuration": up.Config,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("update feature %s: %w", up.ID, err))
		}
	}

	for _, del := range ops.Deletes {
		if err := features.DeleteFeature(ctx, del.ID); err != nil {
			errs = append(errs, fmt.Errorf("delete feature %s: %w", del.ID, err))
		}
	}

	return errors.Join(errs...)
}
