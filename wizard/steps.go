package wizard

import "strings"

// Manual-flow steps, in order.
const (
	StepProjectInfo    = 1
	StepFeatures       = 2
	StepGenerationMode = 3
	StepConfiguration  = 4
	StepTesting        = 5
	StepDownload       = 6

	StepCount = 6
)

var stepLabels = map[int]string{
	StepProjectInfo:    "Project Info",
	StepFeatures:       "Feature Selection",
	StepGenerationMode: "Generation Mode",
	StepConfiguration:  "Configuration",
	StepTesting:        "Testing",
	StepDownload:       "Download",
}

// StepLabel returns the display name for a step, or "Done" past the last one.
func StepLabel(step int) string {
	if step > StepCount {
		return "Done"
	}
	if label, ok := stepLabels[step]; ok {
		return label
	}
	return "Unknown"
}

// ValidateStep runs the blocking predicate for a step against a snapshot and
// returns field-keyed error messages. An empty result means the step is valid.
// Only the project-info and feature-selection steps have predicates; every
// other step always passes.
func ValidateStep(s State, step int) map[string]string {
	errs := map[string]string{}
	switch step {
	case StepProjectInfo:
		if strings.TrimSpace(s.ProjectInfo.Name) == "" {
			errs["name"] = "project name is required"
		}
		if strings.TrimSpace(s.ProjectInfo.Description) == "" {
			errs["description"] = "project description is required"
		}
	case StepFeatures:
		if len(s.Features) == 0 {
			errs["features"] = "select at least one feature"
		}
	}
	return errs
}
