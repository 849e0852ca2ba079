package prompts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PromptKey is a type for identifying specific prompts.
type PromptKey string

const (
	// KeyGeneratePlan is the key for the chat-mode project planning prompt.
	KeyGeneratePlan PromptKey = "GeneratePlan"
	// KeyGenerateCRUDConfig is the key for the CRUD feature config prompt.
	KeyGenerateCRUDConfig PromptKey = "GenerateCRUDConfig"
	// KeyGenerateAuthConfig is the key for the auth feature config prompt.
	KeyGenerateAuthConfig PromptKey = "GenerateAuthConfig"
	// KeyGenerateFunctionsConfig is the key for the custom function config prompt.
	KeyGenerateFunctionsConfig PromptKey = "GenerateFunctionsConfig"
	// KeyGenerateAnalyticsConfig is the key for the analytics config prompt.
	KeyGenerateAnalyticsConfig PromptKey = "GenerateAnalyticsConfig"
)

// promptConfig defines the default content and filename for a prompt.
type promptConfig struct {
	defaultContent string
	filename       string
}

// promptRegistry maps a PromptKey to its configuration.
var promptRegistry = map[PromptKey]promptConfig{
	KeyGeneratePlan: {
		defaultContent: GeneratePlanSystemPrompt,
		filename:       "generate_plan_prompt.txt",
	},
	KeyGenerateCRUDConfig: {
		defaultContent: GenerateCRUDConfigSystemPrompt,
		filename:       "generate_crud_config_prompt.txt",
	},
	KeyGenerateAuthConfig: {
		defaultContent: GenerateAuthConfigSystemPrompt,
		filename:       "generate_auth_config_prompt.txt",
	},
	KeyGenerateFunctionsConfig: {
		defaultContent: GenerateFunctionsConfigSystemPrompt,
		filename:       "generate_functions_config_prompt.txt",
	},
	KeyGenerateAnalyticsConfig: {
		defaultContent: GenerateAnalyticsConfigSystemPrompt,
		filename:       "generate_analytics_config_prompt.txt",
	},
}

// GetPrompt searches for a user-provided prompt file in the project's templates
// directory. If found, it returns the content of that file. Otherwise, it returns
// the hardcoded default prompt content.
func GetPrompt(key PromptKey, templatesDir string) (string, error) {
	config, ok := promptRegistry[key]
	if !ok {
		return "", fmt.Errorf("unrecognized prompt key: %s", key)
	}

	// If templatesDir is not configured or is empty, always use default.
	if strings.TrimSpace(templatesDir) == "" {
		return config.defaultContent, nil
	}

	customPromptPath := filepath.Join(templatesDir, config.filename)

	if _, err := os.Stat(customPromptPath); err == nil {
		content, readErr := os.ReadFile(customPromptPath)
		if readErr != nil {
			return "", fmt.Errorf("failed to read custom prompt file at %s: %w", customPromptPath, readErr)
		}
		return string(content), nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("error checking for custom prompt file at %s: %w", customPromptPath, err)
	}

	return config.defaultContent, nil
}
