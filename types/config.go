package types

// AppConfig represents the complete application configuration
type AppConfig struct {
	Verbose   bool            `mapstructure:"verbose"`
	Config    string          `mapstructure:"config"`
	Project   ProjectConfig   `mapstructure:"project" validate:"required"`
	Data      DataConfig      `mapstructure:"data" validate:"required"`
	Platform  PlatformConfig  `mapstructure:"platform" validate:"omitempty"`
	LLM       LLMConfig       `mapstructure:"llm" validate:"omitempty"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" validate:"omitempty"`
}

// ProjectConfig holds workspace-related settings
type ProjectConfig struct {
	RootDir      string `mapstructure:"rootDir" validate:"required"`
	DraftsDir    string `mapstructure:"draftsDir" validate:"required"`
	TemplatesDir string `mapstructure:"templatesDir" validate:"required"`
	ExportDir    string `mapstructure:"exportDir" validate:"required"`
}

// DataConfig holds local draft storage configuration
type DataConfig struct {
	File   string `mapstructure:"file" validate:"required"`
	Format string `mapstructure:"format" validate:"required,oneof=json yaml"`
}

// PlatformConfig holds connection settings for the hosted platform API.
// When BaseURL is empty the CLI works against the local draft store only.
type PlatformConfig struct {
	BaseURL  string `mapstructure:"baseUrl" validate:"omitempty,url"`
	APIToken string `mapstructure:"apiToken" validate:"omitempty,min=1"`
	// RequestTimeoutSeconds controls the HTTP client timeout for platform calls
	RequestTimeoutSeconds int `mapstructure:"requestTimeoutSeconds" validate:"omitempty,min=1,max=600"`
}

// LLMConfig holds configuration for LLM integration
type LLMConfig struct {
	Provider        string  `mapstructure:"provider" validate:"omitempty,oneof=openai ollama anthropic gemini"`
	ModelName       string  `mapstructure:"modelName" validate:"omitempty,min=1"`
	APIKey          string  `mapstructure:"apiKey" validate:"omitempty,min=1"`
	BaseURL         string  `mapstructure:"baseUrl" validate:"omitempty,url"`
	MaxOutputTokens int     `mapstructure:"maxOutputTokens" validate:"omitempty,min=1"`
	Temperature     float64 `mapstructure:"temperature" validate:"omitempty,min=0,max=2"`
	// RequestTimeoutSeconds controls the HTTP client timeout for LLM calls
	RequestTimeoutSeconds int `mapstructure:"requestTimeoutSeconds" validate:"omitempty,min=5,max=600"`
	// MaxRetries controls how many automatic retries on recoverable errors (timeouts, temp rejection)
	MaxRetries int `mapstructure:"maxRetries" validate:"omitempty,min=0,max=3"`
	// Debug enables extra request/response logging within the LLM provider (generally tied to --verbose)
	Debug bool `mapstructure:"debug"`
}

// TelemetryConfig holds anonymous usage reporting settings
type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	APIKey      string `mapstructure:"apiKey"`
	Endpoint    string `mapstructure:"endpoint" validate:"omitempty,url"`
	AnonymousID string `mapstructure:"anonymousId"`
}
