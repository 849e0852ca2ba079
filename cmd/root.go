package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/backforge/backforge/planner"
	"github.com/backforge/backforge/store"
	"github.com/backforge/backforge/telemetry"
)

var (
	// cfgFile is the path to the configuration file.
	cfgFile string
	// verbose enables verbose output.
	verbose bool
	// version is the application version.
	version = "0.1.0"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "backforge",
	Short: "BackForge builds backend projects from a feature plan.",
	Long: `BackForge is a project configuration wizard for generated backends.
Describe the backend you want, step by step or in plain language, and it
assembles the project definition, previews the generated code, and downloads
the result.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			_ = cmd.Help()
			os.Exit(0)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	defer closeTelemetry()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(InitConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is $HOME/.backforge.yaml or ./.backforge.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// GetDraftFilePath returns the full path to the local draft data file.
func GetDraftFilePath() string {
	config := GetConfig()
	return filepath.Join(config.Project.RootDir, config.Project.DraftsDir, config.Data.File)
}

// GetStore returns the project/feature store: the hosted platform when a base
// URL is configured, the local draft file otherwise.
func GetStore() (store.Store, error) {
	config := GetConfig()

	if config.Platform.BaseURL != "" {
		timeout := time.Duration(config.Platform.RequestTimeoutSeconds) * time.Second
		return store.NewAPIStore(config.Platform.BaseURL, config.Platform.APIToken, timeout), nil
	}

	s := store.NewFileStore()
	draftPath := GetDraftFilePath()
	err := s.Initialize(map[string]string{
		"dataFile":       draftPath,
		"dataFileFormat": config.Data.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store at %s: %w", draftPath, err)
	}
	return s, nil
}

// GetAPIStore returns the platform store, erroring when the CLI is running
// against local drafts only. Preview, sync and download need the platform.
func GetAPIStore() (*store.APIStore, error) {
	config := GetConfig()
	if config.Platform.BaseURL == "" {
		return nil, fmt.Errorf("this command needs the hosted platform; set platform.baseUrl in your config")
	}
	timeout := time.Duration(config.Platform.RequestTimeoutSeconds) * time.Second
	return store.NewAPIStore(config.Platform.BaseURL, config.Platform.APIToken, timeout), nil
}

// plannerConfig maps the app config onto the LLM client config.
func plannerConfig() (planner.Config, error) {
	config := GetConfig()
	provider := config.LLM.Provider
	if provider == "" {
		provider = string(planner.DefaultProvider)
	}
	p, err := planner.ValidateProvider(provider)
	if err != nil {
		return planner.Config{}, err
	}
	return planner.Config{
		Provider:  p,
		Model:     config.LLM.ModelName,
		APIKey:    config.LLM.APIKey,
		BaseURL:   config.LLM.BaseURL,
		MaxTokens: config.LLM.MaxOutputTokens,
	}, nil
}

// newPlanner builds the structured plan generator from the app config.
func newPlanner() (*planner.Generator, error) {
	llmCfg, err := plannerConfig()
	if err != nil {
		return nil, err
	}
	config := GetConfig()
	return planner.NewGenerator(planner.GeneratorConfig{
		LLM:          llmCfg,
		TemplatesDir: filepath.Join(config.Project.RootDir, config.Project.TemplatesDir),
	}), nil
}

var telemetryClient telemetry.Client

// getTelemetry returns the process-wide telemetry client, creating it on
// first use from the loaded config.
func getTelemetry() telemetry.Client {
	if telemetryClient != nil {
		return telemetryClient
	}
	config := GetConfig()
	if !config.Telemetry.Enabled || config.Telemetry.APIKey == "" {
		telemetryClient = telemetry.NewNoopClient()
		return telemetryClient
	}

	anonID := config.Telemetry.AnonymousID
	if anonID == "" {
		anonID = uuid.NewString()
	}
	client, err := telemetry.NewPostHogClient(telemetry.ClientConfig{
		APIKey:   config.Telemetry.APIKey,
		Version:  version,
		Endpoint: config.Telemetry.Endpoint,
		Config: &telemetry.Config{
			Enabled:     true,
			AnonymousID: anonID,
		},
	})
	if err != nil {
		telemetryClient = telemetry.NewNoopClient()
		return telemetryClient
	}
	telemetryClient = client
	return telemetryClient
}

func closeTelemetry() {
	if telemetryClient != nil {
		_ = telemetryClient.Close()
	}
}
