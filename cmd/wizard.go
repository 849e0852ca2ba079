package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/backforge/backforge/models"
	"github.com/backforge/backforge/wizard"
)

var (
	stepHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	warnStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	okStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

var wizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Configure a backend project step by step",
	Long: `Walk through the project configuration wizard: project details, feature
selection, per-feature configuration, preview and download.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := GetStore()
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		ctrl := wizard.NewController(s, s, getTelemetry())
		resume, _ := cmd.Flags().GetString("resume")
		if err := ctrl.SelectMode(wizard.FlowManual, 0); err != nil {
			return err
		}
		if resume != "" {
			if err := ctrl.LoadProject(cmd.Context(), resume); err != nil {
				return fmt.Errorf("resume project %s: %w", resume, err)
			}
		}
		return runManualFlow(cmd.Context(), ctrl)
	},
}

func init() {
	wizardCmd.Flags().String("resume", "", "project ID to resume")
	rootCmd.AddCommand(wizardCmd)
}

// runManualFlow drives the wizard until completion, prompting per step and
// advancing through the controller so each step's save runs.
func runManualFlow(ctx context.Context, ctrl *wizard.Controller) error {
	for !ctrl.Completed() {
		st := ctrl.State()
		fmt.Println()
		fmt.Println(stepHeaderStyle.Render(fmt.Sprintf("Step %d/%d: %s", st.Step, wizard.StepCount, wizard.StepLabel(st.Step))))

		var err error
		switch st.Step {
		case wizard.StepProjectInfo:
			err = promptProjectInfo(ctrl)
		case wizard.StepFeatures:
			err = promptFeatures(ctrl)
		case wizard.StepGenerationMode:
			fmt.Println("Features will be generated from your manual configuration.")
		case wizard.StepConfiguration:
			err = promptConfiguration(ctx, ctrl)
		case wizard.StepTesting:
			err = promptTesting(ctx, ctrl)
		case wizard.StepDownload:
			err = promptDownload(ctx, ctrl)
		}
		if err != nil {
			if err == promptui.ErrInterrupt {
				fmt.Println("\nWizard aborted. Your progress is saved; resume with --resume", ctrl.State().ProjectID)
				return nil
			}
			return err
		}

		errs, err := ctrl.Advance(ctx)
		if err != nil {
			return err
		}
		if len(errs) > 0 {
			for field, msg := range errs {
				fmt.Println(warnStyle.Render(fmt.Sprintf("  %s: %s", field, msg)))
			}
			continue
		}
		if syncErr := ctrl.LastSyncError(); syncErr != nil {
			fmt.Println(warnStyle.Render("  sync warning: " + syncErr.Error()))
			fmt.Println(warnStyle.Render("  Your changes are kept locally and will be retried."))
		}
	}

	fmt.Println()
	fmt.Println(okStyle.Render("✔ Project configured."))
	return nil
}

func promptProjectInfo(ctrl *wizard.Controller) error {
	st := ctrl.State()

	name, err := (&promptui.Prompt{
		Label:   "Project name",
		Default: st.ProjectInfo.Name,
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("name is required")
			}
			return nil
		},
	}).Run()
	if err != nil {
		return err
	}

	desc, err := (&promptui.Prompt{
		Label:   "Description",
		Default: st.ProjectInfo.Description,
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("description is required")
			}
			return nil
		},
	}).Run()
	if err != nil {
		return err
	}

	envs := []models.Environment{models.EnvDevelopment, models.EnvStaging, models.EnvProduction}
	idx, _, err := (&promptui.Select{
		Label: "Target environment",
		Items: envs,
	}).Run()
	if err != nil {
		return err
	}

	env := envs[idx]
	ctrl.UpdateProjectInfo(wizard.ProjectInfoPatch{Name: &name, Description: &desc, Environment: &env})
	return nil
}

func promptFeatures(ctrl *wizard.Controller) error {
	for {
		st := ctrl.State()
		if len(st.Features) > 0 {
			fmt.Println("Selected features:")
			for _, f := range st.Features {
				fmt.Printf("  - %s (%s)\n", f.Name, models.KindOf(f))
			}
		}

		actions := []string{"Add feature", "Remove feature", "Done"}
		idx, _, err := (&promptui.Select{Label: "Features", Items: actions}).Run()
		if err != nil {
			return err
		}

		switch actions[idx] {
		case "Add feature":
			if err := promptAddFeature(ctrl); err != nil {
				return err
			}
		case "Remove feature":
			if err := promptRemoveFeature(ctrl); err != nil {
				return err
			}
		case "Done":
			return nil
		}
	}
}

func promptAddFeature(ctrl *wizard.Controller) error {
	kinds := []models.FeatureKind{models.KindCRUD, models.KindAuth, models.KindFunctions, models.KindAnalytics, models.KindCustom}
	idx, _, err := (&promptui.Select{Label: "Feature type", Items: kinds}).Run()
	if err != nil {
		return err
	}
	kind := kinds[idx]

	defaultName := ""
	if kind == models.KindAuth {
		defaultName = "Auth"
	}
	name, err := (&promptui.Prompt{
		Label:   "Feature name",
		Default: defaultName,
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("name is required")
			}
			return nil
		},
	}).Run()
	if err != nil {
		return err
	}

	ctrl.AddFeature(models.NewFeature(strings.TrimSpace(name), kind))
	return nil
}

func promptRemoveFeature(ctrl *wizard.Controller) error {
	st := ctrl.State()
	if len(st.Features) == 0 {
		fmt.Println("No features to remove.")
		return nil
	}
	names := make([]string, len(st.Features))
	for i, f := range st.Features {
		names[i] = f.Name
	}
	idx, _, err := (&promptui.Select{Label: "Remove which feature", Items: names}).Run()
	if err != nil {
		return err
	}
	ctrl.RemoveFeature(st.Features[idx].ID)
	return nil
}

// promptConfiguration lets the user review and optionally AI-fill each
// feature's configuration.
func promptConfiguration(ctx context.Context, ctrl *wizard.Controller) error {
	st := ctrl.State()
	for _, f := range st.Features {
		fmt.Printf("\n%s (%s)\n", f.Name, models.KindOf(f))
		if len(f.Config) > 0 {
			pretty, _ := json.MarshalIndent(f.Config, "  ", "  ")
			fmt.Printf("  current config: %s\n", pretty)
		}

		actions := []string{"Keep as is", "Describe it and let AI configure", "Edit JSON"}
		idx, _, err := (&promptui.Select{Label: "Configuration for " + f.Name, Items: actions}).Run()
		if err != nil {
			return err
		}

		switch actions[idx] {
		case "Describe it and let AI configure":
			if err := aiConfigureFeature(ctx, ctrl, f); err != nil {
				fmt.Println(warnStyle.Render("  AI configuration failed: " + err.Error()))
			}
		case "Edit JSON":
			if err := editFeatureConfig(ctrl, f); err != nil {
				return err
			}
		}
	}
	return nil
}

func aiConfigureFeature(ctx context.Context, ctrl *wizard.Controller, f models.Feature) error {
	request, err := (&promptui.Prompt{Label: "Describe what " + f.Name + " should do"}).Run()
	if err != nil {
		return err
	}

	gen, err := newPlanner()
	if err != nil {
		return err
	}
	defer func() { _ = gen.Close() }()

	cfg, err := gen.GenerateConfig(ctx, models.KindOf(f), request, f.Config)
	if err != nil {
		return err
	}
	ctrl.UpdateFeature(f.ID, wizard.FeaturePatch{Config: cfg})

	pretty, _ := json.MarshalIndent(cfg, "  ", "  ")
	fmt.Printf("  generated config: %s\n", pretty)
	return nil
}

func editFeatureConfig(ctrl *wizard.Controller, f models.Feature) error {
	raw, err := (&promptui.Prompt{
		Label: "Config JSON",
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return nil
			}
			var m map[string]any
			return json.Unmarshal([]byte(s), &m)
		},
	}).Run()
	if err != nil {
		return err
	}
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var cfg map[string]any
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return err
	}
	ctrl.UpdateFeature(f.ID, wizard.FeaturePatch{Config: cfg})
	return nil
}

// promptTesting previews the generated sources when the platform is
// configured; against local drafts it just summarizes the plan.
func promptTesting(ctx context.Context, ctrl *wizard.Controller) error {
	st := ctrl.State()

	api, err := GetAPIStore()
	if err != nil {
		fmt.Printf("Project %q with %d feature(s) is ready to package.\n", st.ProjectInfo.Name, len(st.Features))
		fmt.Println("(connect the hosted platform to preview generated sources)")
		return nil
	}

	files, err := api.Preview(ctx, st.ProjectInfo, st.Features)
	if err != nil {
		fmt.Println(warnStyle.Render("  preview failed: " + err.Error()))
		return nil
	}
	fmt.Printf("Generated %d file(s):\n", len(files))
	for path := range files {
		fmt.Printf("  - %s\n", path)
	}
	fmt.Println("Run 'backforge preview' to inspect and edit them.")
	return nil
}

func promptDownload(ctx context.Context, ctrl *wizard.Controller) error {
	st := ctrl.State()

	confirm, err := (&promptui.Prompt{
		Label:     "Download the generated project now",
		IsConfirm: true,
	}).Run()
	if err != nil && err != promptui.ErrAbort {
		return err
	}
	if strings.ToLower(confirm) != "y" {
		return nil
	}

	api, err := GetAPIStore()
	if err != nil {
		fmt.Println(warnStyle.Render(err.Error()))
		return nil
	}

	archive, err := api.Download(ctx, st.ProjectInfo, st.Features)
	if err != nil {
		fmt.Println(warnStyle.Render("  download failed: " + err.Error()))
		return nil
	}

	out := archiveFileName(st.ProjectInfo.Name)
	if err := os.WriteFile(out, archive, 0o644); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	fmt.Println(okStyle.Render("✔ Saved " + out))
	return nil
}

func archiveFileName(projectName string) string {
	name := strings.ToLower(strings.TrimSpace(projectName))
	name = strings.ReplaceAll(name, " ", "-")
	if name == "" {
		name = "backforge-project"
	}
	return filepath.Clean(name + ".zip")
}
