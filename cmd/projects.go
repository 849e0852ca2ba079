package cmd

import (
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/backforge/backforge/models"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List saved projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := GetStore()
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()
		projects, err := s.ListProjects(cmd.Context())
		if err != nil {
			return err
		}
		if len(projects) == 0 {
			fmt.Println("No projects yet. Start one with 'backforge wizard' or 'backforge chat'.")
			return nil
		}
		for _, p := range projects {
			fmt.Printf("%s  %-30s %-10s %s\n", p.ID, p.Name, p.Status, p.Description)
		}
		return nil
	},
}

var projectShowCmd = &cobra.Command{
	Use:   "show <project-id>",
	Short: "Show one project and its features",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := GetStore()
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()
		p, err := s.GetProject(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		features, err := s.ListFeatures(cmd.Context(), p.ID)
		if err != nil {
			return err
		}

		fmt.Printf("%s (%s)\n", p.Name, p.ID)
		fmt.Printf("  status:      %s\n", p.Status)
		fmt.Printf("  mode:        %s\n", p.GenerationMode)
		fmt.Printf("  environment: %s\n", p.Environment)
		if p.Description != "" {
			fmt.Printf("  description: %s\n", p.Description)
		}
		fmt.Printf("  features:    %d\n", len(features))
		for _, f := range features {
			fmt.Printf("    - %s (%s, %s)\n", f.Name, models.KindOf(f), f.Status)
		}
		return nil
	},
}

var projectDeleteCmd = &cobra.Command{
	Use:   "delete <project-id>",
	Short: "Delete a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := GetStore()
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()
		p, err := s.GetProject(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		confirm, err := (&promptui.Prompt{
			Label:     fmt.Sprintf("Delete %q and all its features", p.Name),
			IsConfirm: true,
		}).Run()
		if err != nil || confirm == "" {
			fmt.Println("Aborted.")
			return nil
		}

		if err := s.DeleteProject(cmd.Context(), p.ID); err != nil {
			return err
		}
		fmt.Printf("Deleted %s.\n", p.Name)
		return nil
	},
}

func init() {
	projectsCmd.AddCommand(projectShowCmd)
	projectsCmd.AddCommand(projectDeleteCmd)
	rootCmd.AddCommand(projectsCmd)
}
