package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/backforge/backforge/models"
)

var featuresCmd = &cobra.Command{
	Use:   "features <project-id>",
	Short: "List a project's features",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := GetStore()
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()
		features, err := s.ListFeatures(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(features) == 0 {
			fmt.Println("No features configured for this project.")
			return nil
		}

		showConfig, _ := cmd.Flags().GetBool("config")
		for _, f := range features {
			fmt.Printf("%s  %-25s %-10s %-8s %s\n", f.ID, f.Name, models.KindOf(f), f.Mode, f.Status)
			if showConfig && len(f.Config) > 0 {
				pretty, _ := json.MarshalIndent(f.Config, "    ", "  ")
				fmt.Printf("    %s\n", pretty)
			}
		}
		return nil
	},
}

func init() {
	featuresCmd.Flags().Bool("config", false, "include each feature's configuration")
	rootCmd.AddCommand(featuresCmd)
}
