package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var downloadCmd = &cobra.Command{
	Use:   "download <project-id>",
	Short: "Download a project's generated sources as a zip archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := GetAPIStore()
		if err != nil {
			return err
		}

		p, err := api.GetProject(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		features, err := api.ListFeatures(cmd.Context(), p.ID)
		if err != nil {
			return err
		}

		archive, err := api.Download(cmd.Context(), p.Info(), features)
		if err != nil {
			return err
		}

		out, _ := cmd.Flags().GetString("output")
		if out == "" {
			out = archiveFileName(p.Name)
		}
		if err := os.WriteFile(out, archive, 0o644); err != nil {
			return fmt.Errorf("write archive: %w", err)
		}

		getTelemetry().Track("project_downloaded", map[string]any{"features": len(features)})
		fmt.Printf("Saved %s (%d bytes)\n", out, len(archive))
		return nil
	},
}

func init() {
	downloadCmd.Flags().StringP("output", "o", "", "output file path (default <project-name>.zip)")
	rootCmd.AddCommand(downloadCmd)
}
