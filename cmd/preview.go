package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/backforge/backforge/workspace"
)

var previewCmd = &cobra.Command{
	Use:   "preview <project-id>",
	Short: "Generate, export and edit a project's sources before download",
	Long: `Generate the project's sources into an editable preview. The files are
exported to the configured preview directory; with --watch, edits are synced
back to the project definition as you save.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := GetAPIStore()
		if err != nil {
			return err
		}
		projectID := args[0]

		p, err := api.GetProject(cmd.Context(), projectID)
		if err != nil {
			return err
		}
		features, err := api.ListFeatures(cmd.Context(), projectID)
		if err != nil {
			return err
		}

		ws := workspace.New(api, api)
		if err := ws.Refresh(cmd.Context(), p.Info(), features); err != nil {
			return err
		}

		config := GetConfig()
		exportDir := filepath.Join(config.Project.RootDir, config.Project.ExportDir, projectID)
		if err := ws.Export(exportDir); err != nil {
			return err
		}
		fmt.Printf("Exported %d file(s) to %s\n", len(ws.Files()), exportDir)

		watch, _ := cmd.Flags().GetBool("watch")
		if !watch {
			fmt.Println("Edit the files, then run 'backforge preview sync " + projectID + "' to apply your changes.")
			return nil
		}
		return watchPreview(cmd, ws, projectID, exportDir)
	},
}

var previewSyncCmd = &cobra.Command{
	Use:   "sync <project-id>",
	Short: "Apply edited preview files back to the project definition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := GetAPIStore()
		if err != nil {
			return err
		}
		projectID := args[0]

		p, err := api.GetProject(cmd.Context(), projectID)
		if err != nil {
			return err
		}
		features, err := api.ListFeatures(cmd.Context(), projectID)
		if err != nil {
			return err
		}

		ws := workspace.New(api, api)
		if err := ws.Refresh(cmd.Context(), p.Info(), features); err != nil {
			return err
		}

		config := GetConfig()
		exportDir := filepath.Join(config.Project.RootDir, config.Project.ExportDir, projectID)
		if err := ws.Import(exportDir); err != nil {
			return err
		}
		if len(ws.Dirty()) == 0 {
			fmt.Println("No local edits to sync.")
			return nil
		}

		updated, err := ws.Sync(cmd.Context(), projectID)
		if err != nil {
			return err
		}
		fmt.Printf("Synced. Project now has %d feature(s).\n", len(updated))
		return nil
	},
}

// watchPreview blocks, syncing edits back as they settle, until interrupted.
func watchPreview(cmd *cobra.Command, ws *workspace.Workspace, projectID, exportDir string) error {
	fmt.Println("Watching for edits. Press Ctrl+C to stop.")

	watcher, err := workspace.NewWatcher(exportDir, func(paths []string) {
		if err := ws.Import(exportDir); err != nil {
			fmt.Fprintln(os.Stderr, "import edits:", err)
			return
		}
		if len(ws.Dirty()) == 0 {
			return
		}
		updated, err := ws.Sync(cmd.Context(), projectID)
		if err != nil {
			fmt.Fprintln(os.Stderr, "sync edits:", err)
			return
		}
		fmt.Printf("Synced %d edited file(s); project has %d feature(s).\n", len(paths), len(updated))
	})
	if err != nil {
		return err
	}
	if err := watcher.Start(); err != nil {
		return err
	}
	defer watcher.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sig:
	case <-cmd.Context().Done():
	}
	return nil
}

func init() {
	previewCmd.Flags().Bool("watch", false, "watch the exported files and sync edits back")
	previewCmd.AddCommand(previewSyncCmd)
	rootCmd.AddCommand(previewCmd)
}
