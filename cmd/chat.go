package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/backforge/backforge/chat"
	"github.com/backforge/backforge/models"
	"github.com/backforge/backforge/wizard"
)

var (
	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	hintStyle      = lipgloss.NewStyle().Faint(true)
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Describe your backend in plain language",
	Long: `Start an AI-assisted session: describe the backend you want and the plan
is built and refined for you. Type /done to finish, /plan to see the current
feature set, /quit to leave without packaging.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := GetStore()
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		gen, err := newPlanner()
		if err != nil {
			return err
		}
		defer func() { _ = gen.Close() }()

		config := GetConfig()
		history, err := chat.NewHistory(filepath.Join(config.Project.RootDir, "chat"))
		if err != nil {
			return fmt.Errorf("open chat history: %w", err)
		}
		defer func() { _ = history.Close() }()

		ctrl := wizard.NewController(s, s, getTelemetry())
		if err := ctrl.SelectMode(wizard.FlowChat, 0); err != nil {
			return err
		}

		orch := chat.NewOrchestrator(ctrl, gen, s, s, history, getTelemetry())
		return runChatLoop(cmd, ctrl, orch)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChatLoop(cmd *cobra.Command, ctrl *wizard.Controller, orch *chat.Orchestrator) error {
	// Wrap assistant output to the terminal width when attached to one.
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 20 {
		assistantStyle = assistantStyle.Width(w)
	}

	fmt.Println(hintStyle.Render("Describe the backend you want. /plan shows the current plan, /done finishes, /quit exits."))
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print(userStyle.Render("you> "))
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "/quit", "/exit":
			return nil
		case "/plan":
			printPlan(ctrl.State())
			continue
		case "/done":
			return finishChat(cmd, ctrl)
		}

		reply, err := orch.Send(cmd.Context(), line)
		if errors.Is(err, chat.ErrTurnInFlight) {
			fmt.Println(hintStyle.Render("still working on the previous message..."))
			continue
		}
		if err != nil {
			return err
		}
		fmt.Println(assistantStyle.Render(reply.Content))
	}
}

func printPlan(st wizard.State) {
	if st.ProjectInfo.Name == "" {
		fmt.Println(hintStyle.Render("no plan yet"))
		return
	}
	fmt.Printf("%s: %s\n", st.ProjectInfo.Name, st.ProjectInfo.Description)
	for _, f := range st.Features {
		fmt.Printf("  - %s (%s)\n", f.Name, models.KindOf(f))
	}
}

// finishChat hands the session over to the manual flow's download step.
func finishChat(cmd *cobra.Command, ctrl *wizard.Controller) error {
	st := ctrl.State()
	if st.ProjectID == "" {
		fmt.Println(hintStyle.Render("nothing to package yet"))
		return nil
	}
	if err := ctrl.CompleteChat(); err != nil {
		return err
	}
	if err := promptDownload(cmd.Context(), ctrl); err != nil {
		return err
	}
	_, err := ctrl.Advance(cmd.Context())
	return err
}
