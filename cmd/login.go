package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store the platform API token",
	Long: `Read the hosted platform API token without echoing it and save it to the
project configuration. The token is sent as a Bearer credential on every
platform request.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Print("API token: ")
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("read token: %w", err)
		}
		token := strings.TrimSpace(string(raw))
		if token == "" {
			return fmt.Errorf("no token entered")
		}

		GlobalAppConfig.Platform.APIToken = token
		viper.Set("platform.apiToken", token)

		configFile := viper.ConfigFileUsed()
		if configFile == "" {
			dir := GlobalAppConfig.Project.RootDir
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory: %w", err)
			}
			configFile = filepath.Join(dir, ".backforge.yaml")
			viper.SetConfigFile(configFile)
		}
		if err := viper.WriteConfig(); err != nil {
			return fmt.Errorf("save config: %w", err)
		}

		fmt.Println("Token saved to", configFile)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
}
