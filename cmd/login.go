package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tanko-dl/tanko/internal/config"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the shelf and save the session",
	Long: `Log in with your shelf account. The username comes from --username,
the saved settings, or a prompt; the password from --password, the
TANKO_PASSWORD environment variable, or a prompt. The session token is
saved for every later command.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		initializeGlobalState()

		svc, err := newService()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer svc.Shutdown()

		settings := svc.Settings()

		username, _ := cmd.Flags().GetString("username")
		if username == "" {
			username = settings.Network.Username
		}
		if username == "" {
			username = promptLine("Username: ")
		}
		if username == "" {
			fmt.Fprintln(os.Stderr, "Error: a username is required")
			os.Exit(1)
		}

		password, _ := cmd.Flags().GetString("password")
		if password == "" {
			password = os.Getenv("TANKO_PASSWORD")
		}
		if password == "" {
			password = promptLine("Password: ")
		}
		if password == "" {
			fmt.Fprintln(os.Stderr, "Error: a password is required")
			os.Exit(1)
		}

		profile, err := svc.Login(context.Background(), username, password)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Login failed: %v\n", err)
			os.Exit(1)
		}

		// Remember the username for the next login.
		if settings.Network.Username != username {
			if _, err := svc.UpdateSettings(func(s *config.Settings) {
				s.Network.Username = username
			}); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: could not save username: %v\n", err)
			}
		}

		fmt.Printf("Logged in as %s\n", profile.Username)
	},
}

func promptLine(prompt string) string {
	fmt.Print(prompt)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	return strings.TrimSpace(line)
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().StringP("username", "u", "", "Shelf account name")
	loginCmd.Flags().StringP("password", "p", "", "Shelf account password (prefer TANKO_PASSWORD)")
}
