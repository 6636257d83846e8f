package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eRom/health-sub001/sdk"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the session token",
	Long: `Sign in with email and password. The session token is written to the
rehabctl config file and used by every later command.

Examples:
  rehabctl login --email admin@example.org
  REHAB_PASSWORD=... rehabctl login --email admin@example.org`,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the stored session",
	RunE:  runLogout,
}

func init() {
	loginCmd.Flags().String("email", "", "account email")
	_ = loginCmd.MarkFlagRequired("email")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	email, _ := cmd.Flags().GetString("email")

	password := viper.GetString("password")
	if password == "" {
		fmt.Fprint(os.Stderr, "Password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = strings.TrimSpace(line)
	}

	client := sdk.NewClient(sdk.WithBaseURL(viper.GetString("api_url")))
	resp, err := client.Auth.Login(context.Background(), email, password)
	if err != nil {
		printError(err)
		return err
	}

	if err := saveToken(resp.Token); err != nil {
		return err
	}

	if jsonOut {
		return printJSON(resp.User)
	}
	fmt.Printf("Logged in as %s (%s)\n", resp.User.Email, resp.User.Role)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}
	if err := client.Auth.Logout(context.Background()); err != nil {
		printError(err)
		return err
	}
	if err := saveToken(""); err != nil {
		return err
	}
	fmt.Println("Logged out")
	return nil
}
