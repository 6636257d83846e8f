package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eRom/health-sub001/sdk"
)

var (
	cfgFile string
	jsonOut bool
)

var rootCmd = &cobra.Command{
	Use:   "rehabctl",
	Short: "Operate the rehabilitation platform",
	Long: `rehabctl talks to the platform API for admin tasks and runs
database migrations directly against PostgreSQL.

Examples:
  rehabctl login --email admin@example.org
  rehabctl users list --search dupont
  rehabctl users role 4f8c... HEALTHCARE_PROVIDER
  rehabctl stats
  rehabctl migrate up`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.config/rehabctl/config.yaml)")
	rootCmd.PersistentFlags().String("api-url", sdk.DefaultBaseURL, "platform base URL")
	rootCmd.PersistentFlags().String("token", "", "session token (REHAB_TOKEN)")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "output JSON")

	_ = viper.BindPFlag("api_url", rootCmd.PersistentFlags().Lookup("api-url"))
	_ = viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigFile(defaultConfigPath())
	}
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("REHAB")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "rehabctl", "config.yaml")
}

// saveToken persists the session token next to the api URL it belongs to.
func saveToken(token string) error {
	path := viper.ConfigFileUsed()
	if path == "" {
		path = defaultConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	viper.Set("token", token)
	if err := viper.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return os.Chmod(path, 0o600)
}

func getClient() (*sdk.Client, error) {
	token := viper.GetString("token")
	if token == "" {
		return nil, fmt.Errorf("not logged in: run 'rehabctl login' or set REHAB_TOKEN")
	}
	return sdk.NewClient(
		sdk.WithBaseURL(viper.GetString("api_url")),
		sdk.WithToken(token),
	), nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printError(err error) {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		fmt.Fprintf(os.Stderr, "Error: %s\n", apiErr.Message)
		if apiErr.Cooldown > 0 {
			fmt.Fprintf(os.Stderr, "Retry in %s\n", apiErr.Cooldown)
		}
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}

func newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
}

func printTableHeader(w *tabwriter.Writer, cols ...string) {
	fmt.Fprintln(w, strings.Join(cols, "\t"))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
