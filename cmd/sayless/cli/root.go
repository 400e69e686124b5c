// Package cli implements the sayless command tree: the server daemon
// plus operator commands for tokens and the strike ledger, which talk
// to the configured database directly.
package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile    string
	appVersion string
)

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	appVersion = version
	rootCmd := newRootCmd(version, commit, date)
	return rootCmd.Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sayless",
		Short: "Minimal URL shortener with capability-token access control",
		Long: `sayless is a URL shortening service. Links are deduplicated by content
fingerprint, creation can be gated behind capability tokens, and
creator addresses are recorded with a configurable retention period.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./sayless.yaml)")

	cobra.OnInitialize(initConfig)

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newTokenCmd())
	cmd.AddCommand(newStrikeCmd())
	cmd.AddCommand(newVersionCmd(version, commit, date))

	return cmd
}

func initConfig() {
	viper.SetEnvPrefix("SAYLESS")
	// Nested keys map through underscores: server.port reads
	// SAYLESS_SERVER_PORT.
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}
