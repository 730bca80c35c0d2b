// Package cmd wires the newswire command-line interface.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmcortes/newswire/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "newswire",
	Short: "Staged news article generation service",
	Long: `Newswire produces researched, validated news articles through a
staged pipeline: a researcher gathers sourced material through a news
search service, a validator audits it for bias and unsupported claims,
and a composer writes the final article from validated facts only.
Rejected research is retried with the validator's feedback, up to a
bounded number of cycles.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/newswire/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/newswire")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("NEWSWIRE")
	// Replace dots with underscores for nested keys in env vars
	// e.g., NEWSWIRE_UPSTREAM_API_KEY for upstream.api_key
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
