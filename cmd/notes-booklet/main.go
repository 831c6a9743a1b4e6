// Package main is the entry point for the notes-booklet CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the notes-booklet CLI.
var rootCmd = &cobra.Command{
	Use:   "notes-booklet",
	Short: "Condense PDFs into printable booklet sheets",
	Long: `notes-booklet scales each page of a PDF into one of four stacked cells on
the left half of an A4 sheet, producing a condensed printable booklet.

Use convert for batch conversion of local files, or serve to run a small
upload service that converts PDFs over HTTP.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./notes-booklet.yaml or ~/.config/notes-booklet/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("notes-booklet")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "notes-booklet"))
		}
	}

	viper.SetEnvPrefix("NOTES_BOOKLET")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// stringSetting returns the flag value, or the config value when the
// flag was not set on the command line.
func stringSetting(cmd *cobra.Command, flag, key string) string {
	if !cmd.Flags().Changed(flag) {
		if v := viper.GetString(key); v != "" {
			return v
		}
	}
	v, _ := cmd.Flags().GetString(flag)
	return v
}

func intSetting(cmd *cobra.Command, flag, key string) int {
	if !cmd.Flags().Changed(flag) && viper.IsSet(key) {
		return viper.GetInt(key)
	}
	v, _ := cmd.Flags().GetInt(flag)
	return v
}

func boolSetting(cmd *cobra.Command, flag, key string) bool {
	if !cmd.Flags().Changed(flag) && viper.IsSet(key) {
		return viper.GetBool(key)
	}
	v, _ := cmd.Flags().GetBool(flag)
	return v
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
