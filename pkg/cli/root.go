// Package cli provides the command-line interface for stanza
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stanza-build/stanza/pkg/logger"
	"github.com/stanza-build/stanza/pkg/manifest"
)

var (
	cfgFile     string
	projectRoot string
	verbosity   string
	version     string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "stanza",
	Short: "Declarative Python packaging builds",
	Long: `stanza reads a declarative stanza.toml manifest, synthesizes the
build descriptor your packaging tools expect and drives the source and
binary archive builds for you.`,

	Run: func(cmd *cobra.Command, args []string) {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Printf("stanza v%s\n", version)
			return
		}
		// If no subcommand, show help
		cmd.Help()
	},
}

// Execute runs the CLI
func Execute(v string) error {
	version = v

	// Initialize the root command explicitly (avoiding init())
	initializeRootCommand()

	return rootCmd.Execute()
}

// initializeRootCommand sets up the root command and its flags
func initializeRootCommand() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: stanza.config.yaml)")
	rootCmd.PersistentFlags().StringVar(&projectRoot, "root", ".", "project root directory")
	rootCmd.PersistentFlags().StringVarP(&verbosity, "verbosity", "v", "info", "log level (debug, info, warn, error)")

	rootCmd.Flags().Bool("version", false, "Print version information and quit")

	// Add subcommands
	rootCmd.AddCommand(newBuildCmd())
	rootCmd.AddCommand(newInstallCmd())
	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config in project root
		viper.AddConfigPath(projectRoot)
		viper.SetConfigName("stanza.config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("STANZA")
	viper.AutomaticEnv()

	viper.SetDefault("notifications", true)
	viper.SetDefault("settling", 200*time.Millisecond)

	if err := viper.ReadInConfig(); err == nil {
		printInfo(fmt.Sprintf("Using config file: %s", viper.ConfigFileUsed()))
	}
}

// newLogger creates the CLI logger honoring the verbosity flag
func newLogger() logger.Logger {
	return logger.CreateLogger(viper.GetString("logFile"), verbosity)
}

// manifestPath returns the primary manifest path for the project root
func manifestPath() string {
	return filepath.Join(projectRoot, manifest.FileName)
}

func printSuccess(message string) {
	fmt.Printf("%s %s\n", color.GreenString("[stanza]"), message)
}

func printError(message string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", color.RedString("[stanza]"), message)
}

func printInfo(message string) {
	fmt.Printf("%s %s\n", color.CyanString("[stanza]"), message)
}
