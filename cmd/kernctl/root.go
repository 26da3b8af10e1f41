package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/kcore/kernel"
)

var (
	// Global flags
	verbose    bool
	quiet      bool
	jsonOut    bool
	noColor    bool
	configPath string
	logFile    string
)

var rootCmd = &cobra.Command{
	Use:   "kernctl",
	Short: "Boot and exercise the kcore hosted kernel",
	Long: `kernctl boots the kcore kernel on a simulated CPU. It can run the
cooperative executor with the keyboard echo task, feeding keystrokes from
stdin, a file or the command line, and it can run heap allocation workloads
against either allocator and report their statistics.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output and debug logging")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML boot configuration")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to a rotated file instead of stderr")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v\n", err)
		os.Exit(1)
	}
}

// loadConfig returns the configuration named by --config, or the defaults.
func loadConfig() (kernel.Config, error) {
	if configPath == "" {
		return kernel.DefaultConfig(), nil
	}
	printVerbose("Loading config: %s\n", configPath)
	return kernel.LoadConfig(configPath)
}

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printError prints an error message
func printError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format, args...)
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...any) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
