package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/dupesweep/internal/config"
)

// Set by the release build with -ldflags "-X main.version=..."
var version = "dev"

var (
	configPath string
	envFile    string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "dupesweep",
	Short: "Find and resolve duplicate booking tickets",
	Long: `dupesweep finds open support tickets that share a booking id and
resolves them: the newest ticket is tagged primary_ticket, every older one is
tagged duplicate_ticket and solved, and an older ticket's still-open chat
conversation is moved to the duplicates queue.

Runs are dry by default. Nothing is changed unless --live is given (or
dry_run is set to false in the configuration).

Configuration is read from, in increasing precedence: built-in defaults,
the --config YAML file, the --env-file dotenv file, and the environment.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to a dotenv file (ignored if missing)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print each search window as it completes")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the configuration named by the global flags
func loadConfig() (config.Config, error) {
	return config.Load(configPath, envFile)
}

// signalContext is canceled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// fail prints an error to stderr and exits with status 1
func fail(format string, args ...interface{}) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(os.Stderr, "%s %s\n", red("✗"), fmt.Sprintf(format, args...))
	os.Exit(1)
}
