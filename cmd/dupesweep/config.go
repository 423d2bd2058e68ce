package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steveyegge/dupesweep/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with secrets masked",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fail("%v", err)
		}
		fmt.Println(cfg.String())
		if err := cfg.ValidateCredentials(); err != nil {
			fail("%v", err)
		}
	},
}

var configExampleCmd = &cobra.Command{
	Use:   "example",
	Short: "Print an example configuration file",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Print(config.ExampleConfigFile())
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configExampleCmd)
	rootCmd.AddCommand(configCmd)
}
