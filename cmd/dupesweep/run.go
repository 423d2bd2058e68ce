package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/dupesweep/internal/config"
	"github.com/steveyegge/dupesweep/internal/report"
	"github.com/steveyegge/dupesweep/internal/sweep"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one duplicate sweep",
	Long: `Fetch every open booking ticket from the last 48 hours, group them by
booking id, and resolve each group with more than one ticket.

Without --live the planned changes are printed and nothing is modified.
A live run asks for confirmation unless --yes is given.

Failed actions are reported and the sweep carries on; the command only
exits non-zero when tickets cannot be fetched or the configuration is
invalid.

Examples:
  dupesweep run                       # Dry run, print the plan
  dupesweep run --live                # Apply after confirmation
  dupesweep run --live --yes          # Apply without asking (cron)`,
	Run: func(cmd *cobra.Command, args []string) {
		live, _ := cmd.Flags().GetBool("live")
		yes, _ := cmd.Flags().GetBool("yes")

		cfg, err := loadConfig()
		if err != nil {
			fail("%v", err)
		}
		applyModeFlags(&cfg, live)

		if !cfg.DryRun && !yes {
			ok, err := confirmLive(cfg)
			if err != nil {
				fail("%v", err)
			}
			if !ok {
				fmt.Println("Aborted, nothing was changed.")
				return
			}
		}

		runner, err := sweep.NewFromConfig(cfg, os.Stdout, sweep.WithVerbose(verbose))
		if err != nil {
			fail("%v", err)
		}

		ctx, cancel := signalContext()
		defer cancel()

		summary, err := runner.Run(ctx)
		if err != nil {
			fail("%v", err)
		}
		if len(summary.Failures) > 0 {
			yellow := color.New(color.FgYellow).SprintFunc()
			fmt.Fprintf(os.Stderr, "\n%s %d action(s) failed, %d conversation lookup(s) failed:\n",
				yellow("⚠"), summary.Failed, summary.LookupFailures)
			report.NewWriter(os.Stderr, summary.Mode).Failures(summary)
		}
	},
}

func init() {
	runCmd.Flags().Bool("live", false, "Apply changes instead of only reporting them")
	runCmd.Flags().Bool("yes", false, "Skip the confirmation prompt for live runs")
	rootCmd.AddCommand(runCmd)
}

// applyModeFlags lets --live override a dry-run configuration. It never
// turns a live configuration back into a dry run.
func applyModeFlags(cfg *config.Config, live bool) {
	if live {
		cfg.DryRun = false
	}
}

func confirmLive(cfg config.Config) (bool, error) {
	yellow := color.New(color.FgYellow).SprintFunc()
	fmt.Printf("%s LIVE mode: tickets on %s will be tagged and solved.\n", yellow("⚠"), cfg.Zendesk.Domain)
	return confirm("Continue? [y/N] ")
}
