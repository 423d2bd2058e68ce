package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/dupesweep/internal/scheduler"
	"github.com/steveyegge/dupesweep/internal/sweep"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run sweeps repeatedly on a schedule",
	Long: `Run a sweep on a cron schedule until interrupted. A pass that is still
running when the next tick fires makes that tick a no-op, so passes never
overlap. A failed pass is logged and the schedule continues.

The schedule is a 5-field cron expression or a descriptor such as
"@every 15m" or "@hourly". It defaults to the configured schedule.

Examples:
  dupesweep watch                                  # Dry runs every 15 minutes
  dupesweep watch --live --yes --schedule "@every 10m"
  dupesweep watch --now --schedule "*/30 8-20 * * *"`,
	Run: func(cmd *cobra.Command, args []string) {
		live, _ := cmd.Flags().GetBool("live")
		yes, _ := cmd.Flags().GetBool("yes")
		now, _ := cmd.Flags().GetBool("now")
		schedule, _ := cmd.Flags().GetString("schedule")

		cfg, err := loadConfig()
		if err != nil {
			fail("%v", err)
		}
		applyModeFlags(&cfg, live)
		if schedule != "" {
			cfg.Schedule = schedule
		}

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

		sched := scheduler.New(func(ctx context.Context) error {
			_, err := runner.Run(ctx)
			return err
		})
		if err := sched.Schedule(cfg.Schedule); err != nil {
			fail("%v", err)
		}

		ctx, cancel := signalContext()
		defer cancel()

		cyan := color.New(color.FgCyan).SprintFunc()
		fmt.Printf("%s Watching (%s) on schedule %q, Ctrl-C to stop\n", cyan("→"), runner.Mode(), cfg.Schedule)
		if err := sched.Start(ctx, now); err != nil {
			fail("%v", err)
		}

		passes, failures := sched.Stats()
		fmt.Printf("Stopped after %d pass(es), %d failed\n", passes, failures)
	},
}

func init() {
	watchCmd.Flags().String("schedule", "", "Cron schedule (default from config, \"@every 15m\")")
	watchCmd.Flags().Bool("live", false, "Apply changes instead of only reporting them")
	watchCmd.Flags().Bool("yes", false, "Skip the confirmation prompt for live runs")
	watchCmd.Flags().Bool("now", false, "Run the first pass immediately")
	rootCmd.AddCommand(watchCmd)
}
