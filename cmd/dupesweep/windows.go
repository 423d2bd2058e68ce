package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/steveyegge/dupesweep/internal/fetcher"
)

var windowsCmd = &cobra.Command{
	Use:   "windows",
	Short: "Print the search windows and their queries",
	Long: `Print every age window a sweep searches, oldest first, with the exact
search query sent for it. Windows are (lower, upper] and together cover the
last 48 hours without gaps or overlaps.`,
	Run: func(cmd *cobra.Command, args []string) {
		base, _ := cmd.Flags().GetString("base")
		printWindows(os.Stdout, fetcher.Windows(), base)
	},
}

func init() {
	windowsCmd.Flags().String("base", fetcher.BaseQuery, "Base search query")
	rootCmd.AddCommand(windowsCmd)
}

func printWindows(w io.Writer, windows []fetcher.Window, base string) {
	for i, win := range windows {
		fmt.Fprintf(w, "%2d  %-22s %s\n", i+1, win.String(), win.Query(base))
	}
	fmt.Fprintf(w, "%d windows covering %s\n", len(windows), fetcher.MaxAge(windows))
}
