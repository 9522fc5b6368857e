package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"farmgate/pkg/api"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the run history",
	Long: `List the persisted run history, newest first.

With --reconcile, finished runs on the remote service are merged into the
history before listing, so runs triggered elsewhere show up too.`,
	Run: func(cmd *cobra.Command, args []string) {
		client := clientFromViper(cmd)
		if client == nil {
			return
		}

		if reconcile, _ := cmd.Flags().GetBool("reconcile"); reconcile {
			resp, err := client.ReconcileHistory()
			if err != nil {
				cmd.Printf("Failed to reconcile history: %v\n", err)
				return
			}
			cmd.Printf("%sMerged %d remote runs%s\n\n", colorDim, resp.Merged, colorReset)
		}

		entries, err := client.ListHistory()
		if err != nil {
			cmd.Printf("Failed to load history: %v\n", err)
			return
		}

		if len(entries) == 0 {
			cmd.Println("History is empty. Trigger a run with 'farmctl run' or pull remote runs with --reconcile.")
			return
		}

		limit, _ := cmd.Flags().GetInt("limit")
		if limit > 0 && len(entries) > limit {
			entries = entries[:limit]
		}

		for _, entry := range entries {
			printHistoryEntry(cmd, entry)
		}
	},
}

func printHistoryEntry(cmd *cobra.Command, entry api.HistoryEntry) {
	line := fmt.Sprintf("%s %s  %s%s%s",
		runIcon(entry.Status, entry.Result),
		entry.CreatedAt.Format("2006-01-02 15:04"),
		colorBold, entry.Name, colorReset)

	if entry.DurationSeconds != nil {
		line += fmt.Sprintf(" %s(%s)%s", colorCyan, formatDuration(time.Duration(*entry.DurationSeconds)*time.Second), colorReset)
	}
	if entry.Platform != "" {
		line += fmt.Sprintf(" %s[%s]%s", colorDim, entry.Platform, colorReset)
	}
	cmd.Println(line)

	detail := fmt.Sprintf("  %s%s%s", colorDim, entry.ID, colorReset)
	if entry.TestFile != "" {
		detail += " " + entry.TestFile
	}
	if entry.TestCase != "" {
		detail += fmt.Sprintf(" %q", entry.TestCase)
	}
	cmd.Println(detail)
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().Bool("reconcile", false, "Merge finished remote runs into the history first")
	historyCmd.Flags().Int("limit", 0, "Show at most this many entries (0 = all)")
}
