package cmd

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"farmgate/pkg/api"
)

var statusCmd = &cobra.Command{
	Use:   "status [run_handle]",
	Short: "Get status of a run",
	Long:  `Retrieve status information for a device test run, including its current state (SCHEDULING, PENDING, RUNNING, COMPLETED), result and per-outcome test counters.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := clientFromViper(cmd)
		if client == nil {
			return
		}

		run, err := client.GetRun(args[0])
		if err != nil {
			cmd.Printf("Failed to get run: %v\n", err)
			return
		}

		printRunStatus(cmd, run)
	},
}

func printRunStatus(cmd *cobra.Command, run *api.RunStatusResponse) {
	cmd.Printf("%s %sRun Details%s\n", runIcon(run.Status, run.Result), colorBold, colorReset)
	cmd.Println("──────────────────────────────")

	cmd.Printf("%sHandle:%s    %s\n", colorDim, colorReset, run.RunHandle)
	cmd.Printf("%sName:%s      %s\n", colorDim, colorReset, run.Name)
	cmd.Printf("%sStatus:%s    %s\n", colorDim, colorReset, colorizeRunStatus(run.Status, run.Result))

	if len(run.Counters) > 0 {
		cmd.Printf("%sCounters:%s  %s\n", colorDim, colorReset, formatCounters(run.Counters))
	}

	cmd.Printf("%sCreated:%s   %s\n", colorDim, colorReset, run.CreatedAt.Format("Mon, 02 Jan 2006 15:04:05 MST"))
	if run.StartedAt != nil && run.StoppedAt != nil {
		duration := run.StoppedAt.Sub(*run.StartedAt)
		cmd.Printf("%sFinished:%s  %s %s(%s)%s\n", colorDim, colorReset,
			run.StoppedAt.Format("Mon, 02 Jan 2006 15:04:05 MST"),
			colorCyan, formatDuration(duration), colorReset)
	}
}

// ANSI color codes
const (
	colorReset = "\033[0m"
	colorBold  = "\033[1m"
	colorDim   = "\033[2m"
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorAmber = "\033[33m"
	colorCyan  = "\033[36m"
)

func runIcon(status, result string) string {
	if status != "COMPLETED" {
		return colorAmber + "⏳" + colorReset
	}
	switch result {
	case "PASSED":
		return colorGreen + "✓" + colorReset
	case "FAILED", "ERRORED":
		return colorRed + "✗" + colorReset
	default:
		return "•"
	}
}

func colorizeRunStatus(status, result string) string {
	icon := runIcon(status, result)
	if status != "COMPLETED" {
		return icon + " " + colorAmber + status + colorReset
	}
	switch result {
	case "PASSED":
		return icon + " " + colorGreen + status + " / " + result + colorReset
	case "FAILED", "ERRORED":
		return icon + " " + colorRed + status + " / " + result + colorReset
	default:
		return icon + " " + status + " / " + result
	}
}

func formatCounters(counters map[string]int) string {
	keys := make([]string, 0, len(counters))
	for k := range counters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := ""
	for i, k := range keys {
		if i > 0 {
			out += "  "
		}
		out += fmt.Sprintf("%s=%d", k, counters[k])
	}
	return out
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	} else if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	} else if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
