package cmd

import (
	"time"

	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report [run_handle]",
	Short: "Resolve the report URL for a run",
	Long: `Resolve the best available report location for a finished run.

The controller walks its resolution cascade: a previously cached report,
the run's directly hosted HTML report, a report extracted from the
artifact archive, or the archive itself for manual extraction.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := clientFromViper(cmd)
		if client == nil {
			return
		}

		report, err := client.GetReport(args[0])
		if err != nil {
			cmd.Printf("Failed to resolve report: %v\n", err)
			return
		}

		if !report.HasReport {
			cmd.Printf("%s No report available", colorAmber+"•"+colorReset)
			if report.Message != "" {
				cmd.Printf(": %s", report.Message)
			}
			cmd.Println()
			return
		}

		cmd.Printf("%s Report resolved %s(%s)%s\n", colorGreen+"✓"+colorReset, colorDim, report.Source, colorReset)
		cmd.Printf("%sURL:%s %s\n", colorDim, colorReset, report.ReportURL)

		if report.RequiresManualExtraction {
			cmd.Printf("%s The URL points at the artifact archive; unzip it and open the report inside.\n", colorAmber+"!"+colorReset)
		}
		if report.ExpiresAt != nil {
			cmd.Printf("%sExpires:%s %s\n", colorDim, colorReset, report.ExpiresAt.Format(time.RFC1123))
		}
		if report.Message != "" {
			cmd.Printf("%s%s%s\n", colorDim, report.Message, colorReset)
		}
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}
