package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"farmgate/pkg/api"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Trigger a device test run",
	Long: `Upload an app build together with the packaged test bundle and a generated
execution script, then schedule a run on the selected device pool.

The command blocks while the controller pushes the three artifacts through
upload-and-poll; expect it to take a few minutes for large builds. With
--wait it keeps polling until the run completes and prints the result.`,
	Run: func(cmd *cobra.Command, args []string) {
		client := clientFromViper(cmd)
		if client == nil {
			return
		}

		build, _ := cmd.Flags().GetString("build")
		pool, _ := cmd.Flags().GetString("pool")
		project, _ := cmd.Flags().GetString("project")
		platform, _ := cmd.Flags().GetString("platform")
		mode, _ := cmd.Flags().GetString("mode")
		testFile, _ := cmd.Flags().GetString("test")
		testCase, _ := cmd.Flags().GetString("case")
		name, _ := cmd.Flags().GetString("name")
		wait, _ := cmd.Flags().GetBool("wait")

		resp, err := client.StartRun(api.StartRunRequest{
			BuildFilePath:    build,
			DevicePoolHandle: pool,
			ProjectHandle:    project,
			Platform:         platform,
			TestMode:         mode,
			SelectedTest:     testFile,
			SelectedTestCase: testCase,
			DisplayName:      name,
		})
		if err != nil {
			cmd.Printf("Failed to trigger run: %v\n", err)
			return
		}

		cmd.Printf("%s Run scheduled\n", colorGreen+"✓"+colorReset)
		cmd.Printf("%sHandle:%s  %s\n", colorDim, colorReset, resp.RunHandle)
		cmd.Printf("%sName:%s    %s\n", colorDim, colorReset, resp.Name)
		cmd.Printf("%sStatus:%s  %s\n", colorDim, colorReset, resp.Status)

		if !wait {
			cmd.Printf("\nCheck progress with: farmctl status %s\n", resp.RunHandle)
			return
		}

		waitForRun(cmd, client, resp.RunHandle)
	},
}

// waitForRun polls the run until it completes and prints the final state.
func waitForRun(cmd *cobra.Command, client *FarmgateClient, runHandle string) {
	interval, _ := cmd.Flags().GetDuration("poll-interval")

	lastStatus := ""
	for {
		run, err := client.GetRun(runHandle)
		if err != nil {
			cmd.Printf("Failed to poll run: %v\n", err)
			return
		}

		if run.Status != lastStatus {
			cmd.Printf("%s %s\n", time.Now().Format("15:04:05"), colorizeRunStatus(run.Status, run.Result))
			lastStatus = run.Status
		}
		if run.Status == "COMPLETED" {
			printRunStatus(cmd, run)
			return
		}
		time.Sleep(interval)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("build", "", "Path to the app build (apk/ipa) on the controller host")
	runCmd.Flags().String("pool", "", "Device pool handle to run on")
	runCmd.Flags().String("project", "", "Project handle (defaults to the controller's project)")
	runCmd.Flags().String("platform", "android", "Target platform: android or ios")
	runCmd.Flags().String("mode", api.TestModeFull, "Test selection: full, single_file or single_case")
	runCmd.Flags().String("test", "", "Test file path for single_file and single_case modes")
	runCmd.Flags().String("case", "", "Test case name filter for single_case mode")
	runCmd.Flags().String("name", "", "Display name for the run")
	runCmd.Flags().Bool("wait", false, "Block until the run completes")
	runCmd.Flags().Duration("poll-interval", 30*time.Second, "Status poll cadence used with --wait")

	runCmd.MarkFlagRequired("build")
	runCmd.MarkFlagRequired("pool")
}
