package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "farmctl",
	Short: "Farmctl is a command line tool for running app tests on remote devices",
	Long: `farmctl is the command-line interface for the farmgate test execution pipeline.

Farmgate takes a locally built app binary, pushes it to a remote device farm
together with a packaged test bundle and a generated execution script, schedules
a run on real devices and turns the raw artifacts into a single report URL.

Common workflows:

  Run the full suite against a build:
    farmctl run --build app-release.apk --pool pool-1 --platform android

  Run a single test file:
    farmctl run --build app.apk --pool pool-1 --platform android \
      --mode single_file --test test/e2e/login.e2e.ts

  Check run status:
    farmctl status <run-handle>

  Fetch the report URL for a finished run:
    farmctl report <run-handle>

  Show the run history, pulling in finished remote runs first:
    farmctl history --reconcile

Configuration:
  Set the API endpoint and credentials via environment variables or a config file:
    FARMGATE_URL      API endpoint (default: http://localhost:6161)
    FARMGATE_TOKEN    API key for authentication`,
}

func Execute() error {
	return rootCmd.Execute()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".farmctl"
		viper.AddConfigPath(home)
		viper.SetConfigName(".farmctl")
		viper.SetConfigType("yaml")
	}

	// Read environment variables that match "FARMGATE_VARNAME"
	viper.SetEnvPrefix("FARMGATE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.farmctl.yaml)")

	rootCmd.PersistentFlags().String("url", "http://localhost:6161", "Farmgate Controller URL")
	viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))

	rootCmd.PersistentFlags().StringP("token", "t", "", "API key for authentication")
	viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
}
