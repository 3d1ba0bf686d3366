package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "reportmill",
	Short: "ReportMill CLI - scheduled Jira report delivery",
	Long: `ReportMill CLI is a command-line client for the ReportMill service.
It manages scheduled reports, runs them on demand, inspects run history,
and controls the scheduler.`,
}

func init() {
	viper.SetConfigName("reportmill")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.config")
	viper.AddConfigPath(".")
	viper.ReadInConfig()

	rootCmd.PersistentFlags().String("server", "http://localhost:8080", "ReportMill server URL")
	viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))

	rootCmd.AddCommand(newLoginCommand())
	rootCmd.AddCommand(newReportsCommand())
	rootCmd.AddCommand(newHistoryCommand())
	rootCmd.AddCommand(newSchedulerCommand())
	rootCmd.AddCommand(newTestDeliveryCommand())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
