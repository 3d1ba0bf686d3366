package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/reportmill/cmd/cli/client"
)

func apiClient() *client.APIClient {
	baseURL := viper.GetString("server")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return client.NewAPIClient(baseURL)
}

func newLoginCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Login to ReportMill",
		Run: func(cmd *cobra.Command, args []string) {
			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")

			token, err := apiClient().Login(username, password)
			if err != nil {
				fmt.Printf("Login failed: %v\n", err)
				return
			}

			viper.Set("token", token)
			viper.WriteConfig()
			fmt.Println("Login successful")
		},
	}
	cmd.Flags().StringP("username", "u", "", "Username")
	cmd.Flags().StringP("password", "p", "", "Password")
	return cmd
}

func newReportsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "List and manage scheduled reports",
		Run: func(cmd *cobra.Command, args []string) {
			reports, err := apiClient().ListReports()
			if err != nil {
				fmt.Printf("Error getting reports: %v\n", err)
				return
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.TabIndent)
			fmt.Fprintln(w, "ID\tNAME\tFREQUENCY\tTIME\tENABLED\tLAST RUN\t")
			for _, r := range reports {
				lastRun := "never"
				if r.LastRun != nil {
					lastRun = r.LastRun.Timestamp.Format("2006-01-02 15:04")
					if !r.LastRun.Success {
						lastRun += " (failed)"
					}
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%s\t\n",
					r.ID, r.Name, r.Schedule.Frequency, r.Schedule.Time, r.Enabled, lastRun)
			}
			w.Flush()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "run [id]",
		Short: "Run a scheduled report immediately",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			run, err := apiClient().RunReport(args[0])
			if err != nil {
				fmt.Printf("Error running report: %v\n", err)
				return
			}
			if run.Delivery.Success {
				fmt.Printf("Report delivered to %v\n", run.Delivery.Recipients)
			} else {
				fmt.Printf("Report run failed: %s\n", run.Delivery.Error)
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "enable [id]",
		Short: "Enable a scheduled report",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := apiClient().SetReportEnabled(args[0], true); err != nil {
				fmt.Printf("Error enabling report: %v\n", err)
				return
			}
			fmt.Println("Report enabled")
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "disable [id]",
		Short: "Disable a scheduled report",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := apiClient().SetReportEnabled(args[0], false); err != nil {
				fmt.Printf("Error disabling report: %v\n", err)
				return
			}
			fmt.Println("Report disabled")
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a scheduled report",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := apiClient().DeleteReport(args[0]); err != nil {
				fmt.Printf("Error deleting report: %v\n", err)
				return
			}
			fmt.Println("Report deleted")
		},
	})

	return cmd
}

func newHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show report run history",
		Run: func(cmd *cobra.Command, args []string) {
			limit, _ := cmd.Flags().GetInt("limit")
			runs, err := apiClient().RunHistory(limit)
			if err != nil {
				fmt.Printf("Error getting history: %v\n", err)
				return
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.TabIndent)
			fmt.Fprintln(w, "TIME\tREPORT\tSUCCESS\tRECIPIENTS\tERROR\t")
			for _, r := range runs {
				title := ""
				if r.Report != nil {
					title = r.Report.Title
				}
				fmt.Fprintf(w, "%s\t%s\t%t\t%d\t%s\t\n",
					r.Timestamp.Format(time.RFC3339), title, r.Delivery.Success,
					len(r.Delivery.Recipients), r.Delivery.Error)
			}
			w.Flush()
		},
	}
	cmd.Flags().Int("limit", 0, "Maximum number of runs to show")
	return cmd
}

func newSchedulerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scheduler",
		Short: "Control the report scheduler",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "start",
		Short: "Arm timers for all enabled reports",
		Run: func(cmd *cobra.Command, args []string) {
			if err := apiClient().StartScheduler(); err != nil {
				fmt.Printf("Error starting scheduler: %v\n", err)
				return
			}
			fmt.Println("Scheduler started")
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "stop",
		Short: "Disarm all pending timers",
		Run: func(cmd *cobra.Command, args []string) {
			if err := apiClient().StopScheduler(); err != nil {
				fmt.Printf("Error stopping scheduler: %v\n", err)
				return
			}
			fmt.Println("Scheduler stopped")
		},
	})

	return cmd
}

func newTestDeliveryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "test-delivery",
		Short: "Send a self-addressed test email through the configured transport",
		Run: func(cmd *cobra.Command, args []string) {
			result, err := apiClient().TestDelivery()
			if err != nil {
				fmt.Printf("Delivery test failed: %v\n", err)
				return
			}
			if result.Success {
				fmt.Printf("Delivery test succeeded, message id %q\n", result.MessageID)
			} else {
				fmt.Printf("Delivery test failed: %s\n", result.Error)
			}
		},
	}
}
