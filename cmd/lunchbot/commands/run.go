package commands

import (
	"log/slog"
	"os"

	"lunchbot/lib/serviceutil"

	"github.com/spf13/cobra"
)

var runDate *string

func init() {
	runDate = runCmd.Flags().String("date", "", "Publish the menu of this day (YYYY-MM-DD) instead of today.")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run [--date <YYYY-MM-DD>]",
	Short: "Scrapes, enriches and publishes today's menu once.",
	Run: func(cmd *cobra.Command, args []string) {
		now, err := parseDate(*runDate)
		if err != nil {
			serviceutil.Fatal("failed to parse date", err)
		}

		service := newService(cmd.Context(), loadConfig())
		defer service.Close()

		result, err := service.Run(cmd.Context(), now)
		if err != nil {
			slog.Error("run failed", "err", err)
			service.Close()
			os.Exit(1)
		}
		if result.SourceErrors != nil {
			slog.Warn("some sources were skipped", "err", result.SourceErrors)
		}
		slog.Info("published", "dishes", len(result.Dishes))
	},
}
