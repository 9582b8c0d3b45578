package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"lunchbot/lib/restyutil"
	"lunchbot/lib/serviceutil"
	"lunchbot/lib/telemetry"
	"lunchbot/lib/timezone"
	"lunchbot/services/lunchbot"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	debug   *bool
	dumpDir *string
	tel     telemetry.Telemetry
)

func init() {
	debug = rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging.")
	dumpDir = rootCmd.PersistentFlags().String("dump-http", "", "Write every fetched http message to this directory.")
}

var rootCmd = &cobra.Command{
	Use:   "lunchbot",
	Short: "lunchbot posts today's canteen menus with generated previews to a chat webhook.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(*debug)
		var err error
		tel, err = telemetry.SetupFromEnv(cmd.Context(), "lunchbot")
		if err != nil {
			return fmt.Errorf("setup telemetry: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := tel.Shutdown(ctx)
		if err != nil {
			slog.Warn("failed to shut down telemetry", "err", err)
		}
	},
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() lunchbot.Config {
	config, err := lunchbot.LoadConfig(nil)
	if err != nil {
		serviceutil.Fatal("failed to load config", err)
	}
	return config
}

func serviceOptions() lunchbot.ServiceOptions {
	options := lunchbot.ServiceOptions{}
	if *dumpDir != "" {
		output, err := restyutil.NewFilesystemOutput(*dumpDir)
		if err != nil {
			serviceutil.Fatal("failed to create http dump directory", err)
		}
		options.Output = output
	}
	return options
}

func newService(ctx context.Context, config lunchbot.Config) *lunchbot.Service {
	service, err := lunchbot.NewService(ctx, config, serviceOptions())
	if err != nil {
		serviceutil.Fatal("failed to initialize lunchbot", err)
	}
	return service
}

// parseDate reads a YYYY-MM-DD flag value, the empty string is now.
func parseDate(value string) (time.Time, error) {
	if value == "" {
		return timezone.Now(), nil
	}
	day, err := time.ParseInLocation("2006-01-02", value, timezone.Location)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", value, err)
	}
	return day, nil
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
