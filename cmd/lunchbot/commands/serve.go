package commands

import (
	"log/slog"
	"time"

	"lunchbot/lib/serviceutil"
	"lunchbot/lib/telemetry"
	"lunchbot/services/lunchbot"

	"github.com/spf13/cobra"
)

var serveAddr *string

func init() {
	serveAddr = serveCmd.Flags().String("addr", "", "Listen address, overrides serve.addr.")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve [--addr <host:port>]",
	Short: "Publishes on a schedule and serves POST /run and the recent logs.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		config := loadConfig()
		if *serveAddr != "" {
			config.Serve.Addr = *serveAddr
		}

		logs := lunchbot.NewLogBuffer(config.Serve.LogLines)
		telemetry.InitSlogWithHandler(lunchbot.NewTeeHandler(
			slog.Default().Handler(),
			slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelInfo}),
		))

		service := newService(ctx, config)
		defer service.Close()

		telemetry.InstrumentPerfStats(ctx, 15*time.Second)

		server := lunchbot.NewServer(service, logs)
		err := server.Schedule(ctx, config.Serve.Schedule)
		if err != nil {
			serviceutil.Fatal("failed to schedule runs", err)
		}
		slog.Info("scheduled runs", "schedule", config.Serve.Schedule)

		err = server.Serve(ctx, config.Serve.Addr)
		if err != nil {
			serviceutil.Fatal("failed to serve", err)
		}
	},
}
