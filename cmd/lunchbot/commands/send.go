package commands

import (
	"errors"
	"strings"

	"lunchbot/lib/serviceutil"
	"lunchbot/lib/webhook"
	"lunchbot/services/lunchbot"

	"github.com/spf13/cobra"
)

var sendAlert *bool

func init() {
	sendAlert = sendCmd.Flags().Bool("alert", false, "Send the message as an alert instead.")
	rootCmd.AddCommand(sendCmd)
}

var sendCmd = &cobra.Command{
	Use:   "send [--alert] <message...>",
	Short: "Posts a test message to the configured webhook.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		config := loadConfig()
		text := strings.Join(args, " ")
		timeout := seconds(config.Webhook.TimeoutSeconds)

		if *sendAlert {
			var sender webhook.Sender
			if config.Webhook.AlertURL != "" {
				sender = webhook.NewMattermost(config.Webhook.AlertURL, timeout)
			}
			alerter := lunchbot.NewAlerter(sender, config.Webhook.AlertPrefix, config.Alert.Email)
			err := alerter.Alert(cmd.Context(), errors.New(text))
			if err != nil {
				serviceutil.Fatal("failed to send alert", err)
			}
			return
		}

		if config.Webhook.URL == "" {
			serviceutil.Fatal("failed to send message", lunchbot.ErrMissingWebhook)
		}
		publisher := lunchbot.Publisher{
			Sender:   webhook.NewMattermost(config.Webhook.URL, timeout),
			Username: config.Webhook.Username,
			Attempts: config.Webhook.Attempts,
		}
		err := publisher.PublishText(cmd.Context(), text)
		if err != nil {
			serviceutil.Fatal("failed to send message", err)
		}
	},
}
