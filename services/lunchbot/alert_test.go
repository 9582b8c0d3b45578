package lunchbot

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"lunchbot/lib/telemetry"

	"github.com/jordan-wright/email"
	"github.com/stretchr/testify/require"
)

func TestAlertText(t *testing.T) {
	require.Equal(
		t,
		"@channel An error occurred: boom",
		AlertText("@channel ", errors.New("boom")),
	)
}

func TestAlertWebhook(t *testing.T) {
	t.Cleanup(telemetry.SetupForTesting(t, "test:services/lunchbot"))

	sender := &stubSender{}
	alerter := NewAlerter(sender, "[lunchbot] ", EmailConfig{})

	err := alerter.Alert(context.Background(), errors.New("deliver report after 10 attempts"))
	require.NoError(t, err)
	require.Equal(t, []string{"[lunchbot] An error occurred: deliver report after 10 attempts"}, sender.texts)
	require.Equal(t, []string{"Lunchbot"}, sender.usernames)

	failing := NewAlerter(&stubSender{failures: 1}, "", EmailConfig{})
	require.ErrorIs(t, failing.Alert(context.Background(), errors.New("x")), errDelivery)

	// nothing configured
	require.NoError(t, NewAlerter(nil, "", EmailConfig{}).Alert(context.Background(), errors.New("x")))
}

func TestAlertEmail(t *testing.T) {
	t.Cleanup(telemetry.SetupForTesting(t, "test:services/lunchbot"))

	type sent struct {
		addr    string
		auth    bool
		to      []string
		subject string
		text    string
	}
	var calls []sent

	alerter := NewAlerter(nil, "", EmailConfig{
		Server: "smtp.test",
		Port:   2525,
		From:   "lunchbot@test",
		To:     "ops@test",
	})
	alerter.send = func(mail *email.Email, addr string, auth smtp.Auth) error {
		calls = append(calls, sent{
			addr:    addr,
			auth:    auth != nil,
			to:      mail.To,
			subject: mail.Subject,
			text:    string(mail.Text),
		})
		if auth != nil {
			return errors.New("smtp: server doesn't support AUTH")
		}
		return nil
	}

	err := alerter.Alert(context.Background(), errors.New("boom"))
	require.NoError(t, err)
	require.Len(t, calls, 2)
	require.True(t, calls[0].auth)
	require.False(t, calls[1].auth)
	require.Equal(t, "smtp.test:2525", calls[1].addr)
	require.Equal(t, []string{"ops@test"}, calls[1].to)
	require.Equal(t, "An error occurred: boom", calls[1].text)
}
