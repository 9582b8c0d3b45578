package lunchbot

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"lunchbot/lib/telemetry"
	"lunchbot/lib/webhook"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel/codes"
)

// AlertText is the message sent to the alert channel for err.
func AlertText(prefix string, err error) string {
	return fmt.Sprintf("%sAn error occurred: %v", prefix, err)
}

type sendMailFunc func(mail *email.Email, addr string, auth smtp.Auth) error

func sendMail(mail *email.Email, addr string, auth smtp.Auth) error {
	return mail.Send(addr, auth)
}

// Alerter escalates fatal run errors to a webhook and, optionally, by mail.
// Either channel may be unset.
type Alerter struct {
	Sender webhook.Sender
	Prefix string
	Email  EmailConfig

	send sendMailFunc
}

func NewAlerter(sender webhook.Sender, prefix string, mail EmailConfig) Alerter {
	return Alerter{
		Sender: sender,
		Prefix: prefix,
		Email:  mail,
		send:   sendMail,
	}
}

func (a Alerter) Alert(ctx context.Context, cause error) error {
	ctx, span := tracer.Start(ctx, "Alert")
	defer span.End()

	text := AlertText(a.Prefix, cause)

	var errs []error
	if a.Sender != nil {
		err := a.Sender.Send(ctx, text, webhook.DefaultUsername)
		if err != nil {
			errs = append(errs, fmt.Errorf("alert webhook: %w", err))
		}
	}
	if a.Email.Enabled() {
		err := a.mail(text)
		if err != nil {
			errs = append(errs, fmt.Errorf("alert email: %w", err))
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		telemetry.ReportBroken(report_alert_failed, "err", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send alert")
	}
	return err
}

func (a Alerter) mail(text string) error {
	send := a.send
	if send == nil {
		send = sendMail
	}

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("Lunchbot <%s>", a.Email.From)
	mail.To = a.Email.Recipients()
	mail.Subject = "Lunchbot run failed"
	mail.Text = []byte(text)

	port := a.Email.Port
	if port == 0 {
		port = 587
	}
	addr := fmt.Sprintf("%s:%d", a.Email.Server, port)

	err := send(mail, addr, smtp.PlainAuth("", a.Email.From, a.Email.Password, a.Email.Server))
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = send(mail, addr, nil)
	}
	return err
}
