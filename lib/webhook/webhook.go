package webhook

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"lunchbot/lib/restyutil"
	"lunchbot/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("lunchbot.lib.webhook")

const DefaultUsername = "Lunchbot"

type Sender interface {
	Send(ctx context.Context, text, username string) error
}

type payload struct {
	Username string `json:"username"`
	Text     string `json:"text"`
}

// Mattermost posts messages to an incoming webhook, anything but a 200 is
// a failed delivery.
type Mattermost struct {
	http *resty.Client
	url  string
}

func NewMattermost(url string, timeout time.Duration) *Mattermost {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	client := resty.New()
	client.SetTimeout(timeout)
	restyutil.InstrumentClient(client, tracer, nil)
	return &Mattermost{http: client, url: url}
}

func (m *Mattermost) Send(ctx context.Context, text, username string) error {
	ctx, span := tracer.Start(ctx, "Mattermost.Send")
	defer span.End()

	if username == "" {
		username = DefaultUsername
	}
	span.SetAttributes(
		attribute.String("username", username),
		attribute.Int("length", len(text)),
	)

	res, err := m.http.R().
		SetContext(ctx).
		SetBody(payload{Username: username, Text: text}).
		Post(m.url)
	if err == nil && res.StatusCode() != http.StatusOK {
		err = fmt.Errorf("webhook: unexpected status %s: %s", res.Status(), res.String())
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send message")
		return err
	}
	return nil
}
