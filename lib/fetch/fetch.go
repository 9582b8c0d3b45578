package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"lunchbot/lib/restyutil"
	"lunchbot/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("lunchbot.lib.fetch")

var ErrNotReady = errors.New("page did not become ready")

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

type Options struct {
	// how long to keep re-fetching until the readiness element shows up,
	// defaults to 30 seconds
	ReadyTimeout time.Duration
	// first delay between attempts, doubled up to MaxBackoff
	Backoff    time.Duration
	MaxBackoff time.Duration
	// optional sink for full request/response dumps
	Output restyutil.InstrumentOutput
}

// Fetcher downloads static html documents.
type Fetcher struct {
	http    *resty.Client
	options Options
}

func NewFetcher(options Options) *Fetcher {
	if options.ReadyTimeout <= 0 {
		options.ReadyTimeout = 30 * time.Second
	}
	if options.Backoff <= 0 {
		options.Backoff = time.Second
	}
	if options.MaxBackoff <= 0 {
		options.MaxBackoff = 5 * time.Second
	}

	client := resty.New()
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetHeader("user-agent", userAgent)
	client.SetTimeout(time.Second * 30)
	restyutil.InstrumentClient(client, tracer, options.Output)

	return &Fetcher{http: client, options: options}
}

// Fetch downloads url and parses it. When ready is not empty the page is
// fetched again until an element matching the ready selector is present or
// the ready timeout has passed, in which case ErrNotReady is returned.
func (f *Fetcher) Fetch(ctx context.Context, url, ready string) (*goquery.Document, error) {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()
	span.SetAttributes(
		attribute.String("url", url),
		attribute.String("ready", ready),
	)

	deadline := time.Now().Add(f.options.ReadyTimeout)
	backoff := f.options.Backoff
	attempts := 0

	for {
		attempts++
		doc, err := f.get(ctx, url)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to fetch document")
			return nil, err
		}
		if ready == "" || doc.Find(ready).Length() > 0 {
			span.SetAttributes(attribute.Int("attempts", attempts))
			return doc, nil
		}

		if time.Now().Add(backoff).After(deadline) {
			err := fmt.Errorf("%w: %s after %d attempts (waiting for %q)", ErrNotReady, url, attempts, ready)
			span.RecordError(err)
			span.SetStatus(codes.Error, "page not ready")
			return nil, err
		}

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		backoff *= 2
		if backoff > f.options.MaxBackoff {
			backoff = f.options.MaxBackoff
		}
	}
}

func (f *Fetcher) get(ctx context.Context, url string) (*goquery.Document, error) {
	res, err := f.http.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", url, res.Status())
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	return doc, nil
}
