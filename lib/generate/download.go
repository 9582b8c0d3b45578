package generate

import (
	"context"
	"fmt"
	"time"

	"lunchbot/lib/restyutil"

	"github.com/go-resty/resty/v2"
)

// Downloader fetches images that a generator only returned as a url, these
// urls usually expire after an hour.
type Downloader struct {
	http *resty.Client
}

func NewDownloader(timeout time.Duration) *Downloader {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	client := resty.New()
	client.SetTimeout(timeout)
	restyutil.InstrumentClient(client, tracer, nil)
	return &Downloader{http: client}
}

func (d *Downloader) Download(ctx context.Context, url string) ([]byte, error) {
	res, err := d.http.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("download %s: unexpected status %s", url, res.Status())
	}
	return res.Body(), nil
}
