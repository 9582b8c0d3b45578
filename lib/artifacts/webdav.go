package artifacts

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"lunchbot/lib/restyutil"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type WebDAVOptions struct {
	// the file name is appended to both urls
	UploadURL   string
	DownloadURL string
	// "user:password", the password part is optional
	Token   string
	Timeout time.Duration
}

// WebDAVRemote uploads with an authenticated PUT (e.g. a nextcloud public
// share) and reads back through the public download url.
type WebDAVRemote struct {
	http     *resty.Client
	options  WebDAVOptions
	user     string
	password string
}

func NewWebDAVRemote(options WebDAVOptions) *WebDAVRemote {
	if options.Timeout <= 0 {
		options.Timeout = 60 * time.Second
	}
	user, password, _ := strings.Cut(options.Token, ":")

	client := resty.New()
	client.SetTimeout(options.Timeout)
	restyutil.InstrumentClient(client, tracer, nil)

	return &WebDAVRemote{
		http:     client,
		options:  options,
		user:     user,
		password: password,
	}
}

func (r *WebDAVRemote) URL(hash string, kind Kind) string {
	return r.options.DownloadURL + FileName(hash, kind)
}

func (r *WebDAVRemote) Exists(ctx context.Context, hash string, kind Kind) (bool, error) {
	ctx, span := tracer.Start(ctx, "WebDAVRemote.Exists")
	defer span.End()

	res, err := r.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(r.URL(hash, kind))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to check remote")
		return false, err
	}
	res.RawBody().Close()

	found := res.StatusCode() == http.StatusOK
	span.SetAttributes(attribute.Bool("found", found))
	return found, nil
}

func (r *WebDAVRemote) Upload(ctx context.Context, hash string, kind Kind, data []byte) (string, error) {
	ctx, span := tracer.Start(ctx, "WebDAVRemote.Upload")
	defer span.End()

	contentType := "image/png"
	if kind == KindDescription {
		contentType = "text/plain; charset=utf-8"
	}

	res, err := r.http.R().
		SetContext(ctx).
		SetBasicAuth(r.user, r.password).
		SetHeader("Content-Type", contentType).
		SetBody(data).
		Put(r.options.UploadURL + FileName(hash, kind))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to upload")
		return "", err
	}
	if res.IsError() {
		err := fmt.Errorf("upload %s: unexpected status %s", FileName(hash, kind), res.Status())
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to upload")
		return "", err
	}
	return r.URL(hash, kind), nil
}
