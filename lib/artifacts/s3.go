package artifacts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"go.opentelemetry.io/otel/codes"
)

type S3Options struct {
	Bucket    string `json:"bucket" env:"S3_BUCKET"`
	Region    string `json:"region" env:"S3_REGION"`
	Endpoint  string `json:"endpoint" env:"S3_ENDPOINT"`
	AccessKey string `json:"access_key" env:"S3_ACCESS_KEY"`
	SecretKey string `json:"secret_key" env:"S3_SECRET_KEY"`
	// objects are read back from here, defaults to {endpoint}/{bucket}
	PublicBaseURL string `json:"public_base_url" env:"S3_PUBLIC_BASE_URL"`
	// optional key prefix, e.g. "lunchbot/"
	Prefix string `json:"prefix"`
}

func (o S3Options) Enabled() bool {
	return o.Bucket != ""
}

// S3Remote stores artifacts in an S3 compatible bucket (aws, minio, r2).
type S3Remote struct {
	client  *s3.Client
	options S3Options
}

func NewS3Remote(ctx context.Context, options S3Options) (*S3Remote, error) {
	if options.Bucket == "" {
		return nil, fmt.Errorf("s3 remote: bucket is required")
	}
	if options.Region == "" {
		options.Region = "auto"
	}

	loadOptions := []func(*config.LoadOptions) error{
		config.WithRegion(options.Region),
	}
	if options.AccessKey != "" {
		loadOptions = append(loadOptions, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(options.AccessKey, options.SecretKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
		if options.Endpoint != "" {
			o.BaseEndpoint = aws.String(options.Endpoint)
		}
	})
	return &S3Remote{client: client, options: options}, nil
}

func (r *S3Remote) key(hash string, kind Kind) string {
	return r.options.Prefix + FileName(hash, kind)
}

func (r *S3Remote) URL(hash string, kind Kind) string {
	base := r.options.PublicBaseURL
	if base == "" {
		base = fmt.Sprintf("%s/%s", strings.TrimSuffix(r.options.Endpoint, "/"), r.options.Bucket)
	}
	return fmt.Sprintf("%s/%s", strings.TrimSuffix(base, "/"), r.key(hash, kind))
}

func (r *S3Remote) Exists(ctx context.Context, hash string, kind Kind) (bool, error) {
	ctx, span := tracer.Start(ctx, "S3Remote.Exists")
	defer span.End()

	_, err := r.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(r.options.Bucket),
		Key:    aws.String(r.key(hash, kind)),
	})
	if err == nil {
		return true, nil
	}

	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return false, nil
	}
	var responseErr *smithyhttp.ResponseError
	if errors.As(err, &responseErr) && responseErr.HTTPStatusCode() == http.StatusNotFound {
		return false, nil
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, "failed to head object")
	return false, err
}

func (r *S3Remote) Upload(ctx context.Context, hash string, kind Kind, data []byte) (string, error) {
	ctx, span := tracer.Start(ctx, "S3Remote.Upload")
	defer span.End()

	contentType := "image/png"
	if kind == KindDescription {
		contentType = "text/plain; charset=utf-8"
	}

	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.options.Bucket),
		Key:         aws.String(r.key(hash, kind)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to put object")
		return "", err
	}
	return r.URL(hash, kind), nil
}
