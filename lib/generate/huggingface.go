package generate

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

const huggingFacePromptPrefix = "Generate a realistic looking image based on the following prompt: "

type HuggingFaceOptions struct {
	// full inference endpoint of the model
	APIURL   string
	APIToken string
	Timeout  time.Duration
}

// HuggingFace generates images with a text-to-image inference endpoint,
// the endpoint answers with the raw image bytes.
type HuggingFace struct {
	http    *resty.Client
	options HuggingFaceOptions
}

func NewHuggingFace(options HuggingFaceOptions) *HuggingFace {
	if options.Timeout <= 0 {
		options.Timeout = 60 * time.Second
	}

	client := resty.New()
	client.SetAuthToken(options.APIToken)
	client.SetTimeout(options.Timeout)
	restyutil.InstrumentClient(client, tracer, nil)

	return &HuggingFace{http: client, options: options}
}

func (h *HuggingFace) Name() string {
	return "Huggingface API"
}

func (h *HuggingFace) GenerateImage(ctx context.Context, prompt string) (Image, error) {
	ctx, span := tracer.Start(ctx, "HuggingFace.GenerateImage")
	defer span.End()
	span.SetAttributes(attribute.String("prompt", prompt))

	res, err := h.http.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"inputs": huggingFacePromptPrefix + prompt,
		}).
		Post(h.options.APIURL)
	if err == nil && res.IsError() {
		err = fmt.Errorf("huggingface: unexpected status %s: %s", res.Status(), res.String())
	}
	if err == nil {
		contentType := http.DetectContentType(res.Body())
		if !strings.HasPrefix(contentType, "image/") {
			err = fmt.Errorf("huggingface: response is not an image (%s)", contentType)
		}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to generate image")
		return Image{}, err
	}

	return Image{Data: res.Body(), Generator: h.Name()}, nil
}
