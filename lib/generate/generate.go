package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lunchbot/lib/telemetry"
)

var tracer = telemetry.Tracer("lunchbot.lib.generate")

// Image is the result of an image generation, at least one of Data and
// URL is set. Generator names the backend that produced it.
type Image struct {
	Data      []byte
	URL       string
	Generator string
}

type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (Image, error)
	Name() string
}

type DescriptionGenerator interface {
	// avoid is an earlier description the result should not resemble, it
	// may be empty.
	Describe(ctx context.Context, dishName, avoid string) (string, error)
}

type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

type Backend string

const (
	BackendOpenAI      Backend = "openai"
	BackendHuggingFace Backend = "huggingface"
)

var ErrUnknownBackend = errors.New("unknown generation backend")

// ParseBackend accepts exactly "openai" and "huggingface", ignoring case.
func ParseBackend(value string) (Backend, error) {
	switch Backend(strings.ToLower(strings.TrimSpace(value))) {
	case BackendOpenAI:
		return BackendOpenAI, nil
	case BackendHuggingFace:
		return BackendHuggingFace, nil
	}
	return "", fmt.Errorf("%w: %q (must be either 'huggingface' or 'openai')", ErrUnknownBackend, value)
}
