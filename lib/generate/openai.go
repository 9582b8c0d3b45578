package generate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lunchbot/lib/restyutil"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultSystemContent = "You are a 5-star restaurant critic. You are writing a review of the following dish:"

	translatorSystemContent = "You are a translator. Be sure to keep the meaning of the text. "
)

type OpenAIOptions struct {
	APIKey  string
	BaseURL string
	// defaults to dall-e-2 at 256x256
	ImageModel string
	ImageSize  string
	// defaults to gpt-3.5-turbo
	ChatModel string
	// system message for descriptions, defaults to DefaultSystemContent
	SystemContent string
	Timeout       time.Duration
}

// OpenAI generates images, descriptions and translations through the
// openai rest api.
type OpenAI struct {
	http    *resty.Client
	options OpenAIOptions
}

func NewOpenAI(options OpenAIOptions) *OpenAI {
	if options.BaseURL == "" {
		options.BaseURL = DefaultOpenAIBaseURL
	}
	if options.ImageModel == "" {
		options.ImageModel = "dall-e-2"
	}
	if options.ImageSize == "" {
		options.ImageSize = "256x256"
	}
	if options.ChatModel == "" {
		options.ChatModel = "gpt-3.5-turbo"
	}
	if options.SystemContent == "" {
		options.SystemContent = DefaultSystemContent
	}
	if options.Timeout <= 0 {
		options.Timeout = 60 * time.Second
	}

	client := resty.New()
	client.SetBaseURL(options.BaseURL)
	client.SetAuthToken(options.APIKey)
	client.SetTimeout(options.Timeout)
	restyutil.InstrumentClient(client, tracer, nil)

	return &OpenAI{http: client, options: options}
}

func (o *OpenAI) Name() string {
	return "OpenAI API"
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (e apiError) err(res *resty.Response) error {
	if e.Error.Message != "" {
		return fmt.Errorf("openai: %s (%s)", e.Error.Message, res.Status())
	}
	return fmt.Errorf("openai: unexpected status %s", res.Status())
}

type imageRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	N       int    `json:"n"`
	Size    string `json:"size"`
	Quality string `json:"quality,omitempty"`
}

type imageResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

func (o *OpenAI) GenerateImage(ctx context.Context, prompt string) (Image, error) {
	ctx, span := tracer.Start(ctx, "OpenAI.GenerateImage")
	defer span.End()
	span.SetAttributes(attribute.String("prompt", prompt))

	var result imageResponse
	var failure apiError
	res, err := o.http.R().
		SetContext(ctx).
		SetBody(imageRequest{
			Model:   o.options.ImageModel,
			Prompt:  prompt,
			N:       1,
			Size:    o.options.ImageSize,
			Quality: "standard",
		}).
		SetResult(&result).
		SetError(&failure).
		Post("/images/generations")
	if err == nil && res.IsError() {
		err = failure.err(res)
	}
	if err == nil && (len(result.Data) == 0 || result.Data[0].URL == "") {
		err = errors.New("openai: image response contained no url")
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to generate image")
		return Image{}, err
	}

	return Image{URL: result.Data[0].URL, Generator: o.Name()}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (o *OpenAI) complete(ctx context.Context, messages []chatMessage) (string, error) {
	var result chatResponse
	var failure apiError
	res, err := o.http.R().
		SetContext(ctx).
		SetBody(chatRequest{
			Model:    o.options.ChatModel,
			Messages: messages,
		}).
		SetResult(&result).
		SetError(&failure).
		Post("/chat/completions")
	if err != nil {
		return "", err
	}
	if res.IsError() {
		return "", failure.err(res)
	}
	if len(result.Choices) == 0 {
		return "", errors.New("openai: completion contained no choices")
	}
	return result.Choices[0].Message.Content, nil
}

// DescriptionPrompt is the user message sent for a dish.
func DescriptionPrompt(dishName string) string {
	return dishName + " - please describe this meal in two sentences."
}

func (o *OpenAI) Describe(ctx context.Context, dishName, avoid string) (string, error) {
	ctx, span := tracer.Start(ctx, "OpenAI.Describe")
	defer span.End()

	messages := []chatMessage{
		{Role: "system", Content: o.options.SystemContent},
		{Role: "user", Content: DescriptionPrompt(dishName)},
	}
	if avoid != "" {
		messages = append(messages, chatMessage{
			Role:    "user",
			Content: "Do not reuse the structure or phrasing of this earlier description: " + avoid,
		})
	}

	description, err := o.complete(ctx, messages)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to describe dish")
		return "", err
	}
	return description, nil
}

func (o *OpenAI) Translate(ctx context.Context, text string) (string, error) {
	ctx, span := tracer.Start(ctx, "OpenAI.Translate")
	defer span.End()

	translated, err := o.complete(ctx, []chatMessage{
		{Role: "system", Content: translatorSystemContent},
		{Role: "user", Content: text + " - please translate this from german to english."},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to translate")
		return "", err
	}
	return translated, nil
}
