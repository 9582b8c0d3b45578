package lunchbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"lunchbot/lib/artifacts"
	"lunchbot/lib/fetch"
	"lunchbot/lib/generate"
	"lunchbot/lib/restyutil"
	"lunchbot/lib/scraper"
	"lunchbot/lib/scrapers/alsterfood"
	"lunchbot/lib/scrapers/imensa"
	"lunchbot/lib/webhook"

	"github.com/redis/go-redis/v9"
)

var SourceEmoji = map[string]string{
	alsterfood.Label: ":alsterfood:",
	imensa.Label:     ":cfel:",
}

// Service holds everything a run needs, built once from a validated Config.
type Service struct {
	Config   Config
	Fetcher  *fetch.Fetcher
	Pipeline *Pipeline
	Alerter  Alerter
	History  *History

	closers []func() error
}

type ServiceOptions struct {
	// dumps full http messages of the fetcher when set
	Output restyutil.InstrumentOutput
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func newImageGenerator(config GenerationConfig, openai *generate.OpenAI) (generate.ImageGenerator, error) {
	backend, err := generate.ParseBackend(config.Backend)
	if err != nil {
		return nil, err
	}
	switch backend {
	case generate.BackendHuggingFace:
		huggingface := generate.NewHuggingFace(generate.HuggingFaceOptions{
			APIURL:   config.HuggingFaceAPIURL,
			APIToken: config.HuggingFaceAPIToken,
			Timeout:  seconds(config.TimeoutSeconds),
		})
		return generate.Chain{huggingface, openai}, nil
	default:
		return openai, nil
	}
}

func newRemote(ctx context.Context, config ImagesConfig, timeout time.Duration) (artifacts.Remote, error) {
	if config.S3.Enabled() {
		return artifacts.NewS3Remote(ctx, config.S3)
	}
	if config.webdavEnabled() {
		return artifacts.NewWebDAVRemote(artifacts.WebDAVOptions{
			UploadURL:   config.UploadURL,
			DownloadURL: config.DownloadURL,
			Token:       config.UploadToken,
			Timeout:     timeout,
		}), nil
	}
	return nil, nil
}

// NewSources returns the configured canteen scrapers, translator may be nil.
func NewSources(config SourcesConfig, fetcher scraper.DocumentFetcher, translator generate.Translator) []scraper.Scraper {
	var sources []scraper.Scraper
	if config.AlsterfoodURL != "" {
		sources = append(sources, alsterfood.NewScraper(fetcher, config.AlsterfoodURL))
	}
	if config.CfelURL != "" {
		sources = append(sources, imensa.NewScraper(fetcher, config.CfelURL, translator))
	}
	return sources
}

func NewService(ctx context.Context, config Config, options ServiceOptions) (*Service, error) {
	err := config.Validate()
	if err != nil {
		return nil, err
	}

	service := &Service{Config: config}
	generationTimeout := seconds(config.Generation.TimeoutSeconds)

	service.Fetcher = fetch.NewFetcher(fetch.Options{
		ReadyTimeout: seconds(config.Sources.ReadyTimeoutSeconds),
		Output:       options.Output,
	})

	openai := generate.NewOpenAI(generate.OpenAIOptions{
		APIKey:        config.Generation.OpenAIAPIKey,
		BaseURL:       config.Generation.OpenAIBaseURL,
		SystemContent: config.Generation.SystemContent,
		Timeout:       generationTimeout,
	})
	images, err := newImageGenerator(config.Generation, openai)
	if err != nil {
		return nil, err
	}

	var translator generate.Translator
	if config.Generation.Translate {
		translator = openai
	}
	sources := NewSources(config.Sources, service.Fetcher, translator)

	enricherOptions := EnricherOptions{
		Images:         images,
		Downloader:     generate.NewDownloader(generationTimeout),
		Ephemeral:      config.Images.UseGeneratorURL,
		PlaceholderURL: config.Generation.PlaceholderURL,
	}
	if config.Generation.Describe {
		enricherOptions.Descriptions = openai
	}
	enricherOptions.Store, err = artifacts.NewDiskStore(config.Images.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("image cache: %w", err)
	}
	enricherOptions.Remote, err = newRemote(ctx, config.Images, generationTimeout)
	if err != nil {
		return nil, fmt.Errorf("image remote: %w", err)
	}

	if config.Lock.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     config.Lock.RedisAddr,
			Password: config.Lock.RedisPassword,
		})
		service.closers = append(service.closers, client.Close)
		enricherOptions.Locker = artifacts.NewRedisLocker(client, artifacts.RedisLockerOptions{
			TTL: seconds(config.Lock.TTLSeconds),
		})
		slog.Debug("using redis locks", "addr", config.Lock.RedisAddr)
	}

	if config.History.Enabled() {
		database, err := config.History.OpenDB()
		if err != nil {
			service.Close()
			return nil, fmt.Errorf("history: %w", err)
		}
		service.closers = append(service.closers, database.Close)
		history, err := OpenHistory(ctx, database)
		if err != nil {
			service.Close()
			return nil, fmt.Errorf("history: %w", err)
		}
		service.History = &history
	}

	webhookTimeout := seconds(config.Webhook.TimeoutSeconds)
	service.Pipeline = &Pipeline{
		Sources:  sources,
		Enricher: NewEnricher(enricherOptions),
		Publisher: Publisher{
			Sender:   webhook.NewMattermost(config.Webhook.URL, webhookTimeout),
			Username: config.Webhook.Username,
			Attempts: config.Webhook.Attempts,
		},
		History: service.History,
		Workers: config.Enrich.Workers,
		Prefix:  config.Message.Prefix,
		Suffix:  config.Suffix,
		Emoji:   SourceEmoji,
	}

	var alertSender webhook.Sender
	if config.Webhook.AlertURL != "" {
		alertSender = webhook.NewMattermost(config.Webhook.AlertURL, webhookTimeout)
	}
	service.Alerter = NewAlerter(alertSender, config.Webhook.AlertPrefix, config.Alert.Email)

	return service, nil
}

// NewRun copies the pipeline with a fresh Enricher, the memo of a run
// must not carry over to the next day.
func (s *Service) NewRun() *Pipeline {
	run := *s.Pipeline
	run.Enricher = NewEnricher(s.Pipeline.Enricher.options)
	return &run
}

// Run executes one run and escalates its failure to the alert channels.
func (s *Service) Run(ctx context.Context, now time.Time) (RunResult, error) {
	result, err := s.NewRun().Run(ctx, now)
	if err != nil {
		alertErr := s.Alerter.Alert(ctx, err)
		if alertErr != nil {
			slog.ErrorContext(ctx, "failed to send alert", "err", alertErr)
		}
	}
	return result, err
}

func (s *Service) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	s.closers = nil
	return errors.Join(errs...)
}
