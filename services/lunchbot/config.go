package lunchbot

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"lunchbot/lib/artifacts"
	"lunchbot/lib/configutil"
	configlibsql "lunchbot/lib/configutil/libsql"
	"lunchbot/lib/generate"
	"lunchbot/lib/timezone"
	"lunchbot/lib/webhook"
)

const ConfigFile = "lunchbot.json5"

type SourcesConfig struct {
	AlsterfoodURL       string `json:"alsterfood_url" env:"ALSTERFOOD_WEBSITE_URL"`
	CfelURL             string `json:"cfel_url" env:"CFEL_WEBSITE_URL"`
	ReadyTimeoutSeconds int    `json:"ready_timeout_seconds" env:"READY_TIMEOUT_SECONDS"`
}

type WebhookConfig struct {
	URL            string `json:"url" env:"MATTERMOST_WEBHOOK_URL"`
	AlertURL       string `json:"alert_url" env:"MATTERMOST_WEBHOOK_URL_ALERT"`
	AlertPrefix    string `json:"alert_prefix" env:"ALERT_PREFIX"`
	Username       string `json:"username" env:"MATTERMOST_USERNAME"`
	Attempts       int    `json:"attempts" env:"MATTERMOST_ATTEMPTS"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

type MessageConfig struct {
	Prefix string `json:"prefix" env:"MESSAGE_PREFIX"`
	// keyed by weekday ("mon".."sun"), optionally with an "_even" or
	// "_odd" suffix for the iso week parity.
	Suffix map[string]string `json:"suffix"`
}

type GenerationConfig struct {
	Backend             string `json:"backend" env:"API_TO_USE"`
	SystemContent       string `json:"system_content" env:"SYSTEM_CONTENT"`
	OpenAIAPIKey        string `json:"openai_api_key" env:"OPENAI_API_KEY"`
	OpenAIBaseURL       string `json:"openai_base_url" env:"OPENAI_BASE_URL"`
	HuggingFaceAPIURL   string `json:"huggingface_api_url" env:"HUGGINGFACE_API_URL"`
	HuggingFaceAPIToken string `json:"huggingface_api_token" env:"HUGGINGFACE_API_TOKEN"`
	PlaceholderURL      string `json:"placeholder_url" env:"PLACEHOLDER_IMAGE_URL"`
	Describe            bool   `json:"describe" env:"GENERATE_DESCRIPTIONS"`
	Translate           bool   `json:"translate" env:"TRANSLATE_NAMES"`
	TimeoutSeconds      int    `json:"timeout_seconds"`
}

type ImagesConfig struct {
	// ephemeral mode, the generator's url is published as is
	UseGeneratorURL bool   `json:"use_generator_url" env:"USE_OPENAI_IMAGE_URL"`
	CacheDir        string `json:"cache_dir" env:"IMAGE_CACHE_DIR"`
	UploadURL       string `json:"upload_url" env:"IMAGE_CLOUD_UPLOAD_URL"`
	// "user:password"
	UploadToken string              `json:"upload_token" env:"IMAGE_CLOUD_UPLOAD_TOKEN"`
	DownloadURL string              `json:"download_url" env:"IMAGE_CLOUD_DOWNLOAD_URL"`
	S3          artifacts.S3Options `json:"s3"`
}

func (c ImagesConfig) webdavEnabled() bool {
	return c.UploadURL != "" && c.UploadToken != "" && c.DownloadURL != ""
}

type LockConfig struct {
	RedisAddr     string `json:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string `json:"redis_password" env:"REDIS_PASSWORD"`
	TTLSeconds    int    `json:"ttl_seconds"`
}

type EmailConfig struct {
	Server   string `json:"server" env:"ALERT_SMTP_SERVER"`
	Port     int    `json:"port" env:"ALERT_SMTP_PORT"`
	From     string `json:"from" env:"ALERT_EMAIL_FROM"`
	Password string `json:"password" env:"ALERT_SMTP_PASSWORD"`
	// comma separated
	To string `json:"to" env:"ALERT_EMAIL_TO"`
}

func (c EmailConfig) Enabled() bool {
	return c.Server != "" && c.From != "" && c.To != ""
}

func (c EmailConfig) Recipients() []string {
	var out []string
	for _, addr := range strings.Split(c.To, ",") {
		addr = strings.TrimSpace(addr)
		if addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

type AlertConfig struct {
	Email EmailConfig `json:"email"`
}

type EnrichConfig struct {
	Workers int `json:"workers" env:"ENRICH_WORKERS"`
}

type ServeConfig struct {
	Addr     string `json:"addr" env:"LUNCHBOT_ADDR"`
	Schedule string `json:"schedule" env:"LUNCHBOT_SCHEDULE"`
	LogLines int    `json:"log_lines"`
}

type Config struct {
	Sources    SourcesConfig       `json:"sources"`
	Webhook    WebhookConfig       `json:"webhook"`
	Message    MessageConfig       `json:"message"`
	Generation GenerationConfig    `json:"generation"`
	Images     ImagesConfig        `json:"images"`
	Lock       LockConfig          `json:"lock"`
	History    configlibsql.Struct `json:"history"`
	Alert      AlertConfig         `json:"alert"`
	Enrich     EnrichConfig        `json:"enrich"`
	Serve      ServeConfig         `json:"serve"`
}

var (
	ErrMissingSource  = errors.New("ALSTERFOOD_WEBSITE_URL is required")
	ErrMissingWebhook = errors.New("MATTERMOST_WEBHOOK_URL is required")
	ErrMissingRemote  = errors.New("durable image mode requires IMAGE_CLOUD_UPLOAD_URL, IMAGE_CLOUD_UPLOAD_TOKEN and IMAGE_CLOUD_DOWNLOAD_URL or an s3 bucket")
	ErrMissingAPIURL  = errors.New("HUGGINGFACE_API_URL is required for the huggingface backend")
)

var weekdayKeys = [...]string{
	time.Sunday:    "sun",
	time.Monday:    "mon",
	time.Tuesday:   "tue",
	time.Wednesday: "wed",
	time.Thursday:  "thu",
	time.Friday:    "fri",
	time.Saturday:  "sat",
}

func suffixKeys() []string {
	keys := make([]string, 0, len(weekdayKeys)*3)
	for _, day := range weekdayKeys {
		keys = append(keys, day, day+"_even", day+"_odd")
	}
	return keys
}

// applySuffixEnv copies MESSAGE_SUFFIX_<KEY> variables into the suffix map.
func (c *Config) applySuffixEnv(lookup configutil.LookupFunc) {
	for _, key := range suffixKeys() {
		value, ok := lookup("MESSAGE_SUFFIX_" + strings.ToUpper(key))
		if !ok {
			continue
		}
		if c.Message.Suffix == nil {
			c.Message.Suffix = map[string]string{}
		}
		c.Message.Suffix[key] = value
	}
}

func (c *Config) applyDefaults() {
	if c.Webhook.Username == "" {
		c.Webhook.Username = webhook.DefaultUsername
	}
	if c.Webhook.Attempts <= 0 {
		c.Webhook.Attempts = DefaultAttempts
	}
	if c.Webhook.TimeoutSeconds <= 0 {
		c.Webhook.TimeoutSeconds = 20
	}
	if c.Generation.Backend == "" {
		c.Generation.Backend = string(generate.BackendOpenAI)
	}
	if c.Generation.SystemContent == "" {
		c.Generation.SystemContent = generate.DefaultSystemContent
	}
	if c.Generation.PlaceholderURL == "" {
		c.Generation.PlaceholderURL = DefaultPlaceholderURL
	}
	if c.Generation.TimeoutSeconds <= 0 {
		c.Generation.TimeoutSeconds = 60
	}
	if c.Sources.ReadyTimeoutSeconds <= 0 {
		c.Sources.ReadyTimeoutSeconds = 30
	}
	if c.Images.CacheDir == "" {
		c.Images.CacheDir = "<dev_state>/images"
	}
	if c.Enrich.Workers <= 0 {
		c.Enrich.Workers = 1
	}
	if c.Serve.Addr == "" {
		c.Serve.Addr = ":8080"
	}
	if c.Serve.Schedule == "" {
		c.Serve.Schedule = "30 10 * * 1-5"
	}
	if c.Serve.LogLines <= 0 {
		c.Serve.LogLines = 500
	}
}

// Validate reports every configuration problem at once.
func (c Config) Validate() error {
	var errs []error
	if c.Sources.AlsterfoodURL == "" {
		errs = append(errs, ErrMissingSource)
	}
	if c.Webhook.URL == "" {
		errs = append(errs, ErrMissingWebhook)
	}

	backend, err := generate.ParseBackend(c.Generation.Backend)
	if err != nil {
		errs = append(errs, err)
	}
	if backend == generate.BackendHuggingFace && c.Generation.HuggingFaceAPIURL == "" {
		errs = append(errs, ErrMissingAPIURL)
	}

	if !c.Images.UseGeneratorURL && !c.Images.webdavEnabled() && !c.Images.S3.Enabled() {
		errs = append(errs, ErrMissingRemote)
	}
	return errors.Join(errs...)
}

// Suffix picks the message suffix for the day of now: the weekday entry,
// replaced by the entry for the iso week parity when that one is set.
func (c Config) Suffix(now time.Time) string {
	now = now.In(timezone.Location)
	key := weekdayKeys[now.Weekday()]
	parity := "_odd"
	if timezone.IsEvenWeek(now) {
		parity = "_even"
	}
	if value, ok := c.Message.Suffix[key+parity]; ok {
		return value
	}
	return c.Message.Suffix[key]
}

// LoadConfig reads the json5 config (when present) found by walking up
// from the working directory, loads .env and overlays the environment.
// lookup defaults to os.LookupEnv.
func LoadConfig(lookup configutil.LookupFunc) (Config, error) {
	config, err := configutil.ReadRecursively[Config](ConfigFile)
	if err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("read %s: %w", ConfigFile, err)
	}

	if lookup == nil {
		err = configutil.LoadDotenv()
		if err != nil {
			return Config{}, fmt.Errorf("load .env: %w", err)
		}
		lookup = os.LookupEnv
	}

	err = configutil.ApplyEnv(&config, lookup)
	if err != nil {
		return Config{}, err
	}
	config.applySuffixEnv(lookup)
	config.applyDefaults()
	return config, nil
}
