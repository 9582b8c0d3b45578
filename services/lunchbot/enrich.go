package lunchbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"lunchbot/lib/artifacts"
	"lunchbot/lib/generate"
	"lunchbot/lib/menu"
	"lunchbot/lib/telemetry"

	"github.com/antzucaro/matchr"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	TagReused    = "reused"
	TagFallback  = "fallback"
	TagGenerated = "generated"

	DefaultPlaceholderURL = "https://syncandshare.desy.de/index.php/s/QRHbNjEPB39FF55/download?path=lunchbot_assets&files=technical_difficulties.JPG"

	similarityThreshold = 0.9
)

// GenerationTag is the tag of a freshly generated image.
func GenerationTag(generator string) string {
	return fmt.Sprintf("Generated with %s", generator)
}

type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

type EnricherOptions struct {
	Images generate.ImageGenerator
	// descriptions are skipped when nil
	Descriptions generate.DescriptionGenerator
	// fetches the bytes of an image the generator only returned a url for
	Downloader Downloader
	// the zero value disables the disk cache
	Store artifacts.DiskStore
	// may be nil in ephemeral mode
	Remote artifacts.Remote
	// defaults to a LocalLocker
	Locker artifacts.Locker
	// ephemeral mode publishes the generator's image url directly and never
	// touches the disk cache or the remote for images.
	Ephemeral      bool
	PlaceholderURL string
}

type imageResult struct {
	url string
	ok  bool
}

type descriptionResult struct {
	text string
	ok   bool
}

// Enricher attaches an image and a description to dishes, every artifact
// is generated at most once per hash. It is safe for concurrent use.
type Enricher struct {
	options EnricherOptions

	mutex           sync.Mutex
	images          map[string]imageResult
	descriptions    map[string]descriptionResult
	lastDescription string
}

func NewEnricher(options EnricherOptions) *Enricher {
	if options.Locker == nil {
		options.Locker = artifacts.NewLocalLocker()
	}
	if options.PlaceholderURL == "" {
		options.PlaceholderURL = DefaultPlaceholderURL
	}
	return &Enricher{
		options:      options,
		images:       map[string]imageResult{},
		descriptions: map[string]descriptionResult{},
	}
}

// Enrich never fails, artifacts that cannot be produced are replaced by
// the placeholder image or an empty description and tagged "fallback".
func (e *Enricher) Enrich(ctx context.Context, dish menu.Dish) menu.Dish {
	ctx, span := tracer.Start(ctx, "Enrich")
	defer span.End()

	if dish.Hash == "" {
		dish.Hash = menu.Hash(dish.Name)
	}
	span.SetAttributes(
		attribute.String("hash", dish.Hash),
		attribute.String("name", dish.Name),
	)

	unlock, err := e.options.Locker.Lock(ctx, dish.Hash)
	if err != nil {
		telemetry.ReportBroken(report_enrich_lock_failed, "hash", dish.Hash, "err", err)
		span.RecordError(err)
	} else {
		defer unlock()
	}

	dish.ImageURL, dish.GenerationTag = e.image(ctx, dish)
	if e.options.Descriptions != nil {
		dish.Description, dish.DescriptionTag = e.description(ctx, dish)
	}

	span.SetAttributes(
		attribute.String("generation_tag", dish.GenerationTag),
		attribute.String("description_tag", dish.DescriptionTag),
	)
	if dish.GenerationTag == TagFallback {
		span.SetStatus(codes.Error, "image fallback")
	}
	return dish
}

func (e *Enricher) cacheEnabled() bool {
	return e.options.Store.Dir() != ""
}

func (e *Enricher) rememberImage(hash, url string, ok bool) {
	e.mutex.Lock()
	e.images[hash] = imageResult{url: url, ok: ok}
	e.mutex.Unlock()
}

func (e *Enricher) reused(kind artifacts.Kind) {
	metrics.cacheHits.Add(context.Background(), 1, attributeKind(kind))
}

func (e *Enricher) fallback(kind artifacts.Kind) {
	metrics.fallbacks.Add(context.Background(), 1, attributeKind(kind))
}

func (e *Enricher) image(ctx context.Context, dish menu.Dish) (string, string) {
	e.mutex.Lock()
	known, seen := e.images[dish.Hash]
	e.mutex.Unlock()
	if seen {
		if !known.ok {
			return e.options.PlaceholderURL, TagFallback
		}
		e.reused(artifacts.KindImage)
		return known.url, TagReused
	}

	if !e.options.Ephemeral {
		url, ok := e.existingImage(ctx, dish.Hash)
		if ok {
			e.rememberImage(dish.Hash, url, true)
			e.reused(artifacts.KindImage)
			return url, TagReused
		}
	}

	metrics.generations.Add(ctx, 1, attributeKind(artifacts.KindImage))
	image, err := e.options.Images.GenerateImage(ctx, dish.Name)
	if err != nil {
		telemetry.ReportWarning(report_enrich_image_failed, "dish", dish.Name, "err", err)
		e.rememberImage(dish.Hash, "", false)
		e.fallback(artifacts.KindImage)
		return e.options.PlaceholderURL, TagFallback
	}

	url, err := e.publishImage(ctx, dish.Hash, image)
	if err != nil {
		telemetry.ReportWarning(report_enrich_remote_failed, "dish", dish.Name, "err", err)
		e.rememberImage(dish.Hash, "", false)
		e.fallback(artifacts.KindImage)
		return e.options.PlaceholderURL, TagFallback
	}
	e.rememberImage(dish.Hash, url, true)
	return url, GenerationTag(image.Generator)
}

// existingImage resolves an image generated by an earlier run, uploading
// local artifacts the remote does not hold yet.
func (e *Enricher) existingImage(ctx context.Context, hash string) (string, bool) {
	remote := e.options.Remote
	entry := artifacts.Entry{Hash: hash}
	if e.cacheEnabled() {
		entry = e.options.Store.Lookup(hash)
	}

	if remote != nil {
		exists, err := remote.Exists(ctx, hash, artifacts.KindImage)
		if err != nil {
			telemetry.ReportWarning(report_enrich_remote_failed, "hash", hash, "err", err)
		}
		if exists {
			return remote.URL(hash, artifacts.KindImage), true
		}
	}
	if !entry.HasImage || remote == nil {
		return "", false
	}

	data, err := e.options.Store.Read(hash, artifacts.KindImage)
	if err != nil {
		telemetry.ReportWarning(report_enrich_store_failed, "hash", hash, "err", err)
		return "", false
	}
	url, err := remote.Upload(ctx, hash, artifacts.KindImage, data)
	if err != nil {
		telemetry.ReportWarning(report_enrich_remote_failed, "hash", hash, "err", err)
		return "", false
	}
	slog.InfoContext(ctx, "uploaded cached image", "hash", hash, "url", url)
	return url, true
}

var errNoImageURL = errors.New("generator returned no image url")

func (e *Enricher) publishImage(ctx context.Context, hash string, image generate.Image) (string, error) {
	if e.options.Ephemeral {
		if image.URL != "" {
			return image.URL, nil
		}
		if e.options.Remote == nil {
			return "", errNoImageURL
		}
		return e.options.Remote.Upload(ctx, hash, artifacts.KindImage, image.Data)
	}

	data := image.Data
	if len(data) == 0 {
		if e.options.Downloader == nil || image.URL == "" {
			return "", errNoImageURL
		}
		var err error
		data, err = e.options.Downloader.Download(ctx, image.URL)
		if err != nil {
			return "", err
		}
	}

	if e.cacheEnabled() {
		_, err := e.options.Store.Store(hash, artifacts.KindImage, data)
		if err != nil && !errors.Is(err, artifacts.ErrArtifactExists) {
			telemetry.ReportWarning(report_enrich_store_failed, "hash", hash, "err", err)
		}
	}

	if e.options.Remote == nil {
		if image.URL == "" {
			return "", errNoImageURL
		}
		return image.URL, nil
	}
	return e.options.Remote.Upload(ctx, hash, artifacts.KindImage, data)
}

func (e *Enricher) description(ctx context.Context, dish menu.Dish) (string, string) {
	e.mutex.Lock()
	known, seen := e.descriptions[dish.Hash]
	avoid := e.lastDescription
	e.mutex.Unlock()
	if seen {
		if !known.ok {
			return "", TagFallback
		}
		e.reused(artifacts.KindDescription)
		return known.text, TagReused
	}

	if e.cacheEnabled() && e.options.Store.Lookup(dish.Hash).HasDescription {
		data, err := e.options.Store.Read(dish.Hash, artifacts.KindDescription)
		if err == nil {
			text := string(data)
			e.rememberDescription(dish.Hash, text, true, false)
			e.reused(artifacts.KindDescription)
			return text, TagReused
		}
		telemetry.ReportWarning(report_enrich_store_failed, "hash", dish.Hash, "err", err)
	}

	metrics.generations.Add(ctx, 1, attributeKind(artifacts.KindDescription))
	text, err := e.options.Descriptions.Describe(ctx, dish.Name, avoid)
	if err != nil {
		telemetry.ReportWarning(report_enrich_describe_failed, "dish", dish.Name, "err", err)
		e.rememberDescription(dish.Hash, "", false, false)
		e.fallback(artifacts.KindDescription)
		return "", TagFallback
	}

	if avoid != "" {
		similarity := matchr.JaroWinkler(text, avoid, false)
		if similarity > similarityThreshold {
			telemetry.ReportWarning(
				report_enrich_similar_describe,
				"dish", dish.Name,
				"similarity", similarity,
			)
		}
	}

	if e.cacheEnabled() {
		_, err = e.options.Store.Store(dish.Hash, artifacts.KindDescription, []byte(text))
		if err != nil && !errors.Is(err, artifacts.ErrArtifactExists) {
			telemetry.ReportWarning(report_enrich_store_failed, "hash", dish.Hash, "err", err)
		}
	}
	e.rememberDescription(dish.Hash, text, true, true)
	return text, TagGenerated
}

func (e *Enricher) rememberDescription(hash, text string, ok, latest bool) {
	e.mutex.Lock()
	e.descriptions[hash] = descriptionResult{text: text, ok: ok}
	if latest {
		e.lastDescription = text
	}
	e.mutex.Unlock()
}

// EnrichAll enriches dishes in place order, with up to workers dishes in
// flight at once.
func (e *Enricher) EnrichAll(ctx context.Context, dishes []menu.Dish, workers int) []menu.Dish {
	ctx, span := tracer.Start(ctx, "EnrichAll")
	defer span.End()

	span.SetAttributes(
		attribute.Int("dishes", len(dishes)),
		attribute.Int("workers", workers),
	)

	out := make([]menu.Dish, len(dishes))
	if workers <= 1 {
		for i, dish := range dishes {
			out[i] = e.Enrich(ctx, dish)
		}
		return out
	}

	jobs := make(chan int)
	wg := sync.WaitGroup{}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out[i] = e.Enrich(ctx, dishes[i])
			}
		}()
	}
	for i := range dishes {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return out
}
