package alsterfood

import (
	"context"
	"time"

	"lunchbot/lib/menu"
	"lunchbot/lib/scraper"
	"lunchbot/lib/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("lunchbot.lib.scrapers.alsterfood")

const (
	Label = "DESY Canteen"
	// the page renders its menu with javascript, this element shows up
	// once it has finished
	ReadySelector = "#openings"
)

// Scraper reads the day cards of an alsterfood canteen page.
type Scraper struct {
	fetcher scraper.DocumentFetcher
	url     string
	layout  menu.CardLayout
}

func NewScraper(fetcher scraper.DocumentFetcher, url string) *Scraper {
	return &Scraper{
		fetcher: fetcher,
		url:     url,
		layout:  menu.DefaultCardLayout,
	}
}

func (s *Scraper) Label() string {
	return Label
}

func (s *Scraper) URL() string {
	return s.url
}

func (s *Scraper) Scrape(ctx context.Context, today time.Time) ([]menu.Dish, error) {
	ctx, span := tracer.Start(ctx, "Scrape")
	defer span.End()

	doc, err := s.fetcher.Fetch(ctx, s.url, ReadySelector)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch menu")
		return nil, err
	}

	day, err := menu.Resolve(ctx, doc, today, s.layout)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to resolve day card")
		return nil, err
	}

	entries, err := menu.Extract(ctx, day)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to extract entries")
		return nil, err
	}

	dishes := menu.ClassifyAll(entries, Label)
	span.SetAttributes(
		attribute.String("date", day.Date.Format(time.DateOnly)),
		attribute.Int("dishes", len(dishes)),
	)
	return dishes, nil
}
