package lunchbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"lunchbot/lib/menu"
	"lunchbot/lib/scraper"
	"lunchbot/lib/telemetry"
	"lunchbot/lib/timezone"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var ErrNoDishes = errors.New("no dishes found for today")

type Pipeline struct {
	Sources   []scraper.Scraper
	Enricher  *Enricher
	Publisher Publisher
	// optional
	History *History
	Workers int

	Prefix string
	// picks the message suffix for a day, may be nil
	Suffix func(now time.Time) string
	// keyed by scraper label
	Emoji map[string]string
}

type RunResult struct {
	Day    time.Time
	Dishes []menu.Dish
	// failures of single sources, they do not fail the run
	SourceErrors error
}

// Scrape collects the dishes of day from every source. A failing source is
// skipped, its error is part of the returned joined error.
func (p *Pipeline) Scrape(ctx context.Context, day time.Time) ([]menu.Dish, error) {
	ctx, span := tracer.Start(ctx, "Scrape")
	defer span.End()

	var dishes []menu.Dish
	var errs []error
	for _, source := range p.Sources {
		found, err := source.Scrape(ctx, day)
		if err != nil {
			telemetry.ReportWarning(report_pipeline_source_failed, "source", source.Label(), "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", source.Label(), err))
			continue
		}
		metrics.dishes.Add(ctx, int64(len(found)), metricSource(source.Label()))
		slog.InfoContext(ctx, "scraped source", "source", source.Label(), "dishes", len(found))
		dishes = append(dishes, found...)
	}
	span.SetAttributes(attribute.Int("dishes", len(dishes)))
	return dishes, errors.Join(errs...)
}

func (p *Pipeline) report(now time.Time, dishes []menu.Dish) Report {
	sources := make(map[string]Source, len(p.Sources))
	for _, source := range p.Sources {
		sources[source.Label()] = Source{
			URL:   source.URL(),
			Emoji: p.Emoji[source.Label()],
		}
	}
	suffix := ""
	if p.Suffix != nil {
		suffix = p.Suffix(now)
	}
	return Report{
		Prefix:  p.Prefix,
		Suffix:  suffix,
		Dishes:  dishes,
		Sources: sources,
	}
}

// Run scrapes, enriches and publishes today's menu. Only a failed delivery
// (or a day without any dish) fails the run.
func (p *Pipeline) Run(ctx context.Context, now time.Time) (RunResult, error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	day := timezone.Date(now)
	result := RunResult{Day: day}

	dishes, sourceErrs := p.Scrape(ctx, day)
	result.SourceErrors = sourceErrs
	if len(dishes) == 0 {
		err := ErrNoDishes
		if sourceErrs != nil {
			err = fmt.Errorf("%w: %w", ErrNoDishes, sourceErrs)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return result, err
	}

	result.Dishes = p.Enricher.EnrichAll(ctx, dishes, p.Workers)

	err := p.Publisher.Publish(ctx, p.report(now, result.Dishes))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return result, err
	}
	slog.InfoContext(ctx, "published menu", "day", day.Format(dayLayout), "dishes", len(result.Dishes))

	if p.History != nil {
		err = p.History.Record(ctx, day, result.Dishes)
		if err != nil {
			telemetry.ReportBroken(report_pipeline_history_failed, "err", err)
		}
	}
	return result, nil
}
