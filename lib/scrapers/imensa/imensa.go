package imensa

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lunchbot/lib/generate"
	"lunchbot/lib/htmlutil"
	"lunchbot/lib/menu"
	"lunchbot/lib/scraper"
	"lunchbot/lib/telemetry"
	"lunchbot/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("lunchbot.lib.scrapers.imensa")

const Label = "Cafe CFEL"

const (
	mealSelector        = "div.aw-meal.row.no-margin-xs"
	descriptionSelector = "p.aw-meal-description"
	attributesSelector  = "p.aw-meal-attributes"
	priceSelector       = "div.aw-meal-price"
)

const (
	report_meal_rejected     = "imensa.meal-rejected"
	report_translate_failure = "imensa.translate-failure"
)

var (
	ErrMultipleDescriptions = errors.New("multiple meal descriptions found")
	ErrMultiplePrices       = errors.New("multiple meal prices found")
	ErrNoDescription        = errors.New("meal has no description")
)

// Scraper reads the meals of an imensa.de canteen page, it only lists the
// menu of the current day.
type Scraper struct {
	fetcher    scraper.DocumentFetcher
	url        string
	translator generate.Translator
}

// NewScraper creates a scraper, translator may be nil to keep the german
// meal names. Translation only changes Dish.Name, the hash stays the one of
// the german name.
func NewScraper(fetcher scraper.DocumentFetcher, url string, translator generate.Translator) *Scraper {
	return &Scraper{fetcher: fetcher, url: url, translator: translator}
}

func (s *Scraper) Label() string {
	return Label
}

func (s *Scraper) URL() string {
	return s.url
}

// ParseMeal reads the raw entry of a single meal row.
func ParseMeal(row *goquery.Selection) (menu.RawEntry, error) {
	descriptions := row.Find(descriptionSelector)
	switch descriptions.Length() {
	case 0:
		return menu.RawEntry{}, ErrNoDescription
	case 1:
	default:
		return menu.RawEntry{}, ErrMultipleDescriptions
	}

	prices := row.Find(priceSelector)
	if prices.Length() > 1 {
		return menu.RawEntry{}, ErrMultiplePrices
	}
	price := menu.NoPrice
	if prices.Length() == 1 {
		price = htmlutil.SelectionText(prices)
	}

	return menu.RawEntry{
		Name:  htmlutil.SelectionText(descriptions),
		Info:  htmlutil.SelectionText(row.Find(attributesSelector).First()),
		Price: price,
	}, nil
}

func (s *Scraper) Scrape(ctx context.Context, today time.Time) ([]menu.Dish, error) {
	ctx, span := tracer.Start(ctx, "Scrape")
	defer span.End()

	doc, err := s.fetcher.Fetch(ctx, s.url, "")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch menu")
		return nil, err
	}

	var entries []menu.RawEntry
	doc.Find(mealSelector).Each(func(i int, row *goquery.Selection) {
		entry, err := ParseMeal(row)
		if err != nil {
			telemetry.ReportWarning(report_meal_rejected, "row", i, "err", err)
			return
		}
		entries = append(entries, entry)
	})

	// hashes come from the german names, translations differ between runs
	dishes := menu.ClassifyAll(entries, Label)
	if s.translator != nil {
		for i := range dishes {
			dishes[i].Name = textutil.NormalizeName(s.translate(ctx, dishes[i].Name))
		}
	}
	span.SetAttributes(attribute.Int("dishes", len(dishes)))
	if len(dishes) == 0 {
		err := fmt.Errorf("no meals found on %s", s.url)
		span.RecordError(err)
		span.SetStatus(codes.Error, "no meals")
		return nil, err
	}
	return dishes, nil
}

func (s *Scraper) translate(ctx context.Context, name string) string {
	translated, err := s.translator.Translate(ctx, name)
	if err != nil || translated == "" {
		telemetry.ReportWarning(report_translate_failure, "name", name, "err", err)
		return name
	}
	return translated
}
