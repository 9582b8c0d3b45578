package scraper

import (
	"context"
	"time"

	"lunchbot/lib/menu"

	"github.com/PuerkitoBio/goquery"
)

// canteen scrapers are read-only and stateless, every call is independent
// and the output depends solely on the fetched document and the date.

// each scraper generally has this structure:
// 1. fetch the document, waiting for the page to be ready if the site needs it.
// 2. find the part of the document that holds the menu of the day.
// 3. transform the menu entries (various goquery selectors) into raw entries.
// 4. classify the raw entries into dishes labeled with the canteen's name.

// DocumentFetcher is implemented by fetch.Fetcher.
type DocumentFetcher interface {
	Fetch(ctx context.Context, url, ready string) (*goquery.Document, error)
}

type Scraper interface {
	// Label is the canteen name shown in the report.
	Label() string
	// URL is the page the menu is scraped from, the report links to it.
	URL() string
	Scrape(ctx context.Context, today time.Time) ([]menu.Dish, error)
}
