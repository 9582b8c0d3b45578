package alsterfood

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"lunchbot/lib/menu"
	"lunchbot/lib/timezone"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	html  string
	err   error
	ready string
}

func (f *stubFetcher) Fetch(ctx context.Context, url, ready string) (*goquery.Document, error) {
	f.ready = ready
	if f.err != nil {
		return nil, f.err
	}
	return goquery.NewDocumentFromReader(strings.NewReader(f.html))
}

const page = `<html><body>
<div id="openings"></div>
<div class="card-content black-text">
	<div class="card-title primary-text">Dienstag, 12.12.2023</div>
	<table class="entry entry-item"><tbody>
		<tr><td>Tomato Soup</td></tr>
		<tr><td>vegan € 2.10</td></tr>
	</tbody></table>
	<table class="entry entry-item"><tbody>
		<tr><td>Spaghetti Bolognese</td></tr>
		<tr><td>Rind, € 4.50</td></tr>
		<tr><td>Gemüsecurry</td></tr>
		<tr><td>vegetarisch € 3.90</td></tr>
	</tbody></table>
</div>
</body></html>`

func TestScrape(t *testing.T) {
	fetcher := &stubFetcher{html: page}
	scraper := NewScraper(fetcher, "https://desy.myalsterfood.de/")
	require.Equal(t, "DESY Canteen", scraper.Label())
	require.Equal(t, "https://desy.myalsterfood.de/", scraper.URL())

	today := time.Date(2023, time.December, 12, 0, 0, 0, 0, timezone.Location)
	dishes, err := scraper.Scrape(context.Background(), today)
	require.NoError(t, err)
	require.Equal(t, ReadySelector, fetcher.ready)

	require.Len(t, dishes, 2)
	require.Equal(t, "Spaghetti Bolognese", dishes[0].Name)
	require.Equal(t, menu.DietMeat, dishes[0].Diet)
	require.Equal(t, "4.50 €", dishes[0].Price)
	require.Equal(t, Label, dishes[0].Source)
	require.Equal(t, "Gemüsecurry", dishes[1].Name)
	require.Equal(t, menu.DietVegetarian, dishes[1].Diet)
}

func TestScrapeErrors(t *testing.T) {
	today := time.Date(2024, time.January, 30, 0, 0, 0, 0, timezone.Location)

	_, err := NewScraper(&stubFetcher{html: page}, "").Scrape(context.Background(), today)
	require.ErrorIs(t, err, menu.ErrDayNotFound)

	unavailable := errors.New("unavailable")
	_, err = NewScraper(&stubFetcher{err: unavailable}, "").Scrape(context.Background(), today)
	require.ErrorIs(t, err, unavailable)
}
