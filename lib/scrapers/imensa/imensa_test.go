package imensa

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"lunchbot/lib/menu"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	html string
}

func (f stubFetcher) Fetch(ctx context.Context, url, ready string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(f.html))
}

type stubTranslator struct {
	translations map[string]string
}

func (s stubTranslator) Translate(ctx context.Context, text string) (string, error) {
	translated, ok := s.translations[text]
	if !ok {
		return "", errors.New("no translation")
	}
	return translated, nil
}

const page = `<html><body>
<div class="aw-meal row no-margin-xs">
	<p class="aw-meal-description">Linsen-Dal mit Reis</p>
	<p class="small aw-meal-attributes">VEGAN</p>
	<div class="col-sm-2 no-padding-xs aw-meal-price">4,20 €</div>
</div>
<div class="aw-meal row no-margin-xs">
	<p class="aw-meal-description">Käsespätzle</p>
	<p class="small aw-meal-attributes">vegetarisch</p>
	<div class="col-sm-2 no-padding-xs aw-meal-price">5,10 €</div>
</div>
<div class="aw-meal row no-margin-xs">
	<p class="aw-meal-description">one</p>
	<p class="aw-meal-description">two</p>
</div>
<div class="aw-meal row no-margin-xs">
	<p class="aw-meal-description">Tagessuppe</p>
</div>
</body></html>`

// varyingTranslator returns a different translation on every call.
type varyingTranslator struct {
	calls *int
}

func (s varyingTranslator) Translate(ctx context.Context, text string) (string, error) {
	*s.calls++
	return fmt.Sprintf("%s (take %d)", text, *s.calls), nil
}

func TestScrapeHashIgnoresTranslation(t *testing.T) {
	calls := 0
	scraper := NewScraper(stubFetcher{html: page}, "https://www.imensa.de/hamburg/cafe-cfel/index.html", varyingTranslator{calls: &calls})

	first, err := scraper.Scrape(context.Background(), time.Now())
	require.NoError(t, err)
	second, err := scraper.Scrape(context.Background(), time.Now())
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		require.NotEqual(t, first[i].Name, second[i].Name)
		require.Equal(t, first[i].Hash, second[i].Hash)
	}
	require.Equal(t, menu.Hash("Linsen-Dal mit Reis"), first[0].Hash)
	require.Equal(t, "Linsen-Dal mit Reis (take 1)", first[0].Name)
}

func TestScrape(t *testing.T) {
	scraper := NewScraper(stubFetcher{html: page}, "https://www.imensa.de/hamburg/cafe-cfel/index.html", stubTranslator{
		translations: map[string]string{"Linsen-Dal mit Reis": "Lentil dal with rice"},
	})
	require.Equal(t, Label, scraper.Label())

	dishes, err := scraper.Scrape(context.Background(), time.Now())
	require.NoError(t, err)
	require.Len(t, dishes, 3)

	require.Equal(t, "Lentil dal with rice", dishes[0].Name)
	require.Equal(t, menu.Hash("Linsen-Dal mit Reis"), dishes[0].Hash)
	require.Equal(t, menu.DietVegan, dishes[0].Diet)
	require.Equal(t, "4,20 €", dishes[0].Price)
	require.Equal(t, Label, dishes[0].Source)

	// failed translations keep the original name
	require.Equal(t, "Käsespätzle", dishes[1].Name)
	require.Equal(t, menu.DietVegetarian, dishes[1].Diet)

	require.Equal(t, "Tagessuppe", dishes[2].Name)
	require.Equal(t, menu.DietUnknown, dishes[2].Diet)
	require.Equal(t, menu.NoPrice, dishes[2].Price)
}

func TestParseMeal(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	require.NoError(t, err)
	rows := doc.Find(mealSelector)

	_, err = ParseMeal(rows.Eq(2))
	require.ErrorIs(t, err, ErrMultipleDescriptions)

	entry, err := ParseMeal(rows.Eq(3))
	require.NoError(t, err)
	require.Equal(t, menu.RawEntry{Name: "Tagessuppe", Price: menu.NoPrice}, entry)

	empty, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<div class="aw-meal row no-margin-xs"><p class="small aw-meal-attributes">vegan</p></div>`,
	))
	require.NoError(t, err)
	_, err = ParseMeal(empty.Find(mealSelector))
	require.ErrorIs(t, err, ErrNoDescription)
}

func TestScrapeWithoutMeals(t *testing.T) {
	_, err := NewScraper(stubFetcher{html: "<html></html>"}, "", nil).Scrape(context.Background(), time.Now())
	require.Error(t, err)
}
