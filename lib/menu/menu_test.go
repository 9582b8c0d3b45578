package menu

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"lunchbot/lib/timezone"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/mazen160/go-random"
	"github.com/stretchr/testify/require"
)

func dayCard(title string, tables ...string) string {
	return fmt.Sprintf(
		`<div class="card-content black-text"><div class="card-title primary-text">%s</div>%s</div>`,
		title, strings.Join(tables, ""),
	)
}

func alternatingTable(rows ...string) string {
	var body strings.Builder
	for _, r := range rows {
		body.WriteString("<tr><td>" + r + "</td></tr>")
	}
	return `<table class="entry entry-item"><tbody>` + body.String() + `</tbody></table>`
}

func parse(t *testing.T, cards ...string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		"<html><body><div id=\"openings\"></div>" + strings.Join(cards, "") + "</body></html>",
	))
	require.NoError(t, err)
	return doc
}

func date(day int) time.Time {
	return time.Date(2023, time.December, day, 0, 0, 0, 0, timezone.Location)
}

func TestScenarioAlternatingRows(t *testing.T) {
	ctx := context.Background()
	doc := parse(t, dayCard(
		"Dienstag, 12.12.2023",
		alternatingTable("Spaghetti Bolognese", "vegan, € 4.50"),
	))

	day, err := Resolve(ctx, doc, date(12), DefaultCardLayout)
	require.NoError(t, err)
	require.Equal(t, date(12), day.Date)

	entries, err := Extract(ctx, day)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	dishes := ClassifyAll(entries, "DESY Canteen")
	expected := []Dish{{
		Hash:   Hash("Spaghetti Bolognese"),
		Name:   "Spaghetti Bolognese",
		Price:  "4.50 €",
		Diet:   DietVegan,
		Source: "DESY Canteen",
	}}
	if diff := cmp.Diff(expected, dishes); diff != "" {
		t.Fatalf("unexpected dishes (-want +got):\n%s", diff)
	}
}

func TestResolveForwardProbe(t *testing.T) {
	ctx := context.Background()
	doc := parse(t,
		dayCard("Freitag, 15.12.2023", alternatingTable("Curry", "vegetarisch 5,20 €")),
		dayCard("Montag, 18.12.2023", alternatingTable("Pasta", "€ 3.90")),
	)

	day, err := Resolve(ctx, doc, date(12), DefaultCardLayout)
	require.NoError(t, err)
	require.Equal(t, date(15), day.Date)

	entries, err := Extract(ctx, day)
	require.NoError(t, err)
	require.Equal(t, []RawEntry{{Name: "Curry", Info: "vegetarisch 5,20 €"}}, entries)
}

func TestResolveNotFound(t *testing.T) {
	doc := parse(t,
		dayCard("Mittwoch, 20.12.2023", alternatingTable("Pasta", "€ 3.90")),
		dayCard("Montag, 11.12.2023", alternatingTable("Pasta", "€ 3.90")),
	)

	// 20.12 is today+8, one day past the probe window
	_, err := Resolve(context.Background(), doc, date(12), DefaultCardLayout)
	require.ErrorIs(t, err, ErrDayNotFound)

	day, err := Resolve(context.Background(), doc, date(13), DefaultCardLayout)
	require.NoError(t, err)
	require.Equal(t, date(20), day.Date)
}

func TestResolveLastMatchWins(t *testing.T) {
	ctx := context.Background()
	doc := parse(t,
		dayCard("12.12.2023", alternatingTable("Old Dish", "€ 1.00")),
		dayCard("13.12.2023", alternatingTable("Tomorrow", "€ 2.00")),
		dayCard("12.12.2023 (updated)", alternatingTable("New Dish", "€ 3.00")),
	)

	day, err := Resolve(ctx, doc, date(12), DefaultCardLayout)
	require.NoError(t, err)
	require.Equal(t, "12.12.2023 (updated)", day.Title)

	entries, err := Extract(ctx, day)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "New Dish", entries[0].Name)
}

func TestResolveForwardProbeFirstMatchWins(t *testing.T) {
	ctx := context.Background()
	doc := parse(t,
		dayCard("11.12.2023", alternatingTable("Yesterday", "€ 1.00")),
		dayCard("13.12.2023", alternatingTable("First", "€ 2.00")),
		dayCard("13.12.2023", alternatingTable("Second", "€ 3.00")),
	)

	day, err := Resolve(ctx, doc, date(12), DefaultCardLayout)
	require.NoError(t, err)
	require.Equal(t, date(13), day.Date)

	entries, err := Extract(ctx, day)
	require.NoError(t, err)
	require.Equal(t, []RawEntry{{Name: "First", Info: "€ 2.00"}}, entries)
}

func TestSoupTablesAreSkipped(t *testing.T) {
	ctx := context.Background()
	nestedSoup := `<table class="entry entry-item">
		<tr><td>Tomato SOUP</td><td>vegan <span class="price-text">€ 2.00</span></td></tr>
	</table>`
	nestedMeal := `<table class="entry entry-item">
		<tr><td>Schnitzel</td><td>Schwein <span class="price-text">€ 6.10</span></td></tr>
	</table>`

	cases := []struct {
		name   string
		tables []string
		expect []string
	}{
		{
			name:   "alternating soup",
			tables: []string{alternatingTable("Tomato Soup", "vegan, € 2.00")},
		},
		{
			name:   "nested soup",
			tables: []string{nestedSoup},
		},
		{
			name:   "mixed",
			tables: []string{alternatingTable("Tomato Soup", "vegan, € 2.00"), nestedMeal, nestedSoup},
			expect: []string{"Schnitzel"},
		},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			doc := parse(t, dayCard("12.12.2023", test.tables...))
			day, err := Resolve(ctx, doc, date(12), DefaultCardLayout)
			require.NoError(t, err)

			entries, err := Extract(ctx, day)
			require.NoError(t, err)

			var names []string
			for _, e := range entries {
				names = append(names, e.Name)
			}
			require.Equal(t, test.expect, names)
		})
	}
}

func TestExtractNoTables(t *testing.T) {
	ctx := context.Background()
	doc := parse(t, dayCard("12.12.2023", `<table class="other"><tr><td>x</td></tr></table>`))
	day, err := Resolve(ctx, doc, date(12), DefaultCardLayout)
	require.NoError(t, err)

	_, err = Extract(ctx, day)
	require.ErrorIs(t, err, ErrNoTables)
}

func TestExtractTableLayouts(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name    string
		table   string
		layout  Layout
		entries []RawEntry
		err     error
	}{
		{
			name:   "unpaired trailing row",
			table:  alternatingTable("Pasta", "vegan € 3.00", "Leftover"),
			layout: LayoutAlternatingRows,
			entries: []RawEntry{
				{Name: "Pasta", Info: "vegan € 3.00"},
			},
		},
		{
			name: "nested with and without price",
			table: `<table class="entry entry-item">
				<tr><td>Chili sin Carne</td><td>vegan <span class="price-text">€ 4.20</span></td></tr>
				<tr><td>Bratwurst</td><td>Schwein</td></tr>
			</table>`,
			layout: LayoutNestedCells,
			entries: []RawEntry{
				{Name: "Chili sin Carne", Info: "vegan € 4.20", Price: "€ 4.20"},
				{Name: "Bratwurst", Info: "Schwein", Price: NoPrice},
			},
		},
		{
			name: "alternating with a multi cell info row",
			table: `<table class="entry entry-item"><tbody>
				<tr><td>Spaghetti Bolognese</td></tr>
				<tr><td>vegan</td><td>€ 4.50</td></tr>
			</tbody></table>`,
			layout: LayoutAlternatingRows,
			entries: []RawEntry{
				{Name: "Spaghetti Bolognese", Info: "vegan € 4.50"},
			},
		},
		{
			name: "nested with a header row",
			table: `<table class="entry entry-item">
				<tr><th colspan="2">Hauptgerichte</th></tr>
				<tr><td>Chili sin Carne</td><td>vegan <span class="price-text">€ 4.20</span></td></tr>
				<tr><td>Currywurst</td><td>Schwein <span class="price-text">€ 3.80</span></td></tr>
			</table>`,
			layout: LayoutNestedCells,
			entries: []RawEntry{
				{Name: "Chili sin Carne", Info: "vegan € 4.20", Price: "€ 4.20"},
				{Name: "Currywurst", Info: "Schwein € 3.80", Price: "€ 3.80"},
			},
		},
		{
			name: "nested with a stray single cell row",
			table: `<table class="entry entry-item">
				<tr><td>Chili sin Carne</td><td>vegan</td></tr>
				<tr><td>heute nur bis 13 Uhr</td></tr>
				<tr><td>Bratwurst</td><td>Schwein</td></tr>
			</table>`,
			layout: LayoutNestedCells,
			entries: []RawEntry{
				{Name: "Chili sin Carne", Info: "vegan", Price: NoPrice},
				{Name: "Bratwurst", Info: "Schwein", Price: NoPrice},
			},
		},
		{
			name: "only header rows",
			table: `<table class="entry entry-item">
				<tr><th>Hauptgerichte</th></tr>
			</table>`,
			layout: LayoutUnknown,
			err:    ErrUnknownLayout,
		},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			doc, err := goquery.NewDocumentFromReader(strings.NewReader(test.table))
			require.NoError(t, err)
			table := doc.Find("table")

			require.Equal(t, test.layout, ProbeLayout(table))

			entries, err := ExtractTable(ctx, table)
			if test.err != nil {
				require.True(t, errors.Is(err, test.err))
				return
			}
			require.NoError(t, err)
			require.Equal(t, test.entries, entries)
		})
	}
}

func TestClassifyDiet(t *testing.T) {
	cases := []struct {
		info   string
		expect Diet
	}{
		{info: "vegan", expect: DietVegan},
		{info: "VEGAN und vegetarisch", expect: DietVegan},
		{info: "vegetarian, vegan", expect: DietVegan},
		{info: "Vegetarisch", expect: DietVegetarian},
		{info: "vegetarian", expect: DietVegetarian},
		{info: "Rind, € 5.00", expect: DietMeat},
		{info: "  ", expect: DietUnknown},
	}

	for _, test := range cases {
		require.Equal(t, test.expect, ClassifyDiet(test.info), test.info)
	}
}

func TestNormalizePrice(t *testing.T) {
	cases := []struct {
		text   string
		expect string
	}{
		{text: "vegan, € 4.50", expect: "4.50 €"},
		{text: "€ 2.00 € 3.50", expect: "3.50 €"},
		{text: "vegan € 4.50 (Gäste € 6.00)", expect: "6.00 €"},
		{text: "€ 3,80 inkl. MwSt.", expect: "3,80 €"},
		{text: "Studierende 3,90 €", expect: "3,90 €"},
		{text: "  4.5  ", expect: "4.5 €"},
		{text: "vegan", expect: NoPrice},
		{text: "N/A", expect: NoPrice},
		{text: "", expect: NoPrice},
	}

	for _, test := range cases {
		require.Equal(t, test.expect, NormalizePrice(test.text), test.text)
	}
}

func TestClassify(t *testing.T) {
	dish, err := Classify(RawEntry{
		Name:  "  Chili   sin Carne \n",
		Info:  "vegan € 4.20",
		Price: "€ 4.20",
	}, "Cafe CFEL")
	require.NoError(t, err)
	require.Equal(t, "Chili sin Carne", dish.Name)
	require.Equal(t, Hash("Chili sin Carne"), dish.Hash)
	require.Equal(t, "4.20 €", dish.Price)
	require.Equal(t, DietVegan, dish.Diet)

	_, err = Classify(RawEntry{Name: " \t", Info: "vegan"}, "Cafe CFEL")
	require.ErrorIs(t, err, ErrEmptyName)

	dishes := ClassifyAll([]RawEntry{{Name: ""}, {Name: "Soljanka", Info: "€ 3.00"}}, "DESY Canteen")
	require.Len(t, dishes, 1)
	require.Equal(t, "Soljanka", dishes[0].Name)
}

func TestHash(t *testing.T) {
	require.Equal(t, Hash("Spaghetti Bolognese"), Hash("Spaghetti Bolognese"))
	require.Len(t, Hash("Spaghetti Bolognese"), 20)
	// sha256("abc") = ba7816bf8f01cfea414140de5dae2223...
	require.Equal(t, "ba7816bf8f01cfea4141", Hash("abc"))

	seen := map[string]string{}
	for i := 0; i < 1000; i++ {
		name, err := random.String(16)
		require.NoError(t, err)
		hash := Hash(name)
		if other, ok := seen[hash]; ok && other != name {
			t.Fatalf("hash collision between %q and %q", name, other)
		}
		seen[hash] = name
	}
}
