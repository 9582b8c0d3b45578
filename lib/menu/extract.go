package menu

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lunchbot/lib/htmlutil"
	"lunchbot/lib/telemetry"
	"lunchbot/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	ErrNoTables      = errors.New("day card has no entry tables")
	ErrUnknownLayout = errors.New("unknown table layout")
)

type Layout int

const (
	LayoutUnknown Layout = iota
	// name and info rows alternate, each row is read as a whole
	LayoutAlternatingRows
	// every row holds a name cell followed by an info cell
	LayoutNestedCells
)

func (l Layout) String() string {
	switch l {
	case LayoutAlternatingRows:
		return "alternating-rows"
	case LayoutNestedCells:
		return "nested-cells"
	default:
		return "unknown"
	}
}

const priceSelector = ".price-text"

// isHeader reports whether every cell of the row is a th.
func isHeader(cells *goquery.Selection) bool {
	return cells.Length() > 0 && cells.Length() == cells.Filter("th").Length()
}

// dataRows returns the rows of table that have at least one td cell.
func dataRows(table *goquery.Selection) []*goquery.Selection {
	var rows []*goquery.Selection
	htmlutil.Rows(table).Each(func(_ int, row *goquery.Selection) {
		cells := htmlutil.Cells(row)
		if cells.Length() == 0 || isHeader(cells) {
			return
		}
		rows = append(rows, row)
	})
	return rows
}

// rowText joins the cleaned text of every cell of row.
func rowText(row *goquery.Selection) string {
	var parts []string
	htmlutil.Cells(row).Each(func(_ int, cell *goquery.Selection) {
		text := htmlutil.SelectionText(cell)
		if text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, " ")
}

// ProbeLayout decides the layout of a table from the majority shape of its
// data rows: mostly single cell rows alternate, mostly multi cell rows are
// nested. Header rows are ignored, a table without data rows is unknown.
func ProbeLayout(table *goquery.Selection) Layout {
	rows := dataRows(table)
	if len(rows) == 0 {
		return LayoutUnknown
	}

	single, multiple := 0, 0
	for _, row := range rows {
		if htmlutil.Cells(row).Length() == 1 {
			single++
		} else {
			multiple++
		}
	}
	if multiple > single {
		return LayoutNestedCells
	}
	return LayoutAlternatingRows
}

// IsSoup reports whether the table mentions soup anywhere in its text.
func IsSoup(table *goquery.Selection) bool {
	return textutil.ContainsFold(htmlutil.SelectionText(table), "soup")
}

// Extract returns the raw entries of every meal table in the card in
// document order. Soup tables and tables with an unknown layout are
// skipped, the only error is a card without any entry tables.
func Extract(ctx context.Context, day DayCard) ([]RawEntry, error) {
	ctx, span := tracer.Start(ctx, "Extract")
	defer span.End()

	if day.Tables == nil || day.Tables.Length() == 0 {
		err := fmt.Errorf("%w: %s", ErrNoTables, day.Title)
		span.RecordError(err)
		span.SetStatus(codes.Error, "no tables")
		return nil, err
	}

	var entries []RawEntry
	day.Tables.Each(func(i int, table *goquery.Selection) {
		if IsSoup(table) {
			telemetry.ReportWarning(report_extract_soup_table, "table", i)
			return
		}
		tableEntries, err := ExtractTable(ctx, table)
		if err != nil {
			telemetry.ReportWarning(report_extract_unknown_layout, "table", i, "err", err)
			return
		}
		entries = append(entries, tableEntries...)
	})

	span.SetAttributes(
		attribute.Int("tables", day.Tables.Length()),
		attribute.Int("entries", len(entries)),
	)
	return entries, nil
}

// ExtractTable reads the entries of a single table. Rows that do not fit
// the probed layout are reported and skipped, ErrUnknownLayout is only
// returned for a table without data rows.
func ExtractTable(ctx context.Context, table *goquery.Selection) ([]RawEntry, error) {
	_, span := tracer.Start(ctx, "ExtractTable")
	defer span.End()

	layout := ProbeLayout(table)
	span.SetAttributes(attribute.String("layout", layout.String()))

	switch layout {
	case LayoutAlternatingRows:
		return extractAlternating(table), nil
	case LayoutNestedCells:
		return extractNested(table), nil
	}

	err := ErrUnknownLayout
	span.RecordError(err)
	span.SetStatus(codes.Error, "unknown layout")
	return nil, err
}

func extractAlternating(table *goquery.Selection) []RawEntry {
	rows := dataRows(table)
	var entries []RawEntry
	for i := 0; i+1 < len(rows); i += 2 {
		entries = append(entries, RawEntry{
			Name: rowText(rows[i]),
			Info: rowText(rows[i+1]),
		})
	}
	if len(rows)%2 == 1 {
		telemetry.ReportWarning(
			report_extract_unpaired_row,
			"row", rowText(rows[len(rows)-1]),
		)
	}
	return entries
}

func extractNested(table *goquery.Selection) []RawEntry {
	var entries []RawEntry
	for _, row := range dataRows(table) {
		cells := htmlutil.Cells(row)
		if cells.Length() < 2 {
			telemetry.ReportWarning(report_extract_skipped_row, "row", rowText(row))
			continue
		}
		info := cells.Eq(1)

		price := NoPrice
		priceText := info.Find(priceSelector).First()
		if priceText.Length() > 0 {
			price = htmlutil.SelectionText(priceText)
		}

		entries = append(entries, RawEntry{
			Name:  htmlutil.SelectionText(cells.Eq(0)),
			Info:  htmlutil.SelectionText(info),
			Price: price,
		})
	}
	return entries
}
