package menu

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"lunchbot/lib/htmlutil"
	"lunchbot/lib/telemetry"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var ErrDayNotFound = errors.New("no day card found")

const cardDateFormat = "02.01.2006"

// the number of days after today that are searched when today has no card
const lookahead = 7

var entryTableClass = regexp.MustCompile("entry entry-item *")

type CardLayout struct {
	CardSelector  string
	TitleSelector string
}

var DefaultCardLayout = CardLayout{
	CardSelector:  "div.card-content.black-text",
	TitleSelector: "div.card-title.primary-text",
}

type card struct {
	selection *goquery.Selection
	title     string
}

// Resolve finds the card of today in doc. When several cards carry
// today's date the last one wins. Without a card for today the following
// seven days are probed in ascending order and the first card carrying
// the probed date is taken.
func Resolve(ctx context.Context, doc *goquery.Document, today time.Time, layout CardLayout) (DayCard, error) {
	ctx, span := tracer.Start(ctx, "Resolve")
	defer span.End()

	if layout.CardSelector == "" {
		layout = DefaultCardLayout
	}

	var cards []card
	doc.Find(layout.CardSelector).Each(func(_ int, s *goquery.Selection) {
		title := s.Find(layout.TitleSelector).First()
		if title.Length() == 0 {
			return
		}
		cards = append(cards, card{
			selection: s,
			title:     htmlutil.SelectionText(title),
		})
	})
	span.SetAttributes(attribute.Int("cards", len(cards)))

	for offset := 0; offset <= lookahead; offset++ {
		date := today.AddDate(0, 0, offset)
		match, ok := findMatch(cards, date.Format(cardDateFormat), offset == 0)
		if !ok {
			continue
		}
		if offset > 0 {
			telemetry.ReportWarning(
				report_resolve_forward_probe,
				"today", today.Format(cardDateFormat),
				"found", date.Format(cardDateFormat),
			)
		}
		span.SetAttributes(attribute.String("date", date.Format(cardDateFormat)))

		return DayCard{
			Date:   time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location()),
			Title:  match.title,
			Tables: htmlutil.FindByClass(ctx, match.selection, "table", entryTableClass),
		}, nil
	}

	err := fmt.Errorf(
		"%w: searched %s to %s",
		ErrDayNotFound,
		today.Format(cardDateFormat),
		today.AddDate(0, 0, lookahead).Format(cardDateFormat),
	)
	span.RecordError(err)
	span.SetStatus(codes.Error, "day card not found")
	return DayCard{}, err
}

// findMatch returns the first card whose title contains date, or the last
// one when last is set.
func findMatch(cards []card, date string, last bool) (card, bool) {
	found, ok := card{}, false
	for _, c := range cards {
		if !strings.Contains(c.title, date) {
			continue
		}
		found, ok = c, true
		if !last {
			break
		}
	}
	return found, ok
}
