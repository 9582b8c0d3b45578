package lunchbot

import (
	"context"
	"fmt"
	"strings"

	"lunchbot/lib/menu"
	"lunchbot/lib/telemetry"
	"lunchbot/lib/textutil"
	"lunchbot/lib/webhook"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const DefaultAttempts = 10

// Source is how a canteen is linked in the report.
type Source struct {
	URL   string
	Emoji string
}

type Report struct {
	Prefix string
	Suffix string
	Dishes []menu.Dish
	// keyed by menu.Dish.Source
	Sources map[string]Source
}

func cell(text string) string {
	return textutil.ReplacePipes(textutil.NormalizeName(text))
}

func (r Report) canteen(label string) string {
	source, ok := r.Sources[label]
	if !ok || source.URL == "" {
		return fmt.Sprintf("**%s**", label)
	}
	out := fmt.Sprintf("**[%s](%s)**", label, source.URL)
	if source.Emoji != "" {
		out += " " + source.Emoji
	}
	return out
}

func dietLabel(diet menu.Diet) string {
	if diet == menu.DietUnknown || diet == "" {
		return menu.NoPrice
	}
	return string(diet)
}

// RenderTable renders one column per dish with the rows price, diet,
// canteen and preview image, plus a description row when any dish has one.
func RenderTable(report Report) string {
	t := table.NewWriter()
	// dish names keep their casing
	t.Style().Format.Header = text.FormatDefault

	header := make(table.Row, len(report.Dishes))
	prices := make(table.Row, len(report.Dishes))
	diets := make(table.Row, len(report.Dishes))
	canteens := make(table.Row, len(report.Dishes))
	images := make(table.Row, len(report.Dishes))
	descriptions := make(table.Row, len(report.Dishes))
	hasDescriptions := false

	for i, dish := range report.Dishes {
		header[i] = cell(dish.Name)
		prices[i] = cell(dish.Price)
		diets[i] = dietLabel(dish.Diet)
		canteens[i] = report.canteen(dish.Source)
		images[i] = fmt.Sprintf("![preview %s](%s =200)", dish.GenerationTag, dish.ImageURL)
		descriptions[i] = cell(dish.Description)
		if dish.Description != "" {
			hasDescriptions = true
		}
	}

	t.AppendHeader(header)
	t.AppendRow(prices)
	t.AppendRow(diets)
	t.AppendRow(canteens)
	t.AppendRow(images)
	if hasDescriptions {
		t.AppendRow(descriptions)
	}
	return t.RenderMarkdown()
}

// RenderReport is the full message: prefix, table and suffix.
func RenderReport(report Report) string {
	var sb strings.Builder
	sb.WriteString(report.Prefix)
	sb.WriteString("\n")
	sb.WriteString(RenderTable(report))
	sb.WriteString("\n\n\n")
	sb.WriteString(report.Suffix)
	return sb.String()
}

type Publisher struct {
	Sender   webhook.Sender
	Username string
	// defaults to DefaultAttempts
	Attempts int
}

// Publish renders the report and delivers it.
func (p Publisher) Publish(ctx context.Context, report Report) error {
	return p.PublishText(ctx, RenderReport(report))
}

// PublishText sends text, retrying immediately until a delivery succeeds
// or the attempts are used up.
func (p Publisher) PublishText(ctx context.Context, text string) error {
	ctx, span := tracer.Start(ctx, "Publish")
	defer span.End()

	attempts := p.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}

	var err error
	attempt := 0
	for attempt < attempts {
		attempt++
		metrics.deliveries.Add(ctx, 1)
		err = p.Sender.Send(ctx, text, p.Username)
		if err == nil {
			break
		}
		telemetry.ReportWarning(report_publish_attempt_failed, "attempt", attempt, "err", err)
		if ctx.Err() != nil {
			break
		}
	}
	span.SetAttributes(attribute.Int("attempts", attempt))

	if err != nil {
		err = fmt.Errorf("deliver report after %d attempts: %w", attempt, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}
