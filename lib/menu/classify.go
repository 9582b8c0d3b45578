package menu

import (
	"errors"
	"regexp"
	"strings"

	"lunchbot/lib/telemetry"
	"lunchbot/lib/textutil"
)

var ErrEmptyName = errors.New("dish has an empty name")

const currency = "€"

var priceToken = regexp.MustCompile(`\d+([.,]\d{1,2})?`)

// ClassifyDiet applies a fixed precedence: vegan beats vegetarian beats meat.
func ClassifyDiet(info string) Diet {
	switch {
	case strings.TrimSpace(info) == "":
		return DietUnknown
	case textutil.ContainsFold(info, "vegan"):
		return DietVegan
	case textutil.ContainsFold(info, "vegetarisch", "vegetarian"):
		return DietVegetarian
	}
	return DietMeat
}

// NormalizePrice formats the price found in text as "<number> €", the text
// after the last currency symbol is preferred. "N/A" is returned when no
// number can be found.
func NormalizePrice(text string) string {
	text = strings.TrimSpace(text)
	if text == "" || strings.EqualFold(text, NoPrice) {
		return NoPrice
	}

	if idx := strings.LastIndex(text, currency); idx >= 0 {
		after := priceToken.FindString(text[idx+len(currency):])
		if after != "" {
			return after + " " + currency
		}
	}

	token := priceToken.FindString(text)
	if token == "" {
		return NoPrice
	}
	return token + " " + currency
}

// Classify turns a raw entry into a dish of the given source.
func Classify(entry RawEntry, source string) (Dish, error) {
	name := textutil.NormalizeName(entry.Name)
	if name == "" {
		return Dish{}, ErrEmptyName
	}

	priceText := entry.Info
	if entry.Price != "" {
		priceText = entry.Price
	}

	return Dish{
		Hash:   Hash(name),
		Name:   name,
		Price:  NormalizePrice(priceText),
		Diet:   ClassifyDiet(entry.Info),
		Source: source,
	}, nil
}

// ClassifyAll classifies every entry, rejected entries are logged and left out.
func ClassifyAll(entries []RawEntry, source string) []Dish {
	dishes := make([]Dish, 0, len(entries))
	for _, entry := range entries {
		dish, err := Classify(entry, source)
		if err != nil {
			telemetry.ReportWarning(report_classify_rejected, "source", source, "info", entry.Info, "err", err)
			continue
		}
		dishes = append(dishes, dish)
	}
	return dishes
}
