package menu

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/PuerkitoBio/goquery"
)

type Diet string

const (
	DietVegan      Diet = "vegan"
	DietVegetarian Diet = "vegetarian"
	DietMeat       Diet = "meat"
	DietUnknown    Diet = "unknown"
)

// NoPrice is used whenever no price token could be found.
const NoPrice = "N/A"

// Dish is one normalized menu entry. ImageURL, Description and the tags
// stay empty until the dish has been enriched.
type Dish struct {
	Hash           string
	Name           string
	Price          string
	Diet           Diet
	Source         string
	ImageURL       string
	Description    string
	GenerationTag  string
	DescriptionTag string
}

// RawEntry is a name/info pair as it was found in a menu table. Price is
// only set by layouts that carry it in a separate element.
type RawEntry struct {
	Name  string
	Info  string
	Price string
}

// DayCard is the part of a document holding the menu of a single day.
type DayCard struct {
	Date   time.Time
	Title  string
	Tables *goquery.Selection
}

const hashLength = 20

// Hash is the first 20 hex characters of the SHA-256 of name. Every
// artifact of a dish is addressed by it.
func Hash(name string) string {
	sum := sha256.Sum256([]byte(name))
	return hex.EncodeToString(sum[:])[:hashLength]
}
