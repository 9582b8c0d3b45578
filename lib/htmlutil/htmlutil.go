package htmlutil

import (
	"bytes"
	"context"
	"regexp"
	"strings"
	"unicode"

	"lunchbot/lib/telemetry"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/net/html"
)

var tracer = telemetry.Tracer("lunchbot.lib.htmlutil")

// GetText concatenates every text node below node in document order.
func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) || unicode.IsSpace(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// CleanText strips non-printable runes, trims the ends and collapses runs
// of whitespace into a single space.
func CleanText(s string) string {
	s = removeNonPrintable(s)
	s = strings.TrimSpace(s)
	return innerWhitespace.ReplaceAllString(s, " ")
}

// SelectionText returns the cleaned text of every node in the selection.
func SelectionText(sel *goquery.Selection) string {
	var buffer bytes.Buffer
	for _, n := range sel.Nodes {
		getTextRecursive(n, &buffer)
		buffer.WriteByte(' ')
	}
	return CleanText(buffer.String())
}

// FindByClass returns every descendant of sel with the given tag whose class
// attribute matches pattern, in document order.
func FindByClass(ctx context.Context, sel *goquery.Selection, tag string, pattern *regexp.Regexp) *goquery.Selection {
	_, span := tracer.Start(ctx, "FindByClass")
	defer span.End()

	matches := sel.Find(tag).FilterFunction(func(_ int, s *goquery.Selection) bool {
		class, ok := s.Attr("class")
		if !ok {
			return false
		}
		return pattern.MatchString(class)
	})

	span.SetAttributes(
		attribute.String("tag", tag),
		attribute.String("pattern", pattern.String()),
		attribute.Int("matches", matches.Length()),
	)
	return matches
}

// Cells returns the direct td/th children of a table row.
func Cells(row *goquery.Selection) *goquery.Selection {
	return row.ChildrenFiltered("td, th")
}

// Rows returns the rows of the first table in the selection in document
// order, looking through tbody/thead wrappers but not into nested tables.
func Rows(table *goquery.Selection) *goquery.Selection {
	if table.Length() == 0 {
		return table
	}
	self := table.Get(0)
	return table.Find("tr").FilterFunction(func(_ int, row *goquery.Selection) bool {
		return row.Closest("table").IsNodes(self)
	})
}
