// Package parser turns catalogue listing pages into records.
package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/bookscrape/models"
)

// MissingName is used when a product link carries no title attribute.
const MissingName = "N/A"

// ExtractRecords returns one record per article.product_pod in body, in
// document order. A page without products yields no records and no error.
func ExtractRecords(body []byte) ([]models.Record, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	pods := doc.Find(".product_pod")
	records := make([]models.Record, 0, pods.Length())
	pods.Each(func(_ int, pod *goquery.Selection) {
		name, ok := pod.Find("h3 a").First().Attr("title")
		if !ok {
			name = MissingName
		}
		records = append(records, models.Record{
			Name:         strings.TrimSpace(name),
			Price:        NormalizePrice(pod.Find(".price_color").First().Text()),
			Availability: NormalizeAvailability(pod.Find(".availability").First().Text()),
		})
	})
	return records, nil
}

// ValidateRecord reports records the page rendered without a name or price.
func ValidateRecord(r models.Record) error {
	if strings.TrimSpace(r.Name) == "" || r.Name == MissingName {
		return fmt.Errorf("record missing name")
	}
	if strings.TrimSpace(r.Price) == "" {
		return fmt.Errorf("record missing price for %s", r.Name)
	}
	return nil
}

// NormalizePrice trims the displayed price and repairs a pound sign that was
// decoded as Latin-1. The currency symbol itself is kept.
func NormalizePrice(price string) string {
	price = strings.TrimSpace(price)
	return strings.ReplaceAll(price, "Â£", "£")
}

// NormalizeAvailability collapses the whitespace around the stock text.
func NormalizeAvailability(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
