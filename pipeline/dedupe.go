package pipeline

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aluiziolira/bookscrape/models"
)

// Dedupe drops exact duplicate rows, keeping the first occurrence of each and
// the original order. Dedupe(Dedupe(r)) equals Dedupe(r).
func Dedupe(records []models.Record) []models.Record {
	if len(records) == 0 {
		return nil
	}

	// Sized to the input, so no key is ever evicted.
	seen, err := lru.New[models.Record, struct{}](len(records))
	if err != nil {
		return append([]models.Record(nil), records...)
	}

	out := make([]models.Record, 0, len(records))
	for _, r := range records {
		if found, _ := seen.ContainsOrAdd(r, struct{}{}); found {
			continue
		}
		out = append(out, r)
	}
	return out
}
