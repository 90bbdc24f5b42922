package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aluiziolira/bookscrape/models"
)

func rec(name, price string) models.Record {
	return models.Record{Name: name, Price: price, Availability: "In stock"}
}

func TestDedupe(t *testing.T) {
	testCases := []struct {
		name     string
		input    []models.Record
		expected []models.Record
	}{
		{
			name:     "empty",
			input:    nil,
			expected: nil,
		},
		{
			name:     "exact duplicate",
			input:    []models.Record{rec("A", "£1"), rec("A", "£1")},
			expected: []models.Record{rec("A", "£1")},
		},
		{
			name:     "first occurrence wins regardless of position",
			input:    []models.Record{rec("B", "£2"), rec("A", "£1"), rec("C", "£3"), rec("A", "£1"), rec("B", "£2")},
			expected: []models.Record{rec("B", "£2"), rec("A", "£1"), rec("C", "£3")},
		},
		{
			name:     "rows differing in one field are kept",
			input:    []models.Record{rec("A", "£1"), rec("A", "£2"), {Name: "A", Price: "£1", Availability: "Out of stock"}},
			expected: []models.Record{rec("A", "£1"), rec("A", "£2"), {Name: "A", Price: "£1", Availability: "Out of stock"}},
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			got := Dedupe(test.input)
			require.Equal(t, test.expected, got)
			require.Equal(t, got, Dedupe(got), "dedupe must be idempotent")
		})
	}
}

func TestDedupeDoesNotMutateInput(t *testing.T) {
	input := []models.Record{rec("A", "£1"), rec("A", "£1"), rec("B", "£2")}
	snapshot := append([]models.Record(nil), input...)

	Dedupe(input)
	require.Equal(t, snapshot, input)
}
