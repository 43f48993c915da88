package services

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// StructuredRecord is the only shape the generation collaborator is
// allowed to emit: a title, a few label/value fields and an optional
// note. Constraining output to this record keeps the generator from
// producing free prose with invented claims.
type StructuredRecord struct {
	Title string       `json:"title"`
	Items []RecordItem `json:"items"`
	Notes string       `json:"notes,omitempty"`
}

type RecordItem struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// maxRecordItems caps how many label/value lines render, regardless of
// what the generator emitted.
const maxRecordItems = 6

var jsonBlockPattern = regexp.MustCompile(`(?s)\{.*\}`)
var labelCleanPattern = regexp.MustCompile(`[^\w\s,:.\-₹$€£%()]`)

// ExtractRecord pulls a StructuredRecord out of raw generator output,
// tolerating markdown fences and surrounding chatter. Returns false
// when no parseable JSON object is present.
func ExtractRecord(text string) (*StructuredRecord, bool) {
	candidate := strings.TrimSpace(text)
	if match := jsonBlockPattern.FindString(candidate); match != "" {
		candidate = match
	}

	var record StructuredRecord
	if err := json.Unmarshal([]byte(candidate), &record); err != nil {
		return nil, false
	}
	return &record, true
}

// RenderRecord deterministically renders a StructuredRecord into
// display text: bold title, one "**Label:** Value" line per item (max
// 6), and an italic note at the bottom.
func RenderRecord(record *StructuredRecord) string {
	if record == nil {
		return "Information not found."
	}

	var lines []string

	if title := strings.TrimSpace(record.Title); title != "" {
		lines = append(lines, fmt.Sprintf("**%s**", title))
	}

	count := 0
	for _, item := range record.Items {
		if count >= maxRecordItems {
			break
		}

		label := strings.TrimSpace(labelCleanPattern.ReplaceAllString(item.Label, ""))
		value := strings.TrimSpace(item.Value)
		if label == "" || value == "" {
			continue
		}

		lines = append(lines, fmt.Sprintf("**%s:** %s", label, value))
		count++
	}

	if count == 0 {
		return "The requested information is not available."
	}

	if notes := strings.TrimSpace(record.Notes); notes != "" {
		lines = append(lines, fmt.Sprintf("\n_%s_", notes))
	}

	return strings.Join(lines, "\n")
}
