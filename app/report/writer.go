package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
)

var csvHeader = []string{"title", "link", "description", "date", "source", "region"}

func WriteJSON(w io.Writer, items []Item) error {
	if err := json.NewEncoder(w).Encode(items); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// WriteCSV writes the six-column export. Fields containing commas,
// quotes or newlines are quoted.
func WriteCSV(w io.Writer, items []Item) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, item := range items {
		date := ""
		if item.Date != nil {
			date = *item.Date
		}
		row := []string{item.Title, item.Link, item.Description, date, item.Source, item.Region}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}

	return nil
}
