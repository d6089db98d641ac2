package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"
)

// Dataset is tabular content ready for rendering. Title and GeneratedAt are
// only used by renderers with a page layout; the CSV renderer emits headers
// and rows alone so the output stays machine-readable.
type Dataset struct {
	Title       string
	GeneratedAt time.Time
	Headers     []string
	Rows        []map[string]string
	// RightAlign names the headers whose cells hold numbers. Renderers
	// without cell alignment ignore it.
	RightAlign []string
}

func (d Dataset) alignRight(header string) bool {
	for _, h := range d.RightAlign {
		if h == header {
			return true
		}
	}
	return false
}

// CSVExporter renders a Dataset into CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the dataset. Missing row keys render
// as empty cells.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	record := make([]string, len(data.Headers))
	for _, row := range data.Rows {
		for i, header := range data.Headers {
			record[i] = row[header]
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
