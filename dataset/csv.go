package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// ============================================================================
// CSV LOADER — Raw bytes → typed Table
// ============================================================================
// The consumer reads the CSV from wherever it lives (file, upload, object
// store); this converts bytes into a Table with inferred column types and
// parsed dates, which is the input contract the engine consumes.
// ============================================================================

var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02/01/2006 15:04",
	"02/01/2006",
	"01/02/2006",
	"02-Jan-2006",
}

// ParseCSV parses CSV bytes into a typed Table.
// Column types are inferred from the data: a column where every non-empty
// cell parses as a number becomes numeric, as a date becomes a date column,
// everything else stays text.
func ParseCSV(data []byte) (*Table, error) {
	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}

	var raw [][]string
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", len(raw)+2, err)
		}
		raw = append(raw, rec)
	}

	types := make([]ColType, len(headers))
	for i := range headers {
		types[i] = inferColType(raw, i)
	}

	t := New(headers, types)
	for _, rec := range raw {
		row := make([]Value, len(headers))
		for i := range headers {
			cell := ""
			if i < len(rec) {
				cell = strings.TrimSpace(rec[i])
			}
			row[i] = parseCell(cell, types[i])
		}
		t.rows = append(t.rows, row)
	}
	return t, nil
}

func inferColType(raw [][]string, col int) ColType {
	seen, numeric, dates := 0, 0, 0
	for _, rec := range raw {
		if col >= len(rec) {
			continue
		}
		cell := strings.TrimSpace(rec[col])
		if cell == "" {
			continue
		}
		seen++
		if _, err := strconv.ParseFloat(strings.ReplaceAll(cell, ",", ""), 64); err == nil {
			numeric++
		} else if _, ok := parseDate(cell); ok {
			dates++
		}
		if seen >= 200 {
			break
		}
	}
	if seen == 0 {
		return ColText
	}
	if numeric == seen {
		return ColNumber
	}
	if dates == seen {
		return ColDate
	}
	return ColText
}

func parseCell(cell string, typ ColType) Value {
	if cell == "" {
		return Null()
	}
	switch typ {
	case ColNumber:
		f, err := strconv.ParseFloat(strings.ReplaceAll(cell, ",", ""), 64)
		if err != nil {
			return Null()
		}
		return Num(f)
	case ColDate:
		if t, ok := parseDate(cell); ok {
			return Date(t)
		}
		return Null()
	}
	return Str(cell)
}

func parseDate(cell string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, cell); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
