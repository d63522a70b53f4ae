package workouts

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
)

var csvHeader = []string{"Date", "Exercise", "Weight"}

// WriteCSV writes all records as CSV with the Date,Exercise,Weight header,
// one row per record, in insertion order.
func (s *Store) WriteCSV(w io.Writer) error {
	csvWriter := csv.NewWriter(w)

	if err := csvWriter.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, r := range s.List() {
		row := []string{
			r.Date.Format(DateTimeFormat),
			r.Exercise,
			fmt.Sprintf("%g", r.Weight),
		}
		if err := csvWriter.Write(row); err != nil {
			return fmt.Errorf("write csv row for record %d: %w", r.ID, err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

// ExportCSV returns the CSV content of all records, as pushed to the remote.
func (s *Store) ExportCSV() ([]byte, error) {
	var buf bytes.Buffer
	if err := s.WriteCSV(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
