// Package dataset persists extracted measurement records and the compound
// table, and summarizes record sets for inspection.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/coolbeans/thermoml/pkg/measurement"
)

// Columns returns the CSV header for records: the fixed fields present in
// any record, in their canonical order, followed by every other key sorted.
func Columns(records []measurement.Record) []string {
	present := make(map[string]bool)
	for _, record := range records {
		for key := range record {
			present[key] = true
		}
	}

	var columns []string
	for _, field := range measurement.FixedFields() {
		if present[field] {
			columns = append(columns, field)
			delete(present, field)
		}
	}

	others := make([]string, 0, len(present))
	for key := range present {
		others = append(others, key)
	}
	sort.Strings(others)

	return append(columns, others...)
}

// WriteCSV writes records as CSV with a header row. Null and absent values
// become empty cells; a missing uncertainty is written as NaN.
func WriteCSV(writer io.Writer, records []measurement.Record) error {
	csvWriter := csv.NewWriter(writer)
	columns := Columns(records)

	if err := csvWriter.Write(columns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	row := make([]string, len(columns))
	for index, record := range records {
		for column, key := range columns {
			row[column] = record[key].String()
		}
		if err := csvWriter.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row %d: %w", index+1, err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

// ReadCSV reads records written by WriteCSV. Numeric cells become numbers
// and empty cells are left out of the record.
func ReadCSV(reader io.Reader) ([]measurement.Record, error) {
	csvReader := csv.NewReader(reader)

	header, err := csvReader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	csvReader.FieldsPerRecord = len(header)

	var records []measurement.Record
	for {
		row, err := csvReader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}

		record := make(measurement.Record, len(row))
		for column, cell := range row {
			if cell == "" {
				continue
			}
			record[header[column]] = measurement.ParseCell(cell)
		}
		records = append(records, record)
	}

	return records, nil
}
