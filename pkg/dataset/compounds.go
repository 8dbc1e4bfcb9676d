package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
)

var compoundHeader = []string{"name", "formula"}

// WriteCompounds writes the name to formula table as CSV sorted by name.
func WriteCompounds(writer io.Writer, table map[string]string) error {
	csvWriter := csv.NewWriter(writer)
	if err := csvWriter.Write(compoundHeader); err != nil {
		return fmt.Errorf("failed to write compound header: %w", err)
	}

	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := csvWriter.Write([]string{name, table[name]}); err != nil {
			return fmt.Errorf("failed to write compound %q: %w", name, err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

// ReadCompounds reads a table written by WriteCompounds.
func ReadCompounds(reader io.Reader) (map[string]string, error) {
	csvReader := csv.NewReader(reader)
	csvReader.FieldsPerRecord = len(compoundHeader)

	table := make(map[string]string)
	header, err := csvReader.Read()
	if errors.Is(err, io.EOF) {
		return table, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read compound header: %w", err)
	}
	if header[0] != compoundHeader[0] || header[1] != compoundHeader[1] {
		return nil, fmt.Errorf("unexpected compound header %v", header)
	}

	for {
		row, err := csvReader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read compounds: %w", err)
		}
		table[row[0]] = row[1]
	}

	return table, nil
}
