package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/coolbeans/thermoml/pkg/measurement"
)

// maxLineSize bounds a single JSON Lines record.
const maxLineSize = 16 * 1024 * 1024

// WriteJSONLines writes one JSON object per record. Null values are kept
// as null and a missing uncertainty is encoded as the string "NaN".
func WriteJSONLines(writer io.Writer, records []measurement.Record) error {
	bufferedWriter := bufio.NewWriter(writer)
	encoder := json.NewEncoder(bufferedWriter)

	for index, record := range records {
		if err := encoder.Encode(record); err != nil {
			return fmt.Errorf("failed to encode record %d: %w", index+1, err)
		}
	}

	return bufferedWriter.Flush()
}

// ReadJSONLines reads records written by WriteJSONLines. Blank lines are
// ignored.
func ReadJSONLines(reader io.Reader) ([]measurement.Record, error) {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	var records []measurement.Record
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var record measurement.Record
		if err := json.Unmarshal(line, &record); err != nil {
			return nil, fmt.Errorf("line %d: failed to decode record: %w", lineNumber, err)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}

	return records, nil
}
