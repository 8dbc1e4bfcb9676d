package dataset

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/coolbeans/thermoml/pkg/measurement"
)

// Output formats for the record file.
const (
	FormatCSV        = "csv"
	FormatJSONLines  = "jsonl"
	CompoundFilename = "compounds.csv"
)

// ErrNoDataset is returned by Load when a directory holds no record file.
var ErrNoDataset = errors.New("no extracted dataset")

// Formats lists the supported record formats.
func Formats() []string {
	return []string{FormatCSV, FormatJSONLines}
}

// DataFilename returns the record file name for format.
func DataFilename(format string) (string, error) {
	switch format {
	case FormatCSV:
		return "data.csv", nil
	case FormatJSONLines:
		return "data.jsonl", nil
	default:
		return "", fmt.Errorf("unknown format %q (expected %s or %s)", format, FormatCSV, FormatJSONLines)
	}
}

// Save writes records and the compound table into directory and returns
// the paths written.
func Save(directory string, format string, records []measurement.Record, compounds map[string]string) ([]string, error) {
	dataFilename, err := DataFilename(format)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(directory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	dataPath := filepath.Join(directory, dataFilename)
	err = writeFile(dataPath, func(writer io.Writer) error {
		if format == FormatJSONLines {
			return WriteJSONLines(writer, records)
		}
		return WriteCSV(writer, records)
	})
	if err != nil {
		return nil, err
	}

	if err := removeOtherFormats(directory, format); err != nil {
		return []string{dataPath}, err
	}

	compoundPath := filepath.Join(directory, CompoundFilename)
	err = writeFile(compoundPath, func(writer io.Writer) error {
		return WriteCompounds(writer, compounds)
	})
	if err != nil {
		return []string{dataPath}, err
	}

	return []string{dataPath, compoundPath}, nil
}

// Append adds records to the dataset in directory and merges compounds
// into its compound table, creating both when absent. JSON Lines data is
// appended in place; CSV data is rewritten because new records may add
// columns.
func Append(directory string, format string, records []measurement.Record, compounds map[string]string) ([]string, error) {
	dataFilename, err := DataFilename(format)
	if err != nil {
		return nil, err
	}

	table, err := LoadCompounds(directory)
	if errors.Is(err, ErrNoDataset) {
		table = make(map[string]string)
	} else if err != nil {
		return nil, err
	}
	for name, formula := range compounds {
		table[name] = formula
	}

	if format == FormatCSV || hasOtherFormat(directory, format) {
		existing, err := Load(directory)
		if err != nil && !errors.Is(err, ErrNoDataset) {
			return nil, err
		}
		return Save(directory, format, append(existing, records...), table)
	}

	if err := os.MkdirAll(directory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	dataPath := filepath.Join(directory, dataFilename)
	file, err := os.OpenFile(dataPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", dataPath, err)
	}
	if err := WriteJSONLines(file, records); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to append to %s: %w", dataPath, err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("failed to append to %s: %w", dataPath, err)
	}

	compoundPath := filepath.Join(directory, CompoundFilename)
	err = writeFile(compoundPath, func(writer io.Writer) error {
		return WriteCompounds(writer, table)
	})
	if err != nil {
		return []string{dataPath}, err
	}

	return []string{dataPath, compoundPath}, nil
}

func hasOtherFormat(directory string, format string) bool {
	for _, other := range Formats() {
		if other == format {
			continue
		}
		otherFilename, _ := DataFilename(other)
		if _, err := os.Stat(filepath.Join(directory, otherFilename)); err == nil {
			return true
		}
	}
	return false
}

// removeOtherFormats deletes record files of formats other than format so
// Load never returns stale data.
func removeOtherFormats(directory string, format string) error {
	for _, other := range Formats() {
		if other == format {
			continue
		}
		otherFilename, _ := DataFilename(other)
		err := os.Remove(filepath.Join(directory, otherFilename))
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove stale %s: %w", otherFilename, err)
		}
	}
	return nil
}

// Load reads the records saved in directory.
func Load(directory string) ([]measurement.Record, error) {
	for _, format := range Formats() {
		dataFilename, _ := DataFilename(format)
		file, err := os.Open(filepath.Join(directory, dataFilename))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to open dataset: %w", err)
		}
		defer file.Close()

		if format == FormatJSONLines {
			return ReadJSONLines(file)
		}
		return ReadCSV(file)
	}

	return nil, fmt.Errorf("%w in %s; run 'thermoml build' first", ErrNoDataset, directory)
}

// LoadCompounds reads the compound table saved in directory.
func LoadCompounds(directory string) (map[string]string, error) {
	file, err := os.Open(filepath.Join(directory, CompoundFilename))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w in %s; run 'thermoml build' first", ErrNoDataset, directory)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open compound table: %w", err)
	}
	defer file.Close()

	return ReadCompounds(file)
}

// writeFile writes through a temporary file so a failed write never
// leaves a truncated output behind.
func writeFile(path string, write func(io.Writer) error) error {
	temporaryFile, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	temporaryPath := temporaryFile.Name()

	if err := write(temporaryFile); err != nil {
		temporaryFile.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := temporaryFile.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
