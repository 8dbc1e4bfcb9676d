package bulk

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DiscoverFiles returns the XML files directly under archivePath whose
// names start with journalPrefix, sorted by name. The extension matches
// case-insensitively. An empty prefix matches
// every XML file.
func DiscoverFiles(archivePath string, journalPrefix string) ([]string, error) {
	info, err := os.Stat(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("archive path %s is not a directory", archivePath)
	}

	pattern := filepath.Join(archivePath, globEscape(journalPrefix)+"*")
	candidates, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to glob %s: %w", pattern, err)
	}

	var filenames []string
	for _, candidate := range candidates {
		if !IsXMLFile(candidate) {
			continue
		}
		if info, err := os.Stat(candidate); err != nil || info.IsDir() {
			continue
		}
		filenames = append(filenames, candidate)
	}

	sort.Strings(filenames)
	return filenames, nil
}

// MatchesJournal reports whether filename is an XML file carrying the
// journal prefix.
func MatchesJournal(filename string, journalPrefix string) bool {
	base := filepath.Base(filename)
	return strings.HasPrefix(base, journalPrefix) && IsXMLFile(base)
}

// IsXMLFile reports whether filename has an .xml extension in any case.
func IsXMLFile(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".xml")
}

// globEscape quotes glob metacharacters so the prefix matches literally.
func globEscape(text string) string {
	var builder strings.Builder
	for _, character := range text {
		switch character {
		case '*', '?', '[', '\\':
			builder.WriteRune('\\')
		}
		builder.WriteRune(character)
	}
	return builder.String()
}
