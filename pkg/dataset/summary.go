package dataset

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/coolbeans/thermoml/pkg/measurement"
)

// Summary counts records along the dimensions most useful for choosing a
// subset to model.
type Summary struct {
	Records      int            `json:"records"`
	ByProperty   map[string]int `json:"by_property"`
	ByComponents map[string]int `json:"by_components"`
	ByFile       map[string]int `json:"by_file"`
}

// Count is one row of a ranked summary table.
type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Summarize counts records per property label, per component list, and
// per source file. A property label is any key that has a matching
// uncertainty column.
func Summarize(records []measurement.Record) *Summary {
	summary := &Summary{
		Records:      len(records),
		ByProperty:   make(map[string]int),
		ByComponents: make(map[string]int),
		ByFile:       make(map[string]int),
	}

	for _, record := range records {
		for key := range record {
			label, isUncertainty := strings.CutSuffix(key, measurement.StdSuffix)
			if !isUncertainty {
				continue
			}
			if _, ok := record[label]; ok {
				summary.ByProperty[label]++
			}
		}
		if components, ok := record[measurement.FieldComponents].Text(); ok {
			summary.ByComponents[components]++
		}
		if filename, ok := record[measurement.FieldFilename].Text(); ok {
			summary.ByFile[filename]++
		}
	}

	return summary
}

// Ranked returns counts sorted by descending count, then by key. A limit
// of zero or less returns every entry.
func Ranked(counts map[string]int, limit int) []Count {
	ranked := make([]Count, 0, len(counts))
	for key, count := range counts {
		ranked = append(ranked, Count{Key: key, Count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Key < ranked[j].Key
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// FormatSummary renders a summary as terminal tables showing the top
// entries of each dimension.
func FormatSummary(summary *Summary, limit int) string {
	var builder strings.Builder

	builder.WriteString("\nThermoML Dataset Summary\n")
	builder.WriteString(strings.Repeat("═", 70) + "\n")
	builder.WriteString(fmt.Sprintf("Records: %d | Properties: %d | Systems: %d | Files: %d\n",
		summary.Records, len(summary.ByProperty), len(summary.ByComponents), len(summary.ByFile)))

	sections := []struct {
		title  string
		counts map[string]int
		base   bool
	}{
		{"Properties", summary.ByProperty, false},
		{"Systems", summary.ByComponents, false},
		{"Files", summary.ByFile, true},
	}

	for _, section := range sections {
		builder.WriteString("\n" + section.title + "\n")
		builder.WriteString(strings.Repeat("─", 70) + "\n")
		for _, count := range Ranked(section.counts, limit) {
			key := count.Key
			if section.base {
				key = filepath.Base(key)
			}
			if len(key) > 60 {
				key = key[:57] + "..."
			}
			builder.WriteString(fmt.Sprintf("  %-60s %7d\n", key, count.Count))
		}
	}

	return builder.String()
}
