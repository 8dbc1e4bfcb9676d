// Package bulk drives extraction over a local ThermoML archive mirror:
// discovering XML files, extracting each one in isolation, merging the
// results, and recording what happened in a run manifest.
package bulk

import (
	"net/http"
	"runtime"
	"time"

	"github.com/coolbeans/thermoml/pkg/compound"
	"github.com/coolbeans/thermoml/pkg/measurement"
)

// File status values recorded in reports and manifests.
const (
	StatusExtracted = "extracted"
	StatusFailed    = "failed"
)

// BuildConfig holds configuration for a batch extraction.
type BuildConfig struct {
	// Workers is the maximum number of files extracted concurrently.
	Workers int
}

// DefaultBuildConfig returns a BuildConfig with one worker per CPU.
func DefaultBuildConfig() BuildConfig {
	return BuildConfig{
		Workers: runtime.NumCPU(),
	}
}

// FileResult is the outcome of extracting a single document.
type FileResult struct {
	Filename  string
	Records   []measurement.Record
	Compounds []compound.Compound
	Sections  int
	SizeBytes int64
	Duration  time.Duration

	// Err is non-nil when the document failed; Records is then empty.
	Err error
}

// CompoundFormulas returns the common name to formula table of the
// document.
func (result FileResult) CompoundFormulas() map[string]string {
	table := make(map[string]string, len(result.Compounds))
	for _, entry := range result.Compounds {
		table[entry.CommonName] = entry.Formula
	}
	return table
}

// BuildResult is the merged outcome of a batch extraction.
type BuildResult struct {
	// Records holds all records, in filename order.
	Records []measurement.Record

	// CompoundFormulas maps common names to formulas across all documents.
	// Later files win on name collisions.
	CompoundFormulas map[string]string

	Report *BuildReport
}

// BuildReport summarizes the results of a batch extraction.
type BuildReport struct {
	TotalAttempted int           `json:"total_attempted"`
	Succeeded      int           `json:"succeeded"`
	Failed         int           `json:"failed"`
	TotalRecords   int           `json:"total_records"`
	TotalCompounds int           `json:"total_compounds"`
	Duration       time.Duration `json:"duration"`
	Entries        []FileEntry   `json:"entries"`
}

// FileEntry records the outcome of extracting a single document.
type FileEntry struct {
	Filename  string        `json:"filename"`
	Status    string        `json:"status"` // "extracted", "failed"
	Error     string        `json:"error,omitempty"`
	Sections  int           `json:"sections,omitempty"`
	Compounds int           `json:"compounds,omitempty"`
	Records   int           `json:"records,omitempty"`
	SizeBytes int64         `json:"size_bytes,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
}

// DownloadConfig holds configuration for mirroring a ThermoML archive.
type DownloadConfig struct {
	// ArchiveDirectory is where XML files are extracted.
	ArchiveDirectory string

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration

	// UserAgent is the User-Agent header sent with requests.
	UserAgent string

	// HTTPClient allows injection of a custom HTTP client (for testing).
	HTTPClient *http.Client

	// MaxRetries is the maximum number of attempts for transient errors.
	MaxRetries int

	// RetryBaseDelay is the initial delay between retries (doubles each attempt).
	RetryBaseDelay time.Duration
}

// DefaultDownloadConfig returns a DownloadConfig with sensible defaults.
func DefaultDownloadConfig(archiveDirectory string) DownloadConfig {
	return DownloadConfig{
		ArchiveDirectory: archiveDirectory,
		Timeout:          30 * time.Minute,
		UserAgent:        "thermoml-mirror/1.0",
		MaxRetries:       3,
		RetryBaseDelay:   5 * time.Second,
	}
}
