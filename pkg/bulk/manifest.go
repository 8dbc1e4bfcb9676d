package bulk

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// ManifestFilename is the name of the run manifest inside an output directory.
const ManifestFilename = "manifest.json"

const manifestVersion = "1.0.0"

// RunManifest records a build run so its outputs can be inspected later.
type RunManifest struct {
	Version       string       `json:"version"`
	RunID         string       `json:"run_id"`
	StartedAt     time.Time    `json:"started_at"`
	FinishedAt    time.Time    `json:"finished_at"`
	ArchivePath   string       `json:"archive_path"`
	JournalPrefix string       `json:"journal_prefix"`
	Format        string       `json:"format"`
	Outputs       []string     `json:"outputs"`
	Report        *BuildReport `json:"report"`
}

// NewRunManifest creates a manifest for a run starting now.
func NewRunManifest(archivePath string, journalPrefix string) *RunManifest {
	return &RunManifest{
		Version:       manifestVersion,
		RunID:         uuid.NewString(),
		StartedAt:     time.Now(),
		ArchivePath:   archivePath,
		JournalPrefix: journalPrefix,
	}
}

// Finish records the build report and the files the run produced.
func (manifest *RunManifest) Finish(report *BuildReport, format string, outputs []string) {
	manifest.FinishedAt = time.Now()
	manifest.Report = report
	manifest.Format = format
	manifest.Outputs = outputs
}

// LoadManifest reads a run manifest from disk.
func LoadManifest(manifestPath string) (*RunManifest, error) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	manifest := &RunManifest{}
	if err := json.Unmarshal(data, manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	if manifest.Report == nil {
		manifest.Report = &BuildReport{}
	}

	return manifest, nil
}

// SaveManifest writes the manifest to disk.
func (manifest *RunManifest) SaveManifest(manifestPath string) error {
	if err := os.MkdirAll(filepath.Dir(manifestPath), 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.WriteFile(manifestPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	return nil
}

// FailedFiles returns the entries of files that could not be extracted.
func (manifest *RunManifest) FailedFiles() []FileEntry {
	var failed []FileEntry
	if manifest.Report == nil {
		return failed
	}
	for _, entry := range manifest.Report.Entries {
		if entry.Status == StatusFailed {
			failed = append(failed, entry)
		}
	}
	return failed
}

// TotalSize returns the combined size of every file the run attempted.
func (manifest *RunManifest) TotalSize() int64 {
	var totalBytes int64
	if manifest.Report == nil {
		return totalBytes
	}
	for _, entry := range manifest.Report.Entries {
		totalBytes += entry.SizeBytes
	}
	return totalBytes
}
