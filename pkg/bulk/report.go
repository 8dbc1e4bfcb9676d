package bulk

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// PrintDownloadProgress is a ProgressCallback that prints a progress bar.
func PrintDownloadProgress(bytesDownloaded int64, totalBytes int64) {
	if totalBytes > 0 {
		percentage := float64(bytesDownloaded) / float64(totalBytes) * 100
		barLength := min(int(percentage/2), 50)
		fmt.Printf("\r  [%-50s] %.1f%% (%s / %s)",
			strings.Repeat("=", barLength)+strings.Repeat(" ", 50-barLength),
			percentage,
			FormatBytes(bytesDownloaded),
			FormatBytes(totalBytes))
	} else {
		fmt.Printf("\r  Downloaded: %s", FormatBytes(bytesDownloaded))
	}
}

// FormatBytes converts byte count to human-readable format.
func FormatBytes(byteCount int64) string {
	switch {
	case byteCount >= 1024*1024*1024:
		return fmt.Sprintf("%.1f GB", float64(byteCount)/(1024*1024*1024))
	case byteCount >= 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(byteCount)/(1024*1024))
	case byteCount >= 1024:
		return fmt.Sprintf("%.1f KB", float64(byteCount)/1024)
	default:
		return fmt.Sprintf("%d B", byteCount)
	}
}

// FormatBuildReport formats a BuildReport for terminal output.
func FormatBuildReport(report *BuildReport) string {
	var builder strings.Builder

	builder.WriteString("\nThermoML Build Report\n")
	builder.WriteString(strings.Repeat("═", 60) + "\n")
	builder.WriteString(fmt.Sprintf("Attempted: %d | Extracted: %d | Failed: %d\n",
		report.TotalAttempted, report.Succeeded, report.Failed))
	builder.WriteString(fmt.Sprintf("Records: %d | Compounds: %d | Duration: %s\n",
		report.TotalRecords, report.TotalCompounds, report.Duration.Round(time.Millisecond)))
	builder.WriteString(strings.Repeat("─", 60) + "\n")

	for _, entry := range report.Entries {
		builder.WriteString(formatEntryLine(entry) + "\n")
	}

	return builder.String()
}

// FormatBuildReportJSON formats a BuildReport as JSON.
func FormatBuildReportJSON(report *BuildReport) string {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(data)
}

// FormatStatusReport formats a saved run manifest for terminal output.
// When failedOnly is set only files that could not be extracted are listed.
func FormatStatusReport(manifest *RunManifest, failedOnly bool) string {
	var builder strings.Builder

	builder.WriteString("\nThermoML Build Status\n")
	builder.WriteString(strings.Repeat("═", 70) + "\n")
	builder.WriteString(fmt.Sprintf("  Run:      %s\n", manifest.RunID))
	builder.WriteString(fmt.Sprintf("  Started:  %s\n", manifest.StartedAt.Format("2006-01-02 15:04")))
	if !manifest.FinishedAt.IsZero() {
		builder.WriteString(fmt.Sprintf("  Finished: %s\n", manifest.FinishedAt.Format("2006-01-02 15:04")))
	}
	builder.WriteString(fmt.Sprintf("  Archive:  %s (prefix %q)\n", manifest.ArchivePath, manifest.JournalPrefix))
	if len(manifest.Outputs) > 0 {
		builder.WriteString(fmt.Sprintf("  Outputs:  %s\n", strings.Join(manifest.Outputs, ", ")))
	}

	report := manifest.Report
	if report == nil {
		report = &BuildReport{}
	}
	builder.WriteString(fmt.Sprintf("\n  %d files  %s  %d extracted  %d failed  %d records\n",
		report.TotalAttempted, FormatBytes(manifest.TotalSize()),
		report.Succeeded, report.Failed, report.TotalRecords))

	for _, entry := range report.Entries {
		if failedOnly && entry.Status != StatusFailed {
			continue
		}
		builder.WriteString("  " + formatEntryLine(entry) + "\n")
	}

	return builder.String()
}

func formatEntryLine(entry FileEntry) string {
	status := entry.Status
	switch status {
	case StatusExtracted:
		status = "[OK]"
	case StatusFailed:
		status = "[FAIL]"
	}

	line := fmt.Sprintf("  %-8s %-30s", status, filepath.Base(entry.Filename))
	if entry.Records > 0 {
		line += fmt.Sprintf(" (%d records)", entry.Records)
	}
	if entry.Error != "" {
		line += fmt.Sprintf(" error: %s", entry.Error)
	}
	return line
}
