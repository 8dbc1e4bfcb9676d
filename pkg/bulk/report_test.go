package bulk

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestFormatBytes(t *testing.T) {
	testCases := []struct {
		input    int64
		expected string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{1073741824, "1.0 GB"},
	}

	for _, testCase := range testCases {
		if got := FormatBytes(testCase.input); got != testCase.expected {
			t.Errorf("FormatBytes(%d) = %q, want %q", testCase.input, got, testCase.expected)
		}
	}
}

func TestFormatBuildReport(t *testing.T) {
	output := FormatBuildReport(testReport())

	expectedFragments := []string{
		"ThermoML Build Report",
		"Attempted: 2 | Extracted: 1 | Failed: 1",
		"Records: 12 | Compounds: 3 | Duration: 1.5s",
		"[OK]",
		"je0001.xml",
		"(12 records)",
		"[FAIL]",
		"error: failed to load",
	}
	for _, fragment := range expectedFragments {
		if !strings.Contains(output, fragment) {
			t.Errorf("expected output to contain %q\n%s", fragment, output)
		}
	}
	if strings.Contains(output, "/archive/") {
		t.Error("expected entries to show base names only")
	}
}

func TestFormatBuildReportJSON(t *testing.T) {
	output := FormatBuildReportJSON(testReport())

	var decoded BuildReport
	if err := json.Unmarshal([]byte(output), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Succeeded != 1 || len(decoded.Entries) != 2 {
		t.Errorf("unexpected decoded report %+v", decoded)
	}
	if decoded.Entries[1].Error != "failed to load" {
		t.Errorf("unexpected error field %q", decoded.Entries[1].Error)
	}
}

func TestFormatStatusReport(t *testing.T) {
	manifest := NewRunManifest("/archive", "je")
	manifest.Finish(testReport(), "csv", []string{"data.csv", "compounds.csv"})

	output := FormatStatusReport(manifest, false)
	for _, fragment := range []string{manifest.RunID, `prefix "je"`, "data.csv, compounds.csv", "3.0 KB", "je0001.xml", "je0002.xml"} {
		if !strings.Contains(output, fragment) {
			t.Errorf("expected output to contain %q\n%s", fragment, output)
		}
	}

	failedOnly := FormatStatusReport(manifest, true)
	if strings.Contains(failedOnly, "je0001.xml") {
		t.Error("expected successful files to be hidden")
	}
	if !strings.Contains(failedOnly, "je0002.xml") {
		t.Error("expected failed file to be listed")
	}
}

func TestFormatStatusReportWithoutReport(t *testing.T) {
	manifest := &RunManifest{RunID: "run"}
	if output := FormatStatusReport(manifest, false); !strings.Contains(output, "0 files") {
		t.Errorf("unexpected output %s", output)
	}
}
