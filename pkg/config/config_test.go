package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "thermoml.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	config := Default()

	if filepath.Base(config.ArchivePath) != DefaultArchiveDirName {
		t.Errorf("unexpected archive path %s", config.ArchivePath)
	}
	if config.Format != "csv" {
		t.Errorf("expected csv format, got %s", config.Format)
	}
	if config.Workers != runtime.NumCPU() {
		t.Errorf("expected %d workers, got %d", runtime.NumCPU(), config.Workers)
	}
	if config.DebounceDuration() != DefaultDebounce {
		t.Errorf("expected default debounce, got %s", config.DebounceDuration())
	}
	if config.ResolvedOutputDir() != config.ArchivePath {
		t.Error("expected output dir to default to archive path")
	}
}

func TestLoadWithoutFile(t *testing.T) {
	t.Setenv(EnvArchivePath, "")

	config, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if config.Format != "csv" {
		t.Errorf("expected defaults, got %+v", config)
	}
}

func TestLoadYAML(t *testing.T) {
	t.Setenv(EnvArchivePath, "")
	path := writeConfig(t, `
archive_path: /data/thermoml
journal_prefix: je
output_dir: /data/out
format: jsonl
workers: 3
mirror_url: https://example.org/ThermoML.tgz
watch:
  debounce: 2s
`)

	config, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if config.ArchivePath != "/data/thermoml" || config.JournalPrefix != "je" {
		t.Errorf("unexpected paths %+v", config)
	}
	if config.ResolvedOutputDir() != "/data/out" {
		t.Errorf("unexpected output dir %s", config.ResolvedOutputDir())
	}
	if config.Format != "jsonl" || config.Workers != 3 {
		t.Errorf("unexpected format/workers %+v", config)
	}
	if config.MirrorURL != "https://example.org/ThermoML.tgz" {
		t.Errorf("unexpected mirror url %s", config.MirrorURL)
	}
	if config.DebounceDuration() != 2*time.Second {
		t.Errorf("expected 2s debounce, got %s", config.DebounceDuration())
	}
}

func TestLoadPartialYAMLKeepsDefaults(t *testing.T) {
	t.Setenv(EnvArchivePath, "")
	path := writeConfig(t, "journal_prefix: jct\n")

	config, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if config.JournalPrefix != "jct" {
		t.Errorf("expected jct prefix, got %s", config.JournalPrefix)
	}
	if config.Workers != runtime.NumCPU() || config.Format != "csv" {
		t.Errorf("expected defaults to survive, got %+v", config)
	}
}

func TestEnvironmentOverridesFile(t *testing.T) {
	t.Setenv(EnvArchivePath, "/env/thermoml")
	path := writeConfig(t, "archive_path: /file/thermoml\n")

	config, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if config.ArchivePath != "/env/thermoml" {
		t.Errorf("expected environment to win, got %s", config.ArchivePath)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Setenv(EnvArchivePath, "")

	testCases := []struct {
		name     string
		content  string
		contains string
	}{
		{"bad yaml", "archive_path: [unterminated", "failed to parse config"},
		{"bad format", "format: parquet\n", "format"},
		{"zero workers", "workers: 0\n", "workers must be positive"},
		{"bad duration", "watch:\n  debounce: soon\n", "invalid duration"},
		{"negative duration", "watch:\n  debounce: -1s\n", "must not be negative"},
		{"empty archive", "archive_path: \"\"\n", "archive_path is required"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, testCase.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), testCase.contains) {
				t.Errorf("expected error containing %q, got %v", testCase.contains, err)
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDurationMarshalYAML(t *testing.T) {
	data, err := yaml.Marshal(WatchConfig{Debounce: Duration(1500 * time.Millisecond)})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if strings.TrimSpace(string(data)) != "debounce: 1.5s" {
		t.Errorf("unexpected YAML %q", data)
	}
}
