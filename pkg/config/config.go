// Package config loads thermoml settings from defaults, an optional YAML
// file, and the environment. Command-line flags are applied last by the
// caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/coolbeans/thermoml/pkg/dataset"
)

// EnvArchivePath overrides the archive path from the config file.
const EnvArchivePath = "THERMOML_PATH"

// DefaultArchiveDirName is the archive directory under the home directory.
const DefaultArchiveDirName = ".thermoml"

// DefaultDebounce is how long the watcher waits after the last write to a
// file before extracting it.
const DefaultDebounce = 500 * time.Millisecond

// Config holds settings shared by every thermoml command.
type Config struct {
	// ArchivePath is the directory holding the mirrored XML documents.
	ArchivePath string `yaml:"archive_path" json:"archive_path"`

	// JournalPrefix restricts processing to files whose names start with it.
	JournalPrefix string `yaml:"journal_prefix,omitempty" json:"journal_prefix,omitempty"`

	// OutputDir receives the dataset files. Defaults to ArchivePath.
	OutputDir string `yaml:"output_dir,omitempty" json:"output_dir,omitempty"`

	// Format is the record file format, "csv" or "jsonl".
	Format string `yaml:"format" json:"format"`

	// Workers bounds the number of documents extracted concurrently.
	Workers int `yaml:"workers" json:"workers"`

	// MirrorURL is the archive fetched by the mirror command.
	MirrorURL string `yaml:"mirror_url,omitempty" json:"mirror_url,omitempty"`

	Watch WatchConfig `yaml:"watch" json:"watch"`
}

// WatchConfig holds settings for the archive watcher.
type WatchConfig struct {
	Debounce Duration `yaml:"debounce" json:"debounce"`
}

// Duration is a time.Duration read from YAML as a string like "750ms".
type Duration time.Duration

// UnmarshalYAML parses a duration string.
func (duration *Duration) UnmarshalYAML(node *yaml.Node) error {
	var text string
	if err := node.Decode(&text); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	parsed, err := time.ParseDuration(text)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*duration = Duration(parsed)
	return nil
}

// MarshalYAML writes the duration as a string.
func (duration Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(duration).String(), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	archivePath := DefaultArchiveDirName
	if homeDir, err := os.UserHomeDir(); err == nil {
		archivePath = filepath.Join(homeDir, DefaultArchiveDirName)
	}

	return &Config{
		ArchivePath: archivePath,
		Format:      dataset.FormatCSV,
		Workers:     runtime.NumCPU(),
		Watch: WatchConfig{
			Debounce: Duration(DefaultDebounce),
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is non-empty), and the environment, then validates it.
func Load(path string) (*Config, error) {
	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if archivePath := os.Getenv(EnvArchivePath); archivePath != "" {
		config.ArchivePath = archivePath
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate reports the first invalid setting.
func (config *Config) Validate() error {
	if config.ArchivePath == "" {
		return errors.New("archive_path is required")
	}
	if !slices.Contains(dataset.Formats(), config.Format) {
		return fmt.Errorf("format %q is not one of %v", config.Format, dataset.Formats())
	}
	if config.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", config.Workers)
	}
	if config.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative, got %s", time.Duration(config.Watch.Debounce))
	}
	return nil
}

// ResolvedOutputDir returns the output directory, falling back to the
// archive path.
func (config *Config) ResolvedOutputDir() string {
	if config.OutputDir != "" {
		return config.OutputDir
	}
	return config.ArchivePath
}

// DebounceDuration returns the watcher debounce interval.
func (config *Config) DebounceDuration() time.Duration {
	return time.Duration(config.Watch.Debounce)
}
