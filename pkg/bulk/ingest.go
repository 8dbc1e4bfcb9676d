package bulk

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/coolbeans/thermoml/pkg/compound"
	"github.com/coolbeans/thermoml/pkg/measurement"
	"github.com/coolbeans/thermoml/pkg/thermoml"
)

// Builder extracts records from many ThermoML documents concurrently.
// Every document is processed in isolation; one failing document never
// affects the others.
type Builder struct {
	config BuildConfig
	logger *slog.Logger
}

// NewBuilder creates a Builder. A nil logger discards all output.
func NewBuilder(config BuildConfig, logger *slog.Logger) *Builder {
	if config.Workers <= 0 {
		config.Workers = DefaultBuildConfig().Workers
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Builder{
		config: config,
		logger: logger,
	}
}

// ProcessFile parses, resolves, and extracts a single document.
func ProcessFile(filename string) FileResult {
	startTime := time.Now()
	result := FileResult{Filename: filename}

	if info, err := os.Stat(filename); err == nil {
		result.SizeBytes = info.Size()
	}

	document, err := thermoml.ParseFile(filename)
	if err != nil {
		result.Err = err
		result.Duration = time.Since(startTime)
		return result
	}
	result.Sections = len(document.Datasets)

	registry, err := compound.BuildRegistry(document)
	if err != nil {
		result.Err = fmt.Errorf("%s: %w", filename, err)
		result.Duration = time.Since(startTime)
		return result
	}

	records, err := measurement.Extract(document, registry)
	if err != nil {
		result.Err = fmt.Errorf("%s: %w", filename, err)
		result.Duration = time.Since(startTime)
		return result
	}

	result.Records = records
	result.Compounds = registry.Compounds()
	result.Duration = time.Since(startTime)
	return result
}

// Build extracts every file and merges the results in the order of
// filenames, so the outcome does not depend on worker scheduling. Files
// that fail are logged and reported but contribute nothing. The returned
// error is non-nil only when ctx is cancelled.
func (builder *Builder) Build(ctx context.Context, filenames []string) (*BuildResult, error) {
	startTime := time.Now()
	results := make([]FileResult, len(filenames))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(builder.config.Workers)

	for index, filename := range filenames {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			results[index] = ProcessFile(filename)
			builder.logResult(results[index])
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("build cancelled: %w", err)
	}

	buildResult := Merge(results)
	buildResult.Report.Duration = time.Since(startTime)
	return buildResult, nil
}

// Merge combines per-file results in slice order. The compound table is
// last-writer-wins on common name.
func Merge(results []FileResult) *BuildResult {
	buildResult := &BuildResult{
		CompoundFormulas: make(map[string]string),
		Report:           &BuildReport{},
	}
	report := buildResult.Report

	for _, result := range results {
		report.TotalAttempted++
		entry := FileEntry{
			Filename:  result.Filename,
			SizeBytes: result.SizeBytes,
			Duration:  result.Duration,
		}

		if result.Err != nil {
			entry.Status = StatusFailed
			entry.Error = result.Err.Error()
			report.Failed++
			report.Entries = append(report.Entries, entry)
			continue
		}

		entry.Status = StatusExtracted
		entry.Sections = result.Sections
		entry.Compounds = len(result.Compounds)
		entry.Records = len(result.Records)
		report.Succeeded++
		report.Entries = append(report.Entries, entry)

		buildResult.Records = append(buildResult.Records, result.Records...)
		for _, declared := range result.Compounds {
			buildResult.CompoundFormulas[declared.CommonName] = declared.Formula
		}
	}

	report.TotalRecords = len(buildResult.Records)
	report.TotalCompounds = len(buildResult.CompoundFormulas)
	return buildResult
}

func (builder *Builder) logResult(result FileResult) {
	if result.Err != nil {
		builder.logger.Warn("skipping document",
			"file", result.Filename,
			"error", result.Err)
		return
	}
	builder.logger.Debug("extracted document",
		"file", result.Filename,
		"sections", result.Sections,
		"records", len(result.Records),
		"duration", result.Duration)
}
