package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/coolbeans/thermoml/pkg/bulk"
	"github.com/coolbeans/thermoml/pkg/compound"
	"github.com/coolbeans/thermoml/pkg/config"
	"github.com/coolbeans/thermoml/pkg/dataset"
	"github.com/coolbeans/thermoml/pkg/formula"
	"github.com/coolbeans/thermoml/pkg/thermoml"
	"github.com/coolbeans/thermoml/pkg/watch"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "thermoml",
		Short: "ThermoML measurement extractor",
		Long: `thermoml flattens ThermoML XML documents into tabular measurement
records for building property datasets.

Each measurement becomes one record holding its compounds, their InChI
identifiers, the experimental conditions, the measured property value,
and its standard uncertainty. A compound table mapping common names to
molecular formulas is written alongside.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("config", "", "YAML config file")
	rootCmd.PersistentFlags().String("path", "", "Archive directory holding ThermoML XML files (default $THERMOML_PATH or ~/.thermoml)")
	rootCmd.PersistentFlags().String("journalprefix", "", "Only process files whose names start with this prefix")
	rootCmd.PersistentFlags().Bool("verbose", false, "Log per-file progress to stderr")

	rootCmd.AddCommand(buildCmd())
	rootCmd.AddCommand(extractCmd())
	rootCmd.AddCommand(compoundsCmd())
	rootCmd.AddCommand(formulaCmd())
	rootCmd.AddCommand(summaryCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(mirrorCmd())

	return rootCmd
}

// loadConfig resolves settings from the config file, the environment, and
// any flags the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")

	settings, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("path") {
		settings.ArchivePath, _ = flags.GetString("path")
	}
	if flags.Changed("journalprefix") {
		settings.JournalPrefix, _ = flags.GetString("journalprefix")
	}
	if flags.Lookup("output") != nil && flags.Changed("output") {
		settings.OutputDir, _ = flags.GetString("output")
	}
	if flags.Lookup("format") != nil && flags.Changed("format") {
		settings.Format, _ = flags.GetString("format")
	}
	if flags.Lookup("workers") != nil && flags.Changed("workers") {
		settings.Workers, _ = flags.GetInt("workers")
	}
	if flags.Lookup("debounce") != nil && flags.Changed("debounce") {
		debounce, _ := flags.GetDuration("debounce")
		settings.Watch.Debounce = config.Duration(debounce)
	}
	if flags.Lookup("url") != nil && flags.Changed("url") {
		settings.MirrorURL, _ = flags.GetString("url")
	}

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return settings, nil
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func buildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Extract every document in the archive into a dataset",
		Long: `Extract measurement records from every ThermoML document in the
archive directory and write the dataset, the compound table, and a run
manifest to the output directory.

Documents that fail to load or reference undeclared compounds are
reported and skipped; they never abort the build.

Example:
  thermoml build --path ~/thermoml-archive --journalprefix je
  thermoml build --format jsonl --output ./dataset --workers 8`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOutput, _ := cmd.Flags().GetBool("json")

			settings, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cmd)

			filenames, err := bulk.DiscoverFiles(settings.ArchivePath, settings.JournalPrefix)
			if err != nil {
				return err
			}
			if len(filenames) == 0 {
				return fmt.Errorf("no %s*.xml files found in %s", settings.JournalPrefix, settings.ArchivePath)
			}

			manifest := bulk.NewRunManifest(settings.ArchivePath, settings.JournalPrefix)
			if !jsonOutput {
				fmt.Printf("Extracting %d documents from %s with %d workers...\n",
					len(filenames), settings.ArchivePath, settings.Workers)
			}

			ctx, cancel := signalContext()
			defer cancel()

			builder := bulk.NewBuilder(bulk.BuildConfig{Workers: settings.Workers}, logger)
			result, err := builder.Build(ctx, filenames)
			if err != nil {
				return err
			}

			outputDir := settings.ResolvedOutputDir()
			outputs, err := dataset.Save(outputDir, settings.Format, result.Records, result.CompoundFormulas)
			if err != nil {
				return fmt.Errorf("failed to save dataset: %w", err)
			}

			manifest.Finish(result.Report, settings.Format, outputs)
			if err := manifest.SaveManifest(filepath.Join(outputDir, bulk.ManifestFilename)); err != nil {
				return err
			}

			if jsonOutput {
				fmt.Println(bulk.FormatBuildReportJSON(result.Report))
				return nil
			}

			fmt.Print(bulk.FormatBuildReport(result.Report))
			fmt.Println("\nWrote:")
			for _, output := range outputs {
				fmt.Printf("  - %s\n", output)
			}
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", "", "Output directory (default: the archive directory)")
	cmd.Flags().StringP("format", "f", dataset.FormatCSV, "Record format: csv or jsonl")
	cmd.Flags().IntP("workers", "w", 0, "Documents extracted concurrently (default: number of CPUs)")
	cmd.Flags().Bool("json", false, "Print the build report as JSON")

	return cmd
}

func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Extract the records of a single document",
		Long: `Extract the measurement records of one ThermoML document and write
them to stdout.

Example:
  thermoml extract je0001.xml
  thermoml extract je0001.xml --format csv > je0001.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")

			result := bulk.ProcessFile(args[0])
			if result.Err != nil {
				return result.Err
			}

			switch format {
			case dataset.FormatJSONLines:
				return dataset.WriteJSONLines(os.Stdout, result.Records)
			case dataset.FormatCSV:
				return dataset.WriteCSV(os.Stdout, result.Records)
			default:
				return fmt.Errorf("unknown format %q (expected csv or jsonl)", format)
			}
		},
	}

	cmd.Flags().StringP("format", "f", dataset.FormatJSONLines, "Output format: jsonl or csv")

	return cmd
}

func compoundsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compounds <file>",
		Short: "List the compounds declared by a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOutput, _ := cmd.Flags().GetBool("json")

			document, err := thermoml.ParseFile(args[0])
			if err != nil {
				return err
			}
			registry, err := compound.BuildRegistry(document)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			if jsonOutput {
				data, err := json.MarshalIndent(registry.Compounds(), "", "  ")
				if err != nil {
					return fmt.Errorf("failed to encode compounds: %w", err)
				}
				fmt.Println(string(data))
				return nil
			}

			fmt.Printf("%-6s %-30s %-15s %s\n", "REGNUM", "NAME", "FORMULA", "INCHI")
			fmt.Println(strings.Repeat("─", 90))
			for _, entry := range registry.Compounds() {
				inchi := "-"
				if entry.HasInChI {
					inchi = entry.InChI
				}
				fmt.Printf("%-6d %-30s %-15s %s\n",
					entry.RegNum, truncateString(entry.CommonName, 30), entry.Formula, inchi)
			}
			fmt.Printf("\nTotal: %d compounds\n", registry.Len())
			return nil
		},
	}

	cmd.Flags().Bool("json", false, "Print compounds as JSON")

	return cmd
}

func formulaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "formula <formula>",
		Short: "Count atoms in a molecular formula",
		Long: `Count the atoms in a molecular formula, optionally restricted to a set
of element symbols.

Example:
  thermoml formula C6H12O6
  thermoml formula C6H12O6 --elements C,O`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			elements, _ := cmd.Flags().GetStringSlice("elements")
			input := args[0]

			counts := formula.ElementCounts(input)
			symbols := make([]string, 0, len(counts))
			for symbol := range counts {
				symbols = append(symbols, symbol)
			}
			sort.Strings(symbols)

			fmt.Printf("Formula: %s\n", input)
			for _, symbol := range symbols {
				fmt.Printf("  %-3s %d\n", symbol, counts[symbol])
			}

			if len(elements) > 0 {
				fmt.Printf("Atoms in {%s}: %d\n", strings.Join(elements, ","), formula.CountAtomsInSet(input, elements))
			} else {
				fmt.Printf("Total atoms: %d\n", formula.CountAtoms(input))
			}
			return nil
		},
	}

	cmd.Flags().StringSlice("elements", nil, "Only count these element symbols (e.g. C,H)")

	return cmd
}

func summaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Summarize a built dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			top, _ := cmd.Flags().GetInt("top")
			jsonOutput, _ := cmd.Flags().GetBool("json")

			settings, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			records, err := dataset.Load(settings.ResolvedOutputDir())
			if err != nil {
				return err
			}
			summary := dataset.Summarize(records)

			if jsonOutput {
				data, err := json.MarshalIndent(summary, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to encode summary: %w", err)
				}
				fmt.Println(string(data))
				return nil
			}

			fmt.Print(dataset.FormatSummary(summary, top))
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", "", "Dataset directory (default: the archive directory)")
	cmd.Flags().Int("top", 10, "Rows to show per table (0 for all)")
	cmd.Flags().Bool("json", false, "Print the full summary as JSON")

	return cmd
}

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the manifest of the last build",
		RunE: func(cmd *cobra.Command, args []string) error {
			failedOnly, _ := cmd.Flags().GetBool("failed")

			settings, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			manifestPath := filepath.Join(settings.ResolvedOutputDir(), bulk.ManifestFilename)
			manifest, err := bulk.LoadManifest(manifestPath)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return fmt.Errorf("no build manifest at %s; run 'thermoml build' first", manifestPath)
				}
				return err
			}

			fmt.Print(bulk.FormatStatusReport(manifest, failedOnly))
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", "", "Dataset directory (default: the archive directory)")
	cmd.Flags().Bool("failed", false, "Only list files that failed")

	return cmd
}

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Extract documents as they arrive in the archive",
		Long: `Watch the archive directory and extract each new or rewritten ThermoML
document, appending its records to the dataset in the output directory.
Runs until interrupted.

Example:
  thermoml watch --path ~/thermoml-archive --format jsonl`,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cmd)
			outputDir := settings.ResolvedOutputDir()

			watcher := watch.New(watch.Config{
				Directory:     settings.ArchivePath,
				JournalPrefix: settings.JournalPrefix,
				Debounce:      settings.DebounceDuration(),
			}, func(result bulk.FileResult) {
				if result.Err != nil {
					fmt.Fprintf(os.Stderr, "  [FAIL] %s: %v\n", filepath.Base(result.Filename), result.Err)
					return
				}
				if _, err := dataset.Append(outputDir, settings.Format, result.Records, result.CompoundFormulas()); err != nil {
					fmt.Fprintf(os.Stderr, "  [FAIL] %s: %v\n", filepath.Base(result.Filename), err)
					return
				}
				fmt.Printf("  [OK]   %s (%d records)\n", filepath.Base(result.Filename), len(result.Records))
			}, logger)

			if err := watcher.Start(); err != nil {
				return err
			}

			fmt.Printf("Watching %s for %s*.xml (Ctrl-C to stop)...\n", settings.ArchivePath, settings.JournalPrefix)

			ctx, cancel := signalContext()
			defer cancel()
			<-ctx.Done()

			watcher.Stop()
			fmt.Println("\nStopped.")
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", "", "Output directory (default: the archive directory)")
	cmd.Flags().StringP("format", "f", dataset.FormatCSV, "Record format: csv or jsonl")
	cmd.Flags().Duration("debounce", config.DefaultDebounce, "Quiet period before a changed file is extracted")

	return cmd
}

func mirrorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mirror",
		Short: "Download and unpack a ThermoML archive",
		Long: `Download a published ThermoML archive (.tgz, .tar.gz, .zip, or a single
.xml document) and unpack its XML documents into the archive directory.

Example:
  thermoml mirror --url https://example.org/ThermoML.v2020-09-30.tgz`,
		RunE: func(cmd *cobra.Command, args []string) error {
			timeout, _ := cmd.Flags().GetDuration("timeout")

			settings, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if settings.MirrorURL == "" {
				return fmt.Errorf("--url flag or mirror_url config setting is required")
			}

			downloadConfig := bulk.DefaultDownloadConfig(settings.ArchivePath)
			downloadConfig.Timeout = timeout
			downloader, err := bulk.NewDownloader(downloadConfig, newLogger(cmd))
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			fmt.Printf("Mirroring %s into %s\n", settings.MirrorURL, settings.ArchivePath)
			startTime := time.Now()
			extracted, err := downloader.Mirror(ctx, settings.MirrorURL, bulk.PrintDownloadProgress)
			fmt.Println()
			if err != nil {
				return fmt.Errorf("mirror failed: %w", err)
			}

			fmt.Printf("Unpacked %d documents in %s\n", len(extracted), time.Since(startTime).Round(time.Second))
			fmt.Println("\nNext: thermoml build")
			return nil
		},
	}

	cmd.Flags().String("url", "", "Archive URL (overrides mirror_url from the config file)")
	cmd.Flags().Duration("timeout", 30*time.Minute, "HTTP timeout for the download")

	return cmd
}

func truncateString(inputStr string, maxLength int) string {
	if len(inputStr) <= maxLength {
		return inputStr
	}
	if maxLength <= 3 {
		return inputStr[:maxLength]
	}
	return inputStr[:maxLength-3] + "..."
}
