package bulk

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// ProgressCallback receives download progress. totalBytes is -1 when the
// server does not report a length.
type ProgressCallback func(bytesDownloaded int64, totalBytes int64)

// Downloader mirrors a published ThermoML archive into a local directory:
// it fetches the archive over HTTP and unpacks its XML documents flat into
// the archive directory, where DiscoverFiles picks them up.
type Downloader struct {
	config     DownloadConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// NewDownloader creates a Downloader with the given config.
// Initializes the archive directory.
func NewDownloader(config DownloadConfig, logger *slog.Logger) (*Downloader, error) {
	if err := os.MkdirAll(config.ArchiveDirectory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: config.Timeout,
			CheckRedirect: func(request *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Downloader{
		config:     config,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Mirror downloads the archive at archiveURL and unpacks it into the
// archive directory. The URL may name a .tgz, .tar.gz, .zip, or a single
// .xml document. Returns the XML files written.
func (downloader *Downloader) Mirror(ctx context.Context, archiveURL string, progressCallback ProgressCallback) ([]string, error) {
	parsedURL, err := url.Parse(archiveURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %s: %w", archiveURL, err)
	}
	archiveName := path.Base(parsedURL.Path)
	if archiveName == "" || archiveName == "/" || archiveName == "." {
		return nil, fmt.Errorf("URL %s does not name a file", archiveURL)
	}

	lowerName := strings.ToLower(archiveName)
	if IsXMLFile(archiveName) {
		localPath := filepath.Join(downloader.config.ArchiveDirectory, archiveName)
		if _, _, err := downloader.DownloadFile(ctx, archiveURL, localPath, progressCallback); err != nil {
			return nil, err
		}
		return []string{localPath}, nil
	}

	stagingDirectory := filepath.Join(downloader.config.ArchiveDirectory, ".download")
	localPath := filepath.Join(stagingDirectory, archiveName)
	bytesWritten, skipped, err := downloader.DownloadFile(ctx, archiveURL, localPath, progressCallback)
	if err != nil {
		return nil, err
	}
	downloader.logger.Info("archive downloaded",
		"url", archiveURL,
		"bytes", bytesWritten,
		"cached", skipped)

	var extractedPaths []string
	switch {
	case strings.HasSuffix(lowerName, ".tgz"), strings.HasSuffix(lowerName, ".tar.gz"):
		extractedPaths, err = ExtractTarGZ(localPath, downloader.config.ArchiveDirectory)
	case strings.HasSuffix(lowerName, ".zip"):
		extractedPaths, err = ExtractZIP(localPath, downloader.config.ArchiveDirectory)
	default:
		return nil, fmt.Errorf("unsupported archive format: %s", archiveName)
	}
	if err != nil {
		return extractedPaths, err
	}

	downloader.logger.Info("archive extracted",
		"directory", downloader.config.ArchiveDirectory,
		"documents", len(extractedPaths))
	return extractedPaths, nil
}

// DownloadFile fetches a URL to a local file path with progress reporting.
// Skips the download if the file already exists with non-zero size.
// Retries transient errors (5xx, timeouts) with exponential backoff.
func (downloader *Downloader) DownloadFile(ctx context.Context, downloadURL string, localPath string, progressCallback ProgressCallback) (int64, bool, error) {
	existingInfo, err := os.Stat(localPath)
	if err == nil && existingInfo.Size() > 0 {
		return existingInfo.Size(), true, nil
	}

	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return 0, false, fmt.Errorf("failed to create directory for %s: %w", localPath, err)
	}

	maxRetries := downloader.config.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}
	retryDelay := downloader.config.RetryBaseDelay
	if retryDelay <= 0 {
		retryDelay = 5 * time.Second
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			currentDelay := retryDelay * time.Duration(1<<uint(attempt-1))
			downloader.logger.Warn("retrying download",
				"url", downloadURL,
				"attempt", attempt+1,
				"delay", currentDelay,
				"error", lastErr)
			select {
			case <-ctx.Done():
				return 0, false, ctx.Err()
			case <-time.After(currentDelay):
			}
		}

		bytesWritten, err := downloader.downloadFileAttempt(ctx, downloadURL, localPath, progressCallback)
		if err == nil {
			return bytesWritten, false, nil
		}

		lastErr = err
		os.Remove(localPath)

		if !isRetryableError(err) {
			return 0, false, err
		}
	}

	return 0, false, fmt.Errorf("failed after %d attempts: %w", maxRetries, lastErr)
}

// downloadFileAttempt performs a single download attempt.
func (downloader *Downloader) downloadFileAttempt(ctx context.Context, downloadURL string, localPath string, progressCallback ProgressCallback) (int64, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("User-Agent", downloader.config.UserAgent)

	response, err := downloader.httpClient.Do(request)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch %s: %w", downloadURL, err)
	}
	defer response.Body.Close()

	if response.StatusCode >= 500 {
		return 0, &retryableHTTPError{StatusCode: response.StatusCode, URL: downloadURL}
	}
	if response.StatusCode >= 400 {
		return 0, fmt.Errorf("HTTP %d for %s", response.StatusCode, downloadURL)
	}

	outputFile, err := os.Create(localPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create file %s: %w", localPath, err)
	}
	defer outputFile.Close()

	totalBytes := response.ContentLength
	var bytesWritten int64

	buffer := make([]byte, 32*1024)
	for {
		bytesRead, readErr := response.Body.Read(buffer)
		if bytesRead > 0 {
			written, writeErr := outputFile.Write(buffer[:bytesRead])
			if writeErr != nil {
				return bytesWritten, fmt.Errorf("write error: %w", writeErr)
			}
			bytesWritten += int64(written)

			if progressCallback != nil {
				progressCallback(bytesWritten, totalBytes)
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				break
			}
			return bytesWritten, fmt.Errorf("read error: %w", readErr)
		}
	}

	return bytesWritten, nil
}

// retryableHTTPError represents an HTTP error that should trigger a retry.
type retryableHTTPError struct {
	StatusCode int
	URL        string
}

func (e *retryableHTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL)
}

// isRetryableError returns true if the error warrants a retry attempt.
func isRetryableError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var httpErr *retryableHTTPError
	if errors.As(err, &httpErr) {
		return true
	}
	errMsg := err.Error()
	retryablePatterns := []string{
		"connection reset",
		"connection refused",
		"timeout",
		"EOF",
		"broken pipe",
		"temporary failure",
	}
	for _, pattern := range retryablePatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}

// ExtractZIP writes every XML entry of a ZIP archive into targetDirectory,
// dropping the entry's directory. Returns the extracted file paths.
func ExtractZIP(zipPath string, targetDirectory string) ([]string, error) {
	zipReader, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open ZIP %s: %w", zipPath, err)
	}
	defer zipReader.Close()

	if err := os.MkdirAll(targetDirectory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create extraction directory: %w", err)
	}

	var extractedPaths []string

	for _, zipEntry := range zipReader.File {
		if zipEntry.FileInfo().IsDir() {
			continue
		}
		extractedPath, ok := flatXMLPath(targetDirectory, zipEntry.Name)
		if !ok {
			continue
		}

		entryReader, err := zipEntry.Open()
		if err != nil {
			return extractedPaths, fmt.Errorf("failed to open ZIP entry %s: %w", zipEntry.Name, err)
		}

		err = writeEntry(extractedPath, entryReader)
		entryReader.Close()
		if err != nil {
			return extractedPaths, fmt.Errorf("failed to extract %s: %w", zipEntry.Name, err)
		}

		extractedPaths = append(extractedPaths, extractedPath)
	}

	return extractedPaths, nil
}

// ExtractTarGZ writes every XML entry of a .tar.gz archive into
// targetDirectory, dropping the entry's directory. Returns the extracted
// file paths.
func ExtractTarGZ(tarGzPath string, targetDirectory string) ([]string, error) {
	archiveFile, err := os.Open(tarGzPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", tarGzPath, err)
	}
	defer archiveFile.Close()

	gzipReader, err := gzip.NewReader(archiveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	tarReader := tar.NewReader(gzipReader)

	if err := os.MkdirAll(targetDirectory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create extraction directory: %w", err)
	}

	var extractedPaths []string

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return extractedPaths, fmt.Errorf("tar read error: %w", err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}

		extractedPath, ok := flatXMLPath(targetDirectory, header.Name)
		if !ok {
			continue
		}

		if err := writeEntry(extractedPath, tarReader); err != nil {
			return extractedPaths, fmt.Errorf("failed to extract %s: %w", header.Name, err)
		}

		extractedPaths = append(extractedPaths, extractedPath)
	}

	return extractedPaths, nil
}

// flatXMLPath maps an archive entry name to its destination. Entries that
// are not XML documents are skipped.
func flatXMLPath(targetDirectory string, entryName string) (string, bool) {
	base := path.Base(strings.ReplaceAll(entryName, "\\", "/"))
	if base == "." || base == "/" || strings.HasPrefix(base, ".") {
		return "", false
	}
	if !IsXMLFile(base) {
		return "", false
	}
	return filepath.Join(targetDirectory, base), true
}

func writeEntry(extractedPath string, reader io.Reader) error {
	outputFile, err := os.Create(extractedPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(outputFile, reader); err != nil {
		outputFile.Close()
		return err
	}
	return outputFile.Close()
}
