// SPDX-License-Identifier: MPL-2.0

package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"qinstalltest/internal/engine"
)

const (
	httpRetries     = 3
	httpBackoff     = 2 * time.Second
	downloadTimeout = 10 * time.Minute
)

// Mappings fixes which release artifacts are fetched and where they land
// under the bundle directory. Scenario code depends on the destination
// names, so the mapping is code, not configuration.
var Mappings = []Mapping{
	{"amazon-q.appimage", "appimage", "amazon-q-developer-cli-x86_64.AppImage"},
	{"amazon-q.deb", "deb", "amazon-q-developer-cli_amd64.deb"},
	{"q-x86_64-linux.zip", "zip", "amazon-q-developer-cli-x86_64-linux.zip"},
	{"q-aarch64-linux.zip", "zip", "amazon-q-developer-cli-aarch64-linux.zip"},
	{"q-x86_64-linux-musl.zip", "zip", "amazon-q-developer-cli-x86_64-linux-musl.zip"},
	{"q-aarch64-linux-musl.zip", "zip", "amazon-q-developer-cli-aarch64-linux-musl.zip"},
}

type (
	// Mapping relates one source file name under the base URL to its
	// destination folder and file name under bundle/.
	Mapping struct {
		Source   string
		DestDir  string
		DestFile string
	}

	// DownloadError reports which artifacts could not be fetched.
	DownloadError struct {
		Failed []string
	}

	// Fetcher downloads the mapped artifacts into BundleDir.
	Fetcher struct {
		BundleDir string
		Client    *http.Client
		// RunCommand executes an external downloader (aws s3 cp);
		// injectable for tests.
		RunCommand func(ctx context.Context, name string, args ...string) error
		Logger     *log.Logger
	}
)

// Error implements the error interface.
func (e *DownloadError) Error() string {
	return fmt.Sprintf("%d download(s) failed: %s", len(e.Failed), strings.Join(e.Failed, ", "))
}

// New returns a Fetcher writing under bundleDir.
func New(bundleDir string) *Fetcher {
	return &Fetcher{
		BundleDir: bundleDir,
		Client:    &http.Client{Timeout: downloadTimeout},
		RunCommand: func(ctx context.Context, name string, args ...string) error {
			cmd := exec.CommandContext(ctx, name, args...)
			cmd.Stdout = os.Stderr
			cmd.Stderr = os.Stderr
			return cmd.Run()
		},
		Logger: log.NewWithOptions(os.Stderr, log.Options{Prefix: "fetch"}),
	}
}

// Fetch cleans the destination directories and downloads every mapped
// artifact from baseURL, which is either an http(s) base URL or an
// s3:// prefix. AppImage files are made executable. Individual failures
// do not stop the remaining downloads; a DownloadError is returned when
// any artifact could not be fetched.
func (f *Fetcher) Fetch(ctx context.Context, baseURL string) error {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	isS3 := strings.HasPrefix(baseURL, "s3://")

	if err := f.cleanDestDirs(); err != nil {
		return err
	}

	var downloaded, failed []string
	for _, m := range Mappings {
		source := baseURL + m.Source
		dest := filepath.Join(f.BundleDir, m.DestDir, m.DestFile)
		f.Logger.Info("downloading", "source", source, "dest", dest)

		var err error
		if isS3 {
			err = f.RunCommand(ctx, "aws", "s3", "cp", source, dest)
		} else {
			err = f.downloadHTTP(ctx, source, dest)
		}
		if err != nil {
			f.Logger.Error("download failed", "source", source, "error", err)
			failed = append(failed, m.Source)
			continue
		}

		if filepath.Ext(dest) == ".AppImage" {
			if err := os.Chmod(dest, 0o755); err != nil {
				f.Logger.Error("could not make AppImage executable", "dest", dest, "error", err)
				failed = append(failed, m.Source)
				continue
			}
		}
		downloaded = append(downloaded, dest)
	}

	f.printSummary(downloaded, len(failed))

	if len(failed) > 0 {
		return &DownloadError{Failed: failed}
	}
	return nil
}

// cleanDestDirs empties and recreates each destination folder so stale
// artifacts from a previous release cannot leak into a run.
func (f *Fetcher) cleanDestDirs() error {
	seen := map[string]bool{}
	for _, m := range Mappings {
		if seen[m.DestDir] {
			continue
		}
		seen[m.DestDir] = true

		dir := filepath.Join(f.BundleDir, m.DestDir)
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to clean %s: %w", dir, err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// downloadHTTP fetches url into dest, retrying transient failures. The
// body streams straight to disk; a non-2xx response is an error, and
// server-side (5xx) responses are considered retryable.
func (f *Fetcher) downloadHTTP(ctx context.Context, url, dest string) error {
	return engine.RetryWithBackoff(ctx, httpRetries, httpBackoff, func(attempt int) (bool, error) {
		err := f.downloadOnce(ctx, url, dest)
		if err == nil {
			return false, nil
		}
		if engine.IsTransientError(err) || isRetryableStatus(err) {
			f.Logger.Warn("transient download failure, retrying", "url", url, "attempt", attempt+1, "error", err)
			return true, err
		}
		return false, err
	})
}

func (f *Fetcher) downloadOnce(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &httpStatusError{URL: url, StatusCode: resp.StatusCode}
	}

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(dest)
		return err
	}
	return out.Close()
}

type httpStatusError struct {
	URL        string
	StatusCode int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

func isRetryableStatus(err error) bool {
	se, ok := err.(*httpStatusError)
	return ok && se.StatusCode >= 500
}

func (f *Fetcher) printSummary(downloaded []string, failures int) {
	fmt.Fprintln(os.Stderr, "\nDownload Summary:")
	fmt.Fprintf(os.Stderr, "  Successfully downloaded: %d files\n", len(downloaded))
	fmt.Fprintf(os.Stderr, "  Failed downloads: %d files\n", failures)

	if len(downloaded) == 0 {
		return
	}
	fmt.Fprintln(os.Stderr, "\nDownloaded files:")
	for _, path := range downloaded {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		fmt.Fprintf(os.Stderr, "  %s (%.1f MB)\n", path, float64(info.Size())/(1024*1024))
	}
}
