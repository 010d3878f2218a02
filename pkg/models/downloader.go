package models

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"digital.vasic.nmt/internal/engineerr"
	"digital.vasic.nmt/internal/obslog"
)

const (
	maxDownloadAttempts = 3
	retryBackoff        = 2 * time.Second
	userAgent           = "digital.vasic.nmt/1.0"
)

// downloader fetches and verifies a single catalog file: an HTTP GET with
// tmp-file-then-rename semantics, followed by a SHA-256 checksum check.
type downloader struct {
	client  *http.Client
	limiter *rate.Limiter
	logger  obslog.Logger
}

func newDownloader(logger obslog.Logger) *downloader {
	return &downloader{
		client:  &http.Client{Timeout: 30 * time.Minute},
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		logger:  obslog.Or(logger),
	}
}

// fetch downloads record's attachment to destPath, retrying up to
// maxDownloadAttempts times with a fixed backoff, and verifies the
// SHA-256 checksum after every attempt, deleting and retrying on
// mismatch.
func (d *downloader) fetch(ctx context.Context, record ModelRecord, destPath string) error {
	var lastErr error
	for attempt := 1; attempt <= maxDownloadAttempts; attempt++ {
		if err := d.limiter.Wait(ctx); err != nil {
			return engineerr.Wrap(engineerr.Offline, "downloader.fetch", err)
		}

		if err := d.downloadOnce(ctx, record.Attachment.Location, destPath); err != nil {
			lastErr = err
			d.logger.Warn("download attempt failed", map[string]interface{}{
				"attempt": attempt, "file": record.Name, "error": err.Error(),
			})
			time.Sleep(retryBackoff)
			continue
		}

		sum, err := checksumFile(destPath)
		if err != nil {
			lastErr = err
			continue
		}
		if sum != record.Attachment.Hash {
			os.Remove(destPath)
			lastErr = engineerr.New(engineerr.ChecksumMismatch, "downloader.fetch",
				fmt.Sprintf("%s: got %s want %s", record.Name, sum, record.Attachment.Hash))
			continue
		}
		return nil
	}
	return lastErr
}

func (d *downloader) downloadOnce(ctx context.Context, url, destPath string) error {
	tmpPath := destPath + ".tmp"
	defer os.Remove(tmpPath)

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}

	out, err := os.Create(tmpPath)
	if err != nil {
		return err
	}
	defer out.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status: %s", resp.Status)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	return os.Rename(tmpPath, destPath)
}

func checksumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
