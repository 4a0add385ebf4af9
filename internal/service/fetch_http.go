package service

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// IsHTTPSource reports whether the input reference is an http(s) URL rather
// than a local path.
func IsHTTPSource(input string) bool {
	u, err := url.Parse(input)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https")
}

// FetchHTTP downloads a source extract over HTTP(S) into destDir and returns
// the local path. Large extracts can be slow, hence the generous timeout and
// retries.
func FetchHTTP(ctx context.Context, rawURL, destDir string, logger *zap.Logger) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse source url: %w", err)
	}
	filename := path.Base(u.Path)
	if filename == "" || filename == "/" || filename == "." {
		filename = "hospital_capacity_raw.csv"
	}
	localPath := filepath.Join(destDir, filename)

	client := resty.New().
		SetTimeout(5 * time.Minute).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second)

	logger.Info("downloading source file", zap.String("url", rawURL), zap.String("dest", localPath))
	resp, err := client.R().SetContext(ctx).SetOutput(localPath).Get(rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", rawURL, err)
	}
	if resp.IsError() {
		_ = os.Remove(localPath)
		return "", fmt.Errorf("failed to download %s: status %d", rawURL, resp.StatusCode())
	}
	return localPath, nil
}
