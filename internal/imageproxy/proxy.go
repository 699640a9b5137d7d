// Package imageproxy fetches remote images on behalf of the browser.
//
// The export path and the front-end both need image bytes from hosts that
// refuse cross-origin reads; routing the fetch through the server bypasses
// that restriction. Only http(s) URLs are accepted.
package imageproxy

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxImageBytes bounds a single proxied image.
const maxImageBytes = 16 << 20

// Fetcher retrieves image bytes from remote hosts.
type Fetcher struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewFetcher creates an image fetcher.
func NewFetcher(timeout time.Duration, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Fetch downloads one image. It returns the bytes, the content type, and
// a file extension (without dot) suitable for workbook embedding.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (data []byte, contentType, ext string, err error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", "", fmt.Errorf("parse image url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, "", "", fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", "", fmt.Errorf("build image request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, "", "", fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", "", fmt.Errorf("image host returned status %d", resp.StatusCode)
	}

	data, err = io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, "", "", fmt.Errorf("read image body: %w", err)
	}

	contentType = resp.Header.Get("Content-Type")
	return data, contentType, extensionFor(contentType), nil
}

// extensionFor maps a content type to a workbook image extension.
// Unknown types default to png, matching the original export behavior.
func extensionFor(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "png"
	}
	switch mediaType {
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/gif":
		return "gif"
	case "image/png":
		return "png"
	}
	if rest, ok := strings.CutPrefix(mediaType, "image/"); ok && rest != "" {
		return rest
	}
	return "png"
}
