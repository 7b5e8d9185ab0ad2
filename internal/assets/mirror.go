package assets

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

// BlobStore is the storage backend a Mirror writes into.
type BlobStore interface {
	Exists(name string) bool
	Write(name string, data []byte) error
}

// Mirror copies remote binary assets into a BlobStore exactly once per
// filename. Download failures are logged and dropped, never fatal: a post
// simply loses that image reference.
type Mirror struct {
	store      BlobStore
	httpClient *http.Client
	logger     *slog.Logger
}

func New(store BlobStore, timeout time.Duration, logger *slog.Logger) *Mirror {
	return &Mirror{
		store: store,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger.With("component", "assets"),
	}
}

// Ensure makes the asset at remoteURL available locally and returns its
// blob filename. The filename is the lower-cased last path segment of the
// URL. If the blob already exists no network access happens. ok=false means
// the asset could not be resolved and the caller should proceed without it.
func (m *Mirror) Ensure(ctx context.Context, remoteURL string) (string, bool) {
	filename, err := Filename(remoteURL)
	if err != nil {
		m.logger.Warn("unusable asset url", "url", remoteURL, "error", err)
		return "", false
	}

	if m.store.Exists(filename) {
		m.logger.Info("image exists", "url", remoteURL, "filename", filename)
		return filename, true
	}

	data, err := m.download(ctx, remoteURL)
	if err != nil {
		m.logger.Warn("download image failed", "url", remoteURL, "error", err)
		return "", false
	}

	if err := m.store.Write(filename, data); err != nil {
		m.logger.Warn("store image failed", "filename", filename, "error", err)
		return "", false
	}

	m.logger.Info("downloaded image", "url", remoteURL, "filename", filename)
	return filename, true
}

// single attempt, no retry: a lost image is an accepted risk
func (m *Mirror) download(ctx context.Context, remoteURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remoteURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// Filename derives the deterministic local name for a remote asset URL: the
// lower-cased basename of its path. Collisions between distinct source
// files with the same basename are not detected.
func Filename(remoteURL string) (string, error) {
	u, err := url.Parse(remoteURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	name := strings.ToLower(path.Base(u.Path))
	if name == "" || name == "." || name == "/" {
		return "", fmt.Errorf("no filename in url path %q", u.Path)
	}

	return name, nil
}
