package parts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/tendant/simple-mediasync/internal/img"
)

// Fetcher downloads item parts over HTTP into the local media directory,
// laid out as <baseDir>/<kind>/<itemID>/<part><ext>.
type Fetcher struct {
	client   *http.Client
	baseDir  string
	thumbBox int
}

func NewFetcher(baseDir string, requestTimeout time.Duration, thumbBox int) *Fetcher {
	return &Fetcher{
		client:   &http.Client{Timeout: requestTimeout},
		baseDir:  baseDir,
		thumbBox: thumbBox,
	}
}

// MissingSourceError means the sync request carried no URL for a pending
// part. The request is malformed, not the upstream.
type MissingSourceError struct{ Part string }

func (e MissingSourceError) Error() string {
	return fmt.Sprintf("no source url for part %q", e.Part)
}

// HTTPError reports a non-200 response from the upstream.
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("get %s: unexpected status %d", e.URL, e.StatusCode)
}

// Permanent reports whether retrying the same URL is pointless. Rate limits
// and request timeouts are the 4xx exceptions worth retrying.
func (e *HTTPError) Permanent() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500 &&
		e.StatusCode != http.StatusTooManyRequests &&
		e.StatusCode != http.StatusRequestTimeout
}

func (f *Fetcher) download(name string) func(context.Context, Item) error {
	return func(ctx context.Context, item Item) error {
		_, err := f.fetchPart(ctx, item, name)
		return err
	}
}

// downloadCover fetches the cover and renders its thumbnail next to it. The
// slot only succeeds once both exist; a corrupt image fails the attempt.
func (f *Fetcher) downloadCover(ctx context.Context, item Item) error {
	coverPath, err := f.fetchPart(ctx, item, "cover")
	if err != nil {
		return err
	}
	ext := filepath.Ext(coverPath)
	thumbPath := strings.TrimSuffix(coverPath, ext) + "_thumb" + ext
	if _, _, err := img.GenerateCoverThumb(coverPath, thumbPath, f.thumbBox, f.thumbBox); err != nil {
		return fmt.Errorf("cover thumbnail: %w", err)
	}
	return nil
}

func (f *Fetcher) fetchPart(ctx context.Context, item Item, name string) (string, error) {
	src := item.Parts[name]
	if src == "" {
		return "", MissingSourceError{Part: name}
	}

	ext := ""
	if u, err := url.Parse(src); err == nil {
		ext = path.Ext(u.Path)
	}
	dst := filepath.Join(f.baseDir, string(item.Kind), item.ID.String(), name+ext)
	if err := f.fetch(ctx, src, dst); err != nil {
		return "", err
	}
	return dst, nil
}

// fetch streams the URL into a temp file and renames it into place, so a
// half-written download never masquerades as a finished part.
func (f *Fetcher) fetch(ctx context.Context, srcURL, dstPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", srcURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &HTTPError{URL: srcURL, StatusCode: resp.StatusCode}
	}

	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	temp, err := os.CreateTemp(filepath.Dir(dstPath), ".part-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(temp, resp.Body); err != nil {
		temp.Close()
		os.Remove(temp.Name())
		return fmt.Errorf("copy body: %w", err)
	}
	if err := temp.Close(); err != nil {
		os.Remove(temp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(temp.Name(), dstPath); err != nil {
		os.Remove(temp.Name())
		return fmt.Errorf("move into place: %w", err)
	}
	return nil
}
