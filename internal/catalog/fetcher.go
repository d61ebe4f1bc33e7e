package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// DefaultURL is CelesTrak's visual-satellite group.
const DefaultURL = "https://celestrak.org/NORAD/elements/gp.php?GROUP=visual&FORMAT=tle"

// EmbeddedVisual names the snapshot of the visual group compiled into the
// binary. It works offline and gives tests a fixed catalog.
const EmbeddedVisual = "embedded:visual"

// MaxBodyBytes caps how much of a catalog response is read.
const MaxBodyBytes = 50 << 20

//go:embed visual_tle.txt
var embeddedVisual []byte

// Fetcher retrieves raw catalog text over HTTP(S), from disk, or from the
// embedded snapshot.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewFetcher returns a Fetcher whose HTTP requests give up after timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		client:   &http.Client{Timeout: timeout},
		maxBytes: MaxBodyBytes,
	}
}

// Fetch returns the raw bytes behind src.
func (f *Fetcher) Fetch(ctx context.Context, src string) ([]byte, error) {
	src = strings.TrimSpace(src)
	switch {
	case src == "":
		return nil, fmt.Errorf("%w: empty catalog source", ErrUnavailable)
	case src == EmbeddedVisual:
		return embeddedVisual, nil
	case strings.HasPrefix(src, "embedded:"):
		return nil, fmt.Errorf("%w: unknown embedded catalog %q", ErrUnavailable, src)
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		return f.fetchHTTP(ctx, src)
	case strings.HasPrefix(src, "file://"):
		u, err := url.Parse(src)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return f.readFile(u.Path)
	default:
		return f.readFile(src)
	}
}

func (f *Fetcher) fetchHTTP(ctx context.Context, src string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %w", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned HTTP %d", ErrUnavailable, src, resp.StatusCode)
	}

	return f.readLimited(resp.Body, src)
}

func (f *Fetcher) readFile(path string) ([]byte, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer fh.Close()
	return f.readLimited(fh, path)
}

func (f *Fetcher) readLimited(r io.Reader, src string) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrUnavailable, src, err)
	}
	if int64(len(b)) > f.maxBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d byte limit", ErrUnavailable, src, f.maxBytes)
	}
	return b, nil
}
