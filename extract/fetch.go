package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/poiesic/syllabus/ingestion"
)

// FileFetcher copies media into the work directory.
// It accepts local paths, file:// URLs and http(s) URLs.
type FileFetcher struct {
	// Client performs http(s) downloads. Default is http.DefaultClient.
	Client *http.Client
}

var _ ingestion.MediaFetcher = FileFetcher{}

// Fetch copies sourceURL into dir and returns the local path.
func (f FileFetcher) Fetch(ctx context.Context, sourceURL, dir string) (string, error) {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return "", fmt.Errorf("invalid source url %q: %w", sourceURL, err)
	}

	switch u.Scheme {
	case "http", "https":
		dst := filepath.Join(dir, "source"+path.Ext(u.Path))
		return dst, f.download(ctx, sourceURL, dst)
	case "file":
		return copyLocal(u.Path, dir)
	case "":
		return copyLocal(sourceURL, dir)
	default:
		return "", fmt.Errorf("unsupported source url scheme %q", u.Scheme)
	}
}

func (f FileFetcher) download(ctx context.Context, sourceURL, dst string) error {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("download %s: status %d", sourceURL, resp.StatusCode)
	}
	return writeFile(dst, resp.Body)
}

func copyLocal(src, dir string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()
	dst := filepath.Join(dir, "source"+filepath.Ext(src))
	return dst, writeFile(dst, in)
}

func writeFile(dst string, r io.Reader) error {
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
