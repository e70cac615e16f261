package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/h2non/filetype"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ErrNotImage is returned when fetched bytes are not a known image type.
var ErrNotImage = errors.New("loader: not an image")

// maxAssetBytes bounds a single fetched asset.
const maxAssetBytes = 64 << 20

// Fetcher resolves a slide's media locator to raw bytes.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// FileFetcher reads plain paths and file:// URLs.
type FileFetcher struct{}

func (FileFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(strings.TrimPrefix(ref, "file://"))
}

// HTTPFetcher GETs http(s) URLs.
type HTTPFetcher struct {
	Client *http.Client
}

func (f HTTPFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	c := f.Client
	if c == nil {
		c = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("loader: GET %s: %s", ref, resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxAssetBytes))
}

// Router picks a fetcher by scheme.
type Router struct {
	File Fetcher
	HTTP Fetcher
}

// DefaultFetcher handles paths, file:// and http(s)://.
func DefaultFetcher() Router {
	return Router{File: FileFetcher{}, HTTP: HTTPFetcher{}}
}

func (r Router) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return r.HTTP.Fetch(ctx, ref)
	}
	return r.File.Fetch(ctx, ref)
}

// Decode sniffs the content type and decodes the image.
func Decode(data []byte) (image.Image, error) {
	kind, err := filetype.Image(data)
	if err != nil || kind == filetype.Unknown {
		return nil, ErrNotImage
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("loader: decode %s: %w", kind.Extension, err)
	}
	return img, nil
}
