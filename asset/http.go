package asset

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"net/url"

	"tilemosaic/pixmap"
	"tilemosaic/quant"
)

// HTTP fetches tiles from <BaseURL>/<key>.<ext>.
type HTTP struct {
	BaseURL string
	Ext     string
	Client  *http.Client
}

func (h *HTTP) Fetch(ctx context.Context, key quant.Key) (image.Image, error) {
	u, err := url.JoinPath(h.BaseURL, fileName(key, h.Ext))
	if err != nil {
		return nil, &FetchError{Key: key, Err: fmt.Errorf("invalid base URL %q: %w", h.BaseURL, err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &FetchError{Key: key, Err: err}
	}

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &FetchError{Key: key, Err: err}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Error("could not close tile response", "url", u, "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{Key: key, Err: fmt.Errorf("GET %s: %s", u, resp.Status)}
	}

	img, _, err := pixmap.Decode(resp.Body)
	if err != nil {
		return nil, &FetchError{Key: key, Err: fmt.Errorf("GET %s: %w", u, err)}
	}
	return img, nil
}
