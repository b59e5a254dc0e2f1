package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPProtocol fetches a location over http(s). Path is the full URL
// (scheme included), matching how the "http://" / "https://" location
// prefixes are stitched back together by callers.
type HTTPProtocol struct {
	Client  *http.Client
	Headers map[string]string
}

// NewHTTPProtocol returns an HTTPProtocol with a bounded default timeout.
func NewHTTPProtocol(headers map[string]string) *HTTPProtocol {
	return &HTTPProtocol{
		Client:  &http.Client{Timeout: 10 * time.Second},
		Headers: headers,
	}
}

func (p *HTTPProtocol) Fetch(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %q: %w", path, err)
	}
	for k, v := range p.Headers {
		req.Header.Set(k, v)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %q: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: %q returned %d", ErrUnauthorized, path, resp.StatusCode)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %q: unexpected status %d", path, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body for %q: %w", path, err)
	}
	return body, nil
}
