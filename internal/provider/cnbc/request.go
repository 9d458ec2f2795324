package cnbc

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
)

// BuildURL appends the comma-joined symbols to base. An empty batch
// leaves base untouched.
func BuildURL(base string, symbols []string) string {
	return base + strings.Join(symbols, ",")
}

// RequestBatch fetches the quotes page for one batch and returns its body.
// Failures are returned as-is; there is no retry.
func (c *Client) RequestBatch(ctx context.Context, symbols []string) (string, error) {
	url := BuildURL(c.baseURL, symbols)
	log.Printf("Submitting and retrieving: %s", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.header.Clone()

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 2<<10))
		return "", fmt.Errorf("GET %s -> %d: %s", url, res.StatusCode, strings.TrimSpace(string(b)))
	}

	b, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("reading body: %w", err)
	}
	return string(b), nil
}
