package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mrlokans/circulation/internal/entities"
)

const defaultTimeout = 30 * time.Second

// HTTPTransport is the default Transport over net/http.
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport creates a transport with a sane default timeout.
func NewHTTPTransport() *HTTPTransport {
	return &HTTPTransport{
		client: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// Execute performs the request and returns the status and full body.
// Non-2xx statuses are not errors here; the caller interprets them.
func (t *HTTPTransport) Execute(ctx context.Context, req Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c := req.Credentials; c != nil {
		if c.Token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+c.Token)
		} else {
			httpReq.SetBasicAuth(c.Barcode, c.PIN)
		}
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return &Response{Status: resp.StatusCode, Body: body}, nil
}

// JSONFeedParser parses catalog feeds published as a JSON array of
// entries. Entries missing an identity are rejected so reconciliation
// keys stay stable.
type JSONFeedParser struct{}

// NewJSONFeedParser creates the default parser.
func NewJSONFeedParser() *JSONFeedParser {
	return &JSONFeedParser{}
}

// Parse decodes the feed body into catalog entries.
func (p *JSONFeedParser) Parse(data []byte) ([]entities.CatalogEntry, error) {
	var entries []entities.CatalogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, &ParseError{Err: err}
	}
	for i, entry := range entries {
		if entry.ID == "" {
			return nil, &ParseError{Err: fmt.Errorf("entry %d has no id", i)}
		}
	}
	return entries, nil
}
