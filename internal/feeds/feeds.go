// Package feeds defines the network collaborator surface the controller
// consumes: an HTTP transport executing provider requests and a catalog
// feed parser producing typed entries. Both are interfaces so tests and
// alternative feed formats can plug in.
package feeds

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrlokans/circulation/internal/entities"
)

// ErrInvalidCredentials is returned when a provider answers 401.
var ErrInvalidCredentials = errors.New("provider rejected credentials")

// Request is the minimal HTTP request the core issues. Credentials, when
// present, are attached as basic auth (barcode/PIN) or a bearer token.
type Request struct {
	Method      string
	URL         string
	Credentials *entities.Credentials
}

// Response carries the parts of an HTTP response the core interprets.
type Response struct {
	Status int
	Body   []byte
}

// Transport executes requests against a provider. Implementations own
// retries, timeouts and byte-range handling; the core only interprets
// the status code and body.
type Transport interface {
	Execute(ctx context.Context, req Request) (*Response, error)
}

// Parser turns a catalog feed document into typed entries.
type Parser interface {
	Parse(data []byte) ([]entities.CatalogEntry, error)
}

// ParseError wraps a feed document the parser could not understand.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse catalog feed: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
