package transport

import (
	"context"
)

// UserAgent identifies epublift to the conversion service.
const UserAgent = "epublift/0.1.0"

// Request describes one HTTP exchange against the conversion service.
// URL is always absolute; the API client joins paths onto the host.
type Request struct {
	Method      string
	URL         string
	Body        []byte
	ContentType string
}

// Response carries the status code and the raw body bytes. Bodies are
// returned verbatim so binary downloads survive untouched.
type Response struct {
	StatusCode int
	Body       []byte
}

// Transport executes authenticated requests against the conversion
// service. Every request uses HTTP basic auth with the API token as the
// username and an empty password. Implementations must behave
// identically for any given request: same status-code semantics, same
// auth scheme, byte-for-byte body preservation.
type Transport interface {
	Name() string
	Do(ctx context.Context, req Request) (Response, error)
}
