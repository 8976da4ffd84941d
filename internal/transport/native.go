package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Native executes requests with the Go HTTP client.
type Native struct {
	token  string
	client *http.Client
}

// NewNative constructs the net/http backend.
func NewNative(token string, timeout time.Duration) *Native {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Native{
		token:  token,
		client: &http.Client{Timeout: timeout},
	}
}

func (n *Native) Name() string { return "native" }

func (n *Native) Do(ctx context.Context, req Request) (Response, error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return Response{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.SetBasicAuth(n.token, "")
	httpReq.Header.Set("User-Agent", UserAgent)
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}

	resp, err := n.client.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("%s %s: %w", req.Method, req.URL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("read response body: %w", err)
	}
	return Response{StatusCode: resp.StatusCode, Body: data}, nil
}
