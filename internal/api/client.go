package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"epublift/internal/logging"
	"epublift/internal/transport"
)

// ErrUnauthorized marks a failed credential check against the profile
// endpoint.
var ErrUnauthorized = errors.New("invalid credentials")

const (
	convertFormat  = "epub3"
	convertVersion = "final"

	// bodySnippetLimit caps how much of an error response ends up in
	// error messages.
	bodySnippetLimit = 2048
)

// Client is the typed client for the conversion service, built on a
// pluggable Transport.
type Client struct {
	transport transport.Transport
	host      string
	logger    *slog.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithLogger attaches a logger for request-level debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logging.WithComponent(logger, "api")
		}
	}
}

// NewClient constructs a conversion service client for the given host.
func NewClient(t transport.Transport, host string, opts ...Option) *Client {
	client := &Client{
		transport: t,
		host:      strings.TrimRight(strings.TrimSpace(host), "/"),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// CheckCredentials verifies the configured token against the profile
// endpoint. Valid iff the response status is exactly 200; every other
// status maps to ErrUnauthorized.
func (c *Client) CheckCredentials(ctx context.Context) error {
	endpoint, err := url.JoinPath(c.host, "api", "profile")
	if err != nil {
		return fmt.Errorf("profile: build url: %w", err)
	}
	resp, err := c.transport.Do(ctx, transport.Request{Method: http.MethodGet, URL: endpoint})
	if err != nil {
		return fmt.Errorf("profile: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: profile returned %d", ErrUnauthorized, resp.StatusCode)
	}
	return nil
}

// CreateBook registers a new book and returns the identifiers of the
// book and its first bookflow.
func (c *Client) CreateBook(ctx context.Context, name string, meta Metadata) (Book, error) {
	payload := createBookRequest{
		Name:      name,
		Title:     meta.Title,
		Author:    meta.Author,
		ISBN:      meta.ISBN,
		Publisher: meta.Publisher,
	}
	var parsed createBookResponse
	if err := c.postJSON(ctx, &parsed, payload, "api", "books"); err != nil {
		return Book{}, fmt.Errorf("create book: %w", err)
	}
	if parsed.Book.ID == "" {
		return Book{}, errors.New("create book: response missing book id")
	}
	if len(parsed.Book.Bookflows) == 0 || parsed.Book.Bookflows[0].ID == "" {
		return Book{}, errors.New("create book: response missing bookflow id")
	}

	book := Book{ID: parsed.Book.ID, BookflowID: parsed.Book.Bookflows[0].ID}
	c.logger.Debug("book created",
		logging.String("book_id", book.ID),
		logging.String("bookflow_id", book.BookflowID))
	return book, nil
}

// DocumentPayload builds the upload envelope for a base64-encoded EPUB.
// skip_analysis is always true: the conversion preserves the original
// styling instead of applying semantic restructuring.
func DocumentPayload(filename, encoded string) ([]byte, error) {
	return json.Marshal(documentUpload{
		Filetype:     "epub",
		Filename:     filename,
		SkipAnalysis: true,
		File:         encoded,
	})
}

// UploadDocument posts a prepared document envelope to the bookflow.
func (c *Client) UploadDocument(ctx context.Context, bookflowID string, envelope []byte) error {
	endpoint, err := url.JoinPath(c.host, "api", "bookflows", bookflowID, "files", "document")
	if err != nil {
		return fmt.Errorf("upload document: build url: %w", err)
	}
	resp, err := c.transport.Do(ctx, transport.Request{
		Method:      http.MethodPost,
		URL:         endpoint,
		Body:        envelope,
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("upload document: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("upload document: http %d: %s", resp.StatusCode, snippet(resp.Body))
	}
	return nil
}

// BookflowStep fetches the bookflow's current ingest step. The value is
// never cached locally; callers re-fetch on every poll.
func (c *Client) BookflowStep(ctx context.Context, bookflowID string) (string, error) {
	var parsed bookflowResponse
	if err := c.getJSON(ctx, &parsed, "api", "bookflows", bookflowID); err != nil {
		return "", fmt.Errorf("bookflow status: %w", err)
	}
	if parsed.Bookflow.Step == "" {
		return "", errors.New("bookflow status: response missing step")
	}
	return parsed.Bookflow.Step, nil
}

// Convert triggers the EPUB3 conversion and returns the download URL.
func (c *Client) Convert(ctx context.Context, bookflowID string) (string, error) {
	payload := convertRequest{Format: convertFormat, Version: convertVersion}
	var parsed convertResponse
	if err := c.postJSON(ctx, &parsed, payload, "api", "bookflows", bookflowID, "convert"); err != nil {
		return "", fmt.Errorf("convert: %w", err)
	}
	if parsed.DownloadURL == "" {
		return "", errors.New("convert: response missing download_url")
	}
	return parsed.DownloadURL, nil
}

// ConversionStatus fetches the conversion state from the download
// descriptor's status sub-resource.
func (c *Client) ConversionStatus(ctx context.Context, downloadURL string) (string, error) {
	resp, err := c.transport.Do(ctx, transport.Request{
		Method: http.MethodGet,
		URL:    strings.TrimRight(downloadURL, "/") + "/status",
	})
	if err != nil {
		return "", fmt.Errorf("conversion status: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("conversion status: http %d: %s", resp.StatusCode, snippet(resp.Body))
	}
	var parsed conversionStatusResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return "", fmt.Errorf("conversion status: decode response: %w", err)
	}
	if parsed.Status == "" {
		return "", errors.New("conversion status: response missing status")
	}
	return parsed.Status, nil
}

// DownloadArtifact fetches the converted EPUB's raw bytes.
func (c *Client) DownloadArtifact(ctx context.Context, downloadURL string) ([]byte, error) {
	resp, err := c.transport.Do(ctx, transport.Request{Method: http.MethodGet, URL: downloadURL})
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("download: http %d: %s", resp.StatusCode, snippet(resp.Body))
	}
	return resp.Body, nil
}

// DeleteBook removes the remote book and all its files.
func (c *Client) DeleteBook(ctx context.Context, bookID string) error {
	endpoint, err := url.JoinPath(c.host, "api", "books", bookID)
	if err != nil {
		return fmt.Errorf("delete book: build url: %w", err)
	}
	resp, err := c.transport.Do(ctx, transport.Request{Method: http.MethodDelete, URL: endpoint})
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("delete book: http %d: %s", resp.StatusCode, snippet(resp.Body))
	}
	return nil
}

// ContinuationURL is the human-facing page for a retained bookflow.
func (c *Client) ContinuationURL(book Book) string {
	return fmt.Sprintf("%s/bookflow/%s/convert", c.host, book.BookflowID)
}

func (c *Client) postJSON(ctx context.Context, out any, payload any, elem ...string) error {
	endpoint, err := url.JoinPath(c.host, elem...)
	if err != nil {
		return fmt.Errorf("build url: %w", err)
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	resp, err := c.transport.Do(ctx, transport.Request{
		Method:      http.MethodPost,
		URL:         endpoint,
		Body:        encoded,
		ContentType: "application/json",
	})
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("http %d: %s", resp.StatusCode, snippet(resp.Body))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, out any, elem ...string) error {
	endpoint, err := url.JoinPath(c.host, elem...)
	if err != nil {
		return fmt.Errorf("build url: %w", err)
	}
	resp, err := c.transport.Do(ctx, transport.Request{Method: http.MethodGet, URL: endpoint})
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("http %d: %s", resp.StatusCode, snippet(resp.Body))
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func snippet(body []byte) string {
	if len(body) > bodySnippetLimit {
		body = body[:bodySnippetLimit]
	}
	return strings.TrimSpace(string(body))
}
