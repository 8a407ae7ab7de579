// Package jsonbin stores the tracker document in a JSON key-document store
// speaking the jsonbin.io v3 protocol:
//
//	GET <base>/<id>/latest  -> {"record": <document>, "metadata": {...}}
//	PUT <base>/<id>         <- <document>
package jsonbin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/etnz/tracker"
	"github.com/rs/zerolog"
)

// DefaultBaseURL is the jsonbin.io bins endpoint.
const DefaultBaseURL = "https://api.jsonbin.io/v3/b"

// Client implements tracker.Blob for one document.
type Client struct {
	baseURL   string
	binID     string
	masterKey string
	client    *http.Client
	log       zerolog.Logger
}

// NewClient creates a client for the bin binID. An empty baseURL is
// DefaultBaseURL.
func NewClient(baseURL, binID, masterKey string, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		binID:     binID,
		masterKey: masterKey,
		client:    &http.Client{Timeout: 15 * time.Second},
		log:       log.With().Str("client", "jsonbin").Logger(),
	}
}

// Get returns the latest version of the document.
func (c *Client) Get(ctx context.Context) ([]byte, error) {
	addr := fmt.Sprintf("%s/%s/latest", c.baseURL, url.PathEscape(c.binID))
	body, err := c.do(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return nil, err
	}
	var envelope struct {
		Record json.RawMessage `json:"record"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", tracker.ErrMalformedDocument, err)
	}
	return envelope.Record, nil
}

// Put replaces the document.
func (c *Client) Put(ctx context.Context, data []byte) error {
	addr := fmt.Sprintf("%s/%s", c.baseURL, url.PathEscape(c.binID))
	_, err := c.do(ctx, http.MethodPut, addr, data)
	return err
}

func (c *Client) do(ctx context.Context, method, addr string, data []byte) ([]byte, error) {
	var body io.Reader
	if data != nil {
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, addr, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Master-Key", c.masterKey)
	req.Header.Set("Accept", "application/json")
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", tracker.ErrRemoteUnreachable, err)
	}
	defer resp.Body.Close()
	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", tracker.ErrRemoteUnreachable, err)
	}
	c.log.Debug().Str("method", method).Int("status", resp.StatusCode).Msg("jsonbin")

	switch {
	case resp.StatusCode == http.StatusOK:
		return content, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: bin %s", tracker.ErrNotFound, c.binID)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, fmt.Errorf("%w: %s %s: %s: %s", tracker.ErrRemoteRejected, method, req.URL.Path, resp.Status, message(content))
	default:
		return nil, fmt.Errorf("%w: %s %s: %s", tracker.ErrRemoteUnreachable, method, req.URL.Path, resp.Status)
	}
}

// message extracts the {"message": "..."} of an error response.
func message(content []byte) string {
	var e struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(content, &e) == nil && e.Message != "" {
		return e.Message
	}
	return strings.TrimSpace(string(content))
}
