/*
Package transport performs the network side of a request.request.

The query engine only sees the Transport interface, so tests substitute
fakes.Transport and production code uses HTTP.
*/
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ts4z/fanvest/request"
)

const (
	defaultTimeout = 30 * time.Second

	// Error bodies larger than this are truncated before we look for a message.
	maxErrorBody = 64 * 1024
)

// Response is a completed HTTP exchange with a 2xx status.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

type Transport interface {
	Do(ctx context.Context, req *request.Request) (*Response, error)
}

// HeaderDecorator runs before every outgoing request and may add headers.
// Returning an error aborts the request.
type HeaderDecorator func(ctx context.Context, h http.Header) error

// TokenSource supplies a bearer token.  An empty token means "anonymous".
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// BearerToken adds "Authorization: Bearer <token>" when src has a token.
func BearerToken(src TokenSource) HeaderDecorator {
	return func(ctx context.Context, h http.Header) error {
		tok, err := src.Token(ctx)
		if err != nil {
			return fmt.Errorf("can't read token: %w", err)
		}
		if tok != "" {
			h.Set("Authorization", "Bearer "+tok)
		}
		return nil
	}
}

type HTTP struct {
	base       *url.URL
	client     *http.Client
	decorators []HeaderDecorator
}

var _ Transport = (*HTTP)(nil)

type Option func(*HTTP)

func WithClient(c *http.Client) Option {
	return func(t *HTTP) { t.client = c }
}

func WithDecorator(d HeaderDecorator) Option {
	return func(t *HTTP) { t.decorators = append(t.decorators, d) }
}

// NewHTTP parses baseURL once; it is never re-read.
func NewHTTP(baseURL string, opts ...Option) (*HTTP, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("can't parse base URL %q: %w", baseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", baseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("can't create cookie jar: %w", err)
	}
	t := &HTTP{
		base:   base,
		client: &http.Client{Jar: jar, Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(t)
	}
	return t, nil
}

func (t *HTTP) BaseURL() string {
	return t.base.String()
}

func (t *HTTP) Do(ctx context.Context, req *request.Request) (*Response, error) {
	req = req.Clone()
	for _, d := range t.decorators {
		if err := d(ctx, req.Header); err != nil {
			return nil, &TransportError{Method: req.Method, URL: req.Path, Err: err}
		}
	}

	u := req.URL(t.base)
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	hr, err := http.NewRequestWithContext(ctx, req.Method, u, body)
	if err != nil {
		return nil, &TransportError{Method: req.Method, URL: u, Err: err}
	}
	hr.Header = req.Header
	if hr.Header.Get("Accept") == "" {
		hr.Header.Set("Accept", "application/json")
	}

	resp, err := t.client.Do(hr)
	if err != nil {
		return nil, &TransportError{Method: req.Method, URL: u, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		log.WithFields(log.Fields{"method": req.Method, "url": u, "status": resp.StatusCode}).Debug("transport: non-2xx response")
		return nil, &HTTPError{Status: resp.StatusCode, Message: errorMessage(b)}
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: req.Method, URL: u, Err: fmt.Errorf("reading body: %w", err)}
	}
	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: b}, nil
}

// errorMessage pulls "message" out of a JSON error body, falling back to the
// raw text.
func errorMessage(b []byte) string {
	var env struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(b, &env); err == nil && env.Message != "" {
		return env.Message
	}
	return string(bytes.TrimSpace(b))
}
