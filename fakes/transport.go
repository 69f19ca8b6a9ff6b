package fakes

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ts4z/fanvest/request"
	"github.com/ts4z/fanvest/transport"
)

// Handler answers one fake request.
type Handler func(req *request.Request) (*transport.Response, error)

// Transport is a deterministic transport.Transport.  It records every call,
// and when held, parks each call until Release lets it through, so tests can
// observe the loading state and overlap requests on purpose.
type Transport struct {
	mu      sync.Mutex
	handler Handler
	calls   []*request.Request
	held    bool

	gate    chan struct{}
	started chan *request.Request
}

var _ transport.Transport = (*Transport)(nil)

func NewTransport(h Handler) *Transport {
	return &Transport{
		handler: h,
		gate:    make(chan struct{}, 1024),
		started: make(chan *request.Request, 1024),
	}
}

// Hold parks subsequent calls until released.
func (t *Transport) Hold() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.held = true
}

// Release lets n parked (or future) calls proceed.
func (t *Transport) Release(n int) {
	for i := 0; i < n; i++ {
		t.gate <- struct{}{}
	}
}

func (t *Transport) SetHandler(h Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = h
}

// Started receives each request as its call begins.
func (t *Transport) Started() <-chan *request.Request {
	return t.started
}

func (t *Transport) Calls() []*request.Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*request.Request(nil), t.calls...)
}

func (t *Transport) CallCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.calls)
}

// CallsTo counts calls whose path is path.
func (t *Transport) CallsTo(path string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, c := range t.calls {
		if c.Path == path {
			n++
		}
	}
	return n
}

func (t *Transport) Do(ctx context.Context, req *request.Request) (*transport.Response, error) {
	req = req.Clone()
	t.mu.Lock()
	t.calls = append(t.calls, req)
	held := t.held
	t.mu.Unlock()

	t.started <- req

	if held {
		select {
		case <-t.gate:
		case <-ctx.Done():
			return nil, &transport.TransportError{Method: req.Method, URL: req.Path, Err: ctx.Err()}
		}
	}
	t.mu.Lock()
	h := t.handler
	t.mu.Unlock()
	if h == nil {
		return nil, &transport.HTTPError{Status: 404, Message: fmt.Sprintf("no fake handler for %s", req.Path)}
	}
	return h(req)
}

// JSON is a Handler result carrying v as a 200 response.
func JSON(v any) (*transport.Response, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &transport.Response{Status: 200, Body: b}, nil
}
