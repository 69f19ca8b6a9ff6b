package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ts4z/fanvest/request"
)

var (
	ErrDuplicateEndpoint = errors.New("duplicate endpoint")
	ErrRegistrySealed    = errors.New("registry is sealed")
	ErrUnknownEndpoint   = errors.New("unknown endpoint")
)

// DuplicateEndpointError is returned when a name is registered twice.  The
// first registration stays in place.
type DuplicateEndpointError struct {
	Name string
}

func (e *DuplicateEndpointError) Error() string {
	return fmt.Sprintf("endpoint %q already registered", e.Name)
}

func (e *DuplicateEndpointError) Is(target error) bool {
	return target == ErrDuplicateEndpoint
}

type Kind int

const (
	KindQuery Kind = iota
	KindMutation
)

func (k Kind) String() string {
	switch k {
	case KindQuery:
		return "query"
	case KindMutation:
		return "mutation"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

type BuildFunc func(args any) (*request.Request, error)

type DecodeFunc func(body []byte) (any, error)

type Endpoint struct {
	Name   string
	Kind   Kind
	Build  BuildFunc
	Decode DecodeFunc
	// Tags is what a query provides, or what a mutation invalidates.
	Tags TagRule
}

type EndpointOption func(*Endpoint)

func WithDecoder(d DecodeFunc) EndpointOption {
	return func(ep *Endpoint) { ep.Decode = d }
}

// rawDecoder keeps the body as json.RawMessage.
func rawDecoder(body []byte) (any, error) {
	return json.RawMessage(append([]byte(nil), body...)), nil
}

// Registry is the static table of endpoints.  It is filled at startup and
// sealed when an Engine is built on it.
type Registry struct {
	mu        sync.Mutex
	endpoints map[string]*Endpoint
	sealed    bool
}

func NewRegistry() *Registry {
	return &Registry{endpoints: make(map[string]*Endpoint)}
}

func (r *Registry) RegisterQuery(name string, build BuildFunc, provides TagRule, opts ...EndpointOption) error {
	return r.register(&Endpoint{Name: name, Kind: KindQuery, Build: build, Tags: provides}, opts)
}

func (r *Registry) RegisterMutation(name string, build BuildFunc, invalidates TagRule, opts ...EndpointOption) error {
	return r.register(&Endpoint{Name: name, Kind: KindMutation, Build: build, Tags: invalidates}, opts)
}

func (r *Registry) register(ep *Endpoint, opts []EndpointOption) error {
	for _, o := range opts {
		o(ep)
	}
	if ep.Name == "" {
		return fmt.Errorf("endpoint has no name")
	}
	if ep.Build == nil {
		return fmt.Errorf("endpoint %q has no request builder", ep.Name)
	}
	if ep.Decode == nil {
		ep.Decode = rawDecoder
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return fmt.Errorf("can't register %q: %w", ep.Name, ErrRegistrySealed)
	}
	if _, exists := r.endpoints[ep.Name]; exists {
		return &DuplicateEndpointError{Name: ep.Name}
	}
	r.endpoints[ep.Name] = ep
	return nil
}

func (r *Registry) Lookup(name string) (*Endpoint, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ep, ok := r.endpoints[name]
	return ep, ok
}

// Names lists registered endpoints in name order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.endpoints))
	for n := range r.endpoints {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

func (r *Registry) lookupKind(name string, want Kind) (*Endpoint, error) {
	ep, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEndpoint, name)
	}
	if ep.Kind != want {
		return nil, fmt.Errorf("endpoint %q is a %v, not a %v", name, ep.Kind, want)
	}
	return ep, nil
}
