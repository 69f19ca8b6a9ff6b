package query

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ts4z/fanvest/request"
	"github.com/ts4z/fanvest/transport"
)

// JSONDecoder decodes a response body into a fresh *R.
func JSONDecoder[R any](endpoint string) DecodeFunc {
	return func(body []byte) (any, error) {
		r := new(R)
		if err := json.Unmarshal(body, r); err != nil {
			return nil, &transport.DecodeError{Endpoint: endpoint, Err: err}
		}
		return r, nil
	}
}

func typedBuild[A any](name string, build func(A) (*request.Request, error)) BuildFunc {
	return func(args any) (*request.Request, error) {
		v, ok := args.(A)
		if !ok {
			return nil, fmt.Errorf("%s: arguments are %T, want %T", name, args, v)
		}
		return build(v)
	}
}

// QueryEndpoint is a typed handle on a registered query taking A and
// returning *R.
type QueryEndpoint[A, R any] struct {
	name string
}

func DefineQuery[A, R any](reg *Registry, name string, build func(A) (*request.Request, error), provides TagRule) (*QueryEndpoint[A, R], error) {
	if err := reg.RegisterQuery(name, typedBuild(name, build), provides, WithDecoder(JSONDecoder[R](name))); err != nil {
		return nil, err
	}
	return &QueryEndpoint[A, R]{name: name}, nil
}

func (q *QueryEndpoint[A, R]) Name() string { return q.name }

func (q *QueryEndpoint[A, R]) Subscribe(e *Engine, args A) (*Subscription, error) {
	return e.Subscribe(q.name, args)
}

func (q *QueryEndpoint[A, R]) Peek(e *Engine, args A) (Snapshot, bool) {
	return e.Peek(q.name, args)
}

// Data extracts the typed payload from a snapshot of this endpoint.
func (q *QueryEndpoint[A, R]) Data(s Snapshot) (*R, bool) {
	r, ok := s.Data.(*R)
	return r, ok && r != nil
}

type MutationEndpoint[A, R any] struct {
	name string
}

func DefineMutation[A, R any](reg *Registry, name string, build func(A) (*request.Request, error), invalidates TagRule) (*MutationEndpoint[A, R], error) {
	if err := reg.RegisterMutation(name, typedBuild(name, build), invalidates, WithDecoder(JSONDecoder[R](name))); err != nil {
		return nil, err
	}
	return &MutationEndpoint[A, R]{name: name}, nil
}

func (m *MutationEndpoint[A, R]) Name() string { return m.name }

func (m *MutationEndpoint[A, R]) Call(ctx context.Context, e *Engine, args A) (*R, error) {
	v, err := e.Mutate(ctx, m.name, args)
	if err != nil {
		return nil, err
	}
	r, _ := v.(*R)
	return r, nil
}
