/*
Package request describes outgoing REST calls without performing them.

Everything here is a pure function of its inputs, so URL and parameter
construction can be tested without a network.
*/
package request

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Request is a transport-neutral description of one REST call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

func newRequest(method, path string) *Request {
	return &Request{
		Method: method,
		Path:   path,
		Query:  url.Values{},
		Header: http.Header{},
	}
}

func Get(path string) *Request  { return newRequest(http.MethodGet, path) }
func Put(path string) *Request  { return newRequest(http.MethodPut, path) }
func Post(path string) *Request { return newRequest(http.MethodPost, path) }

// Param sets a query parameter, replacing any previous value.
func (r *Request) Param(name, value string) *Request {
	r.Query.Set(name, value)
	return r
}

func (r *Request) IntParam(name string, value int) *Request {
	return r.Param(name, strconv.Itoa(value))
}

func (r *Request) SetHeader(name, value string) *Request {
	r.Header.Set(name, value)
	return r
}

// JSON marshals v as the request body and sets the content type.
func (r *Request) JSON(v any) (*Request, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("can't marshal request body: %w", err)
	}
	r.Body = b
	r.Header.Set("Content-Type", "application/json")
	return r, nil
}

// Clone returns a deep copy, so decorators can add headers without touching
// the original.
func (r *Request) Clone() *Request {
	c := &Request{
		Method: r.Method,
		Path:   r.Path,
		Query:  url.Values{},
		Header: r.Header.Clone(),
	}
	if c.Header == nil {
		c.Header = http.Header{}
	}
	for k, vs := range r.Query {
		c.Query[k] = append([]string(nil), vs...)
	}
	if r.Body != nil {
		c.Body = append([]byte(nil), r.Body...)
	}
	return c
}

// URL resolves the request against base.  The base path is kept, so a base of
// http://host/prefix and a path of /api/x yields http://host/prefix/api/x.
// Path is expected to be escaped already (see Path).  Query parameters are
// encoded in sorted key order.
func (r *Request) URL(base *url.URL) string {
	u := *base
	u.RawQuery = ""
	u.Fragment = ""
	s := strings.TrimSuffix(u.String(), "/") + "/" + strings.TrimPrefix(r.Path, "/")
	if q := r.Query.Encode(); q != "" {
		s += "?" + q
	}
	return s
}

// Path interpolates {name} placeholders in template.  kv alternates names and
// values.  Values are path-escaped.  A placeholder without a value, or a value
// without a placeholder, is an error.
func Path(template string, kv ...string) (string, error) {
	if len(kv)%2 != 0 {
		return "", fmt.Errorf("path %q: odd number of name/value arguments", template)
	}
	out := template
	for i := 0; i < len(kv); i += 2 {
		ph := "{" + kv[i] + "}"
		if !strings.Contains(out, ph) {
			return "", fmt.Errorf("path %q has no placeholder %s", template, ph)
		}
		if kv[i+1] == "" {
			return "", fmt.Errorf("path %q: empty value for %s", template, ph)
		}
		out = strings.ReplaceAll(out, ph, url.PathEscape(kv[i+1]))
	}
	if i := strings.IndexByte(out, '{'); i >= 0 {
		if j := strings.IndexByte(out[i:], '}'); j >= 0 {
			return "", fmt.Errorf("path %q: no value for %s", template, out[i:i+j+1])
		}
	}
	return out, nil
}
