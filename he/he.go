// Package he turns handler errors into HTTP responses.
package he

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"
)

// HTTPError carries the status code a handler wants sent.
type HTTPError struct {
	code int
	err  error
}

func HTTPCodedErrorf(code int, f string, more ...any) *HTTPError {
	return &HTTPError{
		code: code,
		err:  fmt.Errorf(f, more...),
	}
}

func New(code int, err error) *HTTPError {
	return &HTTPError{
		code: code,
		err:  err,
	}
}

func (e *HTTPError) Error() string {
	return e.err.Error()
}

func (e *HTTPError) Unwrap() error {
	return e.err
}

func (e *HTTPError) Code() int {
	return e.code
}

// body is the shape every API error takes: the client reads "message".
type body struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// WriteJSON sends v with the given status.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Errorf("can't marshal response: %v", err)
		code = http.StatusInternalServerError
		b = []byte(`{"success":false,"message":"internal error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(b)
}

// SendErrorToHTTPClient sends err as a JSON error.  An HTTPError picks the
// status code; anything else is a 500 and it's on us.
func SendErrorToHTTPClient(w http.ResponseWriter, while string, err error) {
	code := http.StatusInternalServerError
	msg := fmt.Sprintf("can't %s: %v", while, err)
	var he *HTTPError
	if errors.As(err, &he) {
		code = he.code
		msg = he.err.Error()
	}
	if code >= 500 {
		log.Errorf("can't %s: %v", while, err)
	} else {
		log.Debugf("can't %s: %v", while, err)
	}
	WriteJSON(w, code, body{Success: false, Message: msg})
}
