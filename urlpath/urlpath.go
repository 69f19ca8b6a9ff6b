package urlpath

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ts4z/fanvest/he"
)

// PathValue extracts a non-empty path variable from the request.
func PathValue(r *http.Request, name string) (string, error) {
	v := strings.TrimSpace(r.PathValue(name))
	if v == "" {
		return "", he.HTTPCodedErrorf(http.StatusBadRequest, "missing %s in url path", name)
	}
	return v, nil
}

// IDPathValue extracts the "id" path variable and parses it.
func IDPathValue(r *http.Request) (int, error) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		return -1, he.HTTPCodedErrorf(http.StatusBadRequest, "can't parse id from url path: %v", err)
	}
	return id, nil
}

// IntQuery reads a positive integer query parameter, or def when absent.
func IntQuery(r *http.Request, name string, def, max int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, he.HTTPCodedErrorf(http.StatusBadRequest, "%s must be a positive integer, got %q", name, s)
	}
	if max > 0 && n > max {
		return 0, he.HTTPCodedErrorf(http.StatusBadRequest, "%s must be at most %d, got %d", name, max, n)
	}
	return n, nil
}
