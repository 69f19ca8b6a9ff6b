/*
Package varz publishes expvar variables under the short name of the package
that declares them, so the query engine's cache hit counter shows up as
"query.cacheHits" in /debug/vars.

Importing varz imports expvar, which registers /debug/vars on
http.DefaultServeMux.
*/
package varz

import (
	"expvar"
	"path"
	"runtime"
	"sort"
	"strings"
)

// callerPackage returns the last element of the calling package's import
// path.  Called from a package-level var block the frame belongs to the
// package's init function, which the trailing-dot trim removes.
func callerPackage() string {
	pc, _, _, ok := runtime.Caller(2)
	if !ok {
		return "unknown"
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "unknown"
	}

	// github.com/ts4z/fanvest/query.init -> query
	n := path.Base(fn.Name())
	if dot := strings.IndexByte(n, '.'); dot != -1 {
		n = n[:dot]
	}
	return n
}

func NewInt(name string) *expvar.Int {
	return expvar.NewInt(callerPackage() + "." + name)
}

// Each calls f for every published variable whose name starts with
// prefix+".", in name order.
func Each(prefix string, f func(name, value string)) {
	var names []string
	expvar.Do(func(kv expvar.KeyValue) {
		if strings.HasPrefix(kv.Key, prefix+".") {
			names = append(names, kv.Key)
		}
	})
	sort.Strings(names)
	for _, n := range names {
		f(n, expvar.Get(n).String())
	}
}
