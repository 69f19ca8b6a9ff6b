/*
Package dep checks constructor dependencies.  A missing dependency is a
wiring bug, so it panics at startup rather than failing on first use.
*/
package dep

import (
	"fmt"
	"reflect"
	"runtime"
)

// Required returns t, or panics naming the caller if t is nil (including a
// typed nil pointer inside an interface).
func Required[T any](t T) T {
	v := reflect.ValueOf(t)
	if v.IsValid() && !(isNillable(v.Kind()) && v.IsNil()) {
		return t
	}
	pc, file, line, ok := runtime.Caller(1)
	if !ok {
		panic(fmt.Sprintf("missing required dependency of type %T", t))
	}
	if fn := runtime.FuncForPC(pc); fn != nil {
		panic(fmt.Sprintf("missing required %T in %s (%s:%d)", t, fn.Name(), file, line))
	}
	panic(fmt.Sprintf("missing required %T (%s:%d)", t, file, line))
}

func isNillable(k reflect.Kind) bool {
	switch k {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return true
	}
	return false
}
