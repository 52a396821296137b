package marshal

import (
	"reflect"

	"github.com/hostcl/clbridge/ptr"
)

// Handles flattens a managed list of handle-carrying objects into a native
// handle array of exactly declaredCount slots, the count the caller intends
// to pass to the native API.
//
// The declared count is authoritative: a shorter managed list leaves the
// excess native slots zero-filled, a longer one has its excess entries
// ignored, and nil entries map to zero slots, never an error.
func Handles[T ptr.Object](list []T, declaredCount int) []uint64 {
	if declaredCount < 0 {
		declaredCount = 0
	}
	out := make([]uint64, declaredCount)

	n := declaredCount
	if len(list) < n {
		n = len(list)
	}
	for i := 0; i < n; i++ {
		if isNilElem(list[i]) {
			continue
		}
		out[i] = list[i].NativeHandle()
	}
	return out
}

func isNilElem(obj ptr.Object) bool {
	if obj == nil {
		return true
	}
	v := reflect.ValueOf(obj)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
