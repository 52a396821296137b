package marshal

import (
	"reflect"

	"go.uber.org/zap"

	"github.com/hostcl/clbridge/errors"
	"github.com/hostcl/clbridge/mem"
	"github.com/hostcl/clbridge/ptr"
)

// Release undoes a resolution after the native call has returned. The
// action is dispatched on the record's kind:
//
//   - native, direct: drop the retained owner reference.
//   - pinned array: unpin. Writes landed in place during the call, so
//     discardWrites is honored defensively but is normally a no-op.
//   - copied array: copy the temporary back into the managed slice unless
//     discardWrites is set, then free the temporary.
//   - pointer list: write each native slot back into the corresponding
//     managed child's handle (resetting its offset), materialize a wrapper
//     of the list's declared element type for nil slots whose native slot
//     became non-null, recursively release every non-nil child, and free
//     the native array.
//
// discardWrites is set for arguments the native call only reads, to avoid
// needless copy-back. Releasing the same record twice fails with
// already_released.
func (rv *Resolver) Release(r *Resolved, discardWrites bool) error {
	if r == nil {
		return nil
	}
	if r.released {
		return errors.AlreadyReleased(r.kind.String())
	}
	r.released = true

	switch r.kind {
	case KindNative, KindDirect:
		r.owner = nil
		return nil

	case KindPinnedArray, KindCopiedArray:
		r.pinned.Release(!discardWrites)
		r.owner = nil
		return nil

	case KindPointerList:
		return rv.releasePointerList(r, discardWrites)

	default:
		return errors.InvalidArgument(errors.PhaseRelease, "unknown resolution kind")
	}
}

func (rv *Resolver) releasePointerList(r *Resolved, discardWrites bool) error {
	p := r.owner.(*ptr.Pointer)
	v := reflect.ValueOf(p.Elements())
	arrAddr := uintptr(r.base)

	var firstErr error
	for i := 0; i < r.arrayLen; i++ {
		native := mem.ReadSlot(arrAddr, i)
		ev := v.Index(i)

		if !isNilValue(ev) {
			ev.Interface().(ptr.Object).SetNativeHandle(native)
			continue
		}
		if native == 0 {
			continue
		}

		// The managed slot was nil but the native call filled it in:
		// materialize a wrapper of the declared element type.
		obj, ok := rv.factory(v.Type().Elem())
		if !ok {
			if firstErr == nil {
				firstErr = errors.Materialize(v.Type().Elem().String(), i)
			}
			continue
		}
		obj.SetNativeHandle(native)
		ev.Set(reflect.ValueOf(obj))
	}

	// Children and the native array are freed even when writeback failed,
	// so the fault propagates without leaks.
	for _, c := range r.children {
		if c == nil {
			continue
		}
		if err := rv.Release(c, discardWrites); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	rv.alloc.Free(arrAddr, r.arrayLen*mem.SlotSize)
	r.owner = nil
	r.children = nil

	if firstErr != nil {
		rv.log.Warn("pointer list release failed", zap.Error(firstErr))
	}
	return firstErr
}
