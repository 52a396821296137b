package marshal

import (
	"reflect"

	"go.uber.org/zap"

	clbridge "github.com/hostcl/clbridge"
	"github.com/hostcl/clbridge/errors"
	"github.com/hostcl/clbridge/mem"
	"github.com/hostcl/clbridge/ptr"
)

// Factory materializes a fresh wrapper object for an indirection-list slot
// whose managed element was nil but whose native slot became non-null. It
// receives the list's declared element type and reports false when it
// cannot produce an instance of that type.
type Factory func(elem reflect.Type) (ptr.Object, bool)

// DefaultFactory constructs pointer-to-struct wrappers (e.g. *cl.Mem) via
// reflection. Interface-typed element lists need a custom Factory.
func DefaultFactory(elem reflect.Type) (ptr.Object, bool) {
	if elem.Kind() != reflect.Pointer || elem.Elem().Kind() != reflect.Struct {
		return nil, false
	}
	obj, ok := reflect.New(elem.Elem()).Interface().(ptr.Object)
	return obj, ok
}

// Resolver turns managed pointer-like objects into native addresses and
// back. It is safe for concurrent use as long as its Allocator and Pinner
// are.
type Resolver struct {
	alloc   clbridge.Allocator
	pinner  mem.Pinner
	factory Factory
	log     *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithFactory overrides the wrapper materialization strategy.
func WithFactory(f Factory) Option {
	return func(r *Resolver) { r.factory = f }
}

// WithLogger sets the resolver's logger.
func WithLogger(log *zap.Logger) Option {
	return func(r *Resolver) { r.log = log }
}

// NewResolver creates a resolver over the given allocator and pinner.
func NewResolver(alloc clbridge.Allocator, pinner mem.Pinner, opts ...Option) *Resolver {
	r := &Resolver{
		alloc:   alloc,
		pinner:  pinner,
		factory: DefaultFactory,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve produces the native address for a managed pointer-like object.
//
// A nil object resolves to a zero address with kind native and no release
// obligation. Otherwise resolution is tried in strict priority order, first
// match wins: a non-zero native handle; an indirection list; a direct
// buffer; a slice-backed buffer (pinned in place or staged through a
// temporary copy, whichever the pinner produced). An object whose buffer is
// neither direct nor slice-backed fails with invalid_argument.
//
// Resolution retains the source object on the record for the duration of
// the call, so a concurrent collector cannot invalidate the address.
func (rv *Resolver) Resolve(obj ptr.Object) (*Resolved, error) {
	if isNilObject(obj) {
		return &Resolved{kind: KindNative}, nil
	}

	r := &Resolved{owner: obj, kind: KindNative}
	offset := obj.ByteOffset()

	if h := obj.NativeHandle(); h != 0 {
		r.base = h
		r.addr = effective(h, offset)
		rv.log.Debug("resolved native handle",
			zap.Uint64("handle", h), zap.Int64("offset", offset))
		return r, nil
	}

	p, isPointer := obj.(*ptr.Pointer)
	if !isPointer {
		// A bare wrapper with a zero handle: null native value.
		return r, nil
	}

	if p.Elements() != nil {
		if err := rv.resolvePointerList(r, p, offset); err != nil {
			return nil, err
		}
		return r, nil
	}

	buf := p.Backing()
	if buf == nil {
		return r, nil
	}

	switch b := buf.(type) {
	case *ptr.DirectBuffer:
		if b.Addr() == 0 {
			return nil, errors.InvalidArgument(errors.PhaseResolve,
				"failed to obtain direct buffer address")
		}
		r.kind = KindDirect
		r.base = uint64(b.Addr())

	case *ptr.SliceBuffer:
		pinned, err := rv.pinner.Pin(b.Bytes())
		if err != nil {
			return nil, err
		}
		r.pinned = pinned
		r.base = uint64(pinned.Addr)
		if pinned.Copied {
			r.kind = KindCopiedArray
		} else {
			r.kind = KindPinnedArray
		}

	default:
		return nil, errors.InvalidArgument(errors.PhaseResolve,
			"buffer is neither direct nor slice-backed")
	}

	r.addr = effective(r.base, offset)
	rv.log.Debug("resolved buffer",
		zap.Stringer("kind", r.kind), zap.Uint64("base", r.base))
	return r, nil
}

// resolvePointerList recursively resolves each element of an indirection
// list and builds the contiguous native array of the children's base
// addresses. Partially resolved children are released and the array freed
// if any element fails.
func (rv *Resolver) resolvePointerList(r *Resolved, p *ptr.Pointer, offset int64) error {
	v := reflect.ValueOf(p.Elements())
	if v.Kind() != reflect.Slice {
		return errors.InvalidArgument(errors.PhaseResolve,
			"indirection list is not a slice")
	}

	n := v.Len()
	arrAddr, err := rv.alloc.Alloc(n * mem.SlotSize)
	if err != nil {
		return errors.AllocationFailed(errors.PhaseResolve, n*mem.SlotSize, err)
	}

	children := make([]*Resolved, n)
	for i := 0; i < n; i++ {
		ev := v.Index(i)
		if isNilValue(ev) {
			mem.WriteSlot(uintptr(arrAddr), i, 0)
			continue
		}

		child, ok := ev.Interface().(ptr.Object)
		if !ok {
			rv.abandonList(children, arrAddr, n)
			return errors.InvalidArgument(errors.PhaseResolve,
				"indirection list element does not carry a native handle")
		}

		cr, err := rv.Resolve(child)
		if err != nil {
			rv.abandonList(children, arrAddr, n)
			return err
		}
		children[i] = cr
		mem.WriteSlot(uintptr(arrAddr), i, cr.base)
	}

	r.kind = KindPointerList
	r.children = children
	r.arrayLen = n
	r.base = uint64(arrAddr)
	r.addr = effective(r.base, offset)
	return nil
}

// abandonList undoes a partially built pointer list on the error path so
// the fault propagates without leaks.
func (rv *Resolver) abandonList(children []*Resolved, arrAddr uintptr, n int) {
	for _, c := range children {
		if c != nil && !c.released {
			if err := rv.Release(c, true); err != nil {
				rv.log.Warn("release of partially resolved child failed",
					zap.Error(err))
			}
		}
	}
	rv.alloc.Free(arrAddr, n*mem.SlotSize)
}

func effective(base uint64, offset int64) uint64 {
	return uint64(int64(base) + offset)
}

func isNilObject(obj ptr.Object) bool {
	if obj == nil {
		return true
	}
	v := reflect.ValueOf(obj)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

func isNilValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		return v.IsNil()
	default:
		return false
	}
}
