package callback

import (
	"sync"

	"go.uber.org/zap"
)

// Registration durably retains a managed callback and its user-data across
// native calls. Its lifetime matches the owning native resource, not the
// garbage collector: it is created when the resource is constructed with a
// callback and dropped when the resource is released.
type Registration struct {
	notify   any
	userData any
}

// Notify returns the retained managed callback object.
func (r *Registration) Notify() any { return r.notify }

// UserData returns the retained user-data.
func (r *Registration) UserData() any { return r.userData }

// Registry maps a native resource handle to its callback registration.
// It is process-wide state by role but is injected into the components
// that need it, never reached through a package global. A single lock is
// enough: callback invocation frequency does not call for anything finer.
type Registry struct {
	mu               sync.Mutex
	regs             map[uint64]*Registration
	allowNilUserData bool
	log              *zap.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// AllowNilUserData lifts the historical requirement that a registration
// needs non-nil user-data in addition to a non-nil callback. The default
// preserves the original coupling: callback plus nil user-data creates no
// registration at all.
func AllowNilUserData() RegistryOption {
	return func(g *Registry) { g.allowNilUserData = true }
}

// WithRegistryLogger sets the registry's logger.
func WithRegistryLogger(log *zap.Logger) RegistryOption {
	return func(g *Registry) { g.log = log }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	g := &Registry{
		regs: make(map[uint64]*Registration),
		log:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewRegistration retains notify and userData for later invocation, or
// returns nil when the inputs do not warrant a registration. The returned
// value is not yet keyed to a resource; Put binds it once the native call
// has produced the owning handle.
func (g *Registry) NewRegistration(notify, userData any) *Registration {
	if notify == nil {
		return nil
	}
	if userData == nil && !g.allowNilUserData {
		return nil
	}
	return &Registration{notify: notify, userData: userData}
}

// Put associates a registration with the native resource that owns it.
// At most one registration exists per resource; a replaced registration is
// dropped with a warning, since it indicates the resource handle was reused
// without a teardown.
func (g *Registry) Put(handle uint64, reg *Registration) {
	if reg == nil || handle == 0 {
		return
	}
	g.mu.Lock()
	if _, exists := g.regs[handle]; exists {
		g.log.Warn("replacing callback registration",
			zap.Uint64("handle", handle))
	}
	g.regs[handle] = reg
	g.mu.Unlock()
}

// Get returns the registration for a resource handle. An in-flight
// invocation that obtained the registration before Destroy keeps it alive
// through its ordinary reference; lookups after Destroy simply miss.
func (g *Registry) Get(handle uint64) (*Registration, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	reg, ok := g.regs[handle]
	return reg, ok
}

// Destroy removes the registration owned by a native resource, called on
// explicit resource teardown. If the application never releases the
// resource the registration stays, matching native resource lifetime.
func (g *Registry) Destroy(handle uint64) {
	g.mu.Lock()
	delete(g.regs, handle)
	g.mu.Unlock()
}

// Len returns the number of live registrations.
func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.regs)
}
