package callback

import (
	"go.uber.org/zap"

	"github.com/hostcl/clbridge/errors"
)

// ContextNotifyFunc is the managed callback shape for context error
// reporting. privateInfo is always nil: the native payload's type is
// call-specific and cannot be marshalled generically, so only its size is
// carried across.
type ContextNotifyFunc func(errinfo string, privateInfo any, cb uint64, userData any)

// BuildNotifyFunc is the managed callback shape for asynchronous program
// build completion.
type BuildNotifyFunc func(program uint64, userData any)

// NativeKernelFunc is the managed callback shape for enqueued native
// kernels.
type NativeKernelFunc func(args any)

// Bridge re-enters managed code from foreign native threads. Every
// invocation independently attaches the thread, runs the managed callback,
// and detaches on every exit path. No ordering is guaranteed between two
// invocations beyond what the native implementation itself provides, and
// there is no cancellation for an in-flight invocation.
type Bridge struct {
	attacher Attacher
	log      *zap.Logger
}

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge)

// WithAttacher overrides the thread attachment strategy.
func WithAttacher(a Attacher) BridgeOption {
	return func(b *Bridge) { b.attacher = a }
}

// WithBridgeLogger sets the bridge's logger.
func WithBridgeLogger(log *zap.Logger) BridgeOption {
	return func(b *Bridge) { b.log = log }
}

// NewBridge creates a bridge with the OS-thread attacher and a no-op
// logger.
func NewBridge(opts ...BridgeOption) *Bridge {
	b := &Bridge{
		attacher: OSThreadAttacher{},
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NotifyContext invokes a context error callback. The private-info payload
// is replaced by a nil placeholder; cb carries its size.
func (b *Bridge) NotifyContext(reg *Registration, errinfo string, cb uint64) error {
	if reg == nil {
		return nil
	}
	fn, ok := reg.Notify().(ContextNotifyFunc)
	if !ok {
		return errors.InvalidArgument(errors.PhaseCallback,
			"registration does not hold a context notify callback")
	}
	return b.run(func() {
		fn(errinfo, nil, cb, reg.UserData())
	})
}

// NotifyBuild invokes a program build completion callback.
func (b *Bridge) NotifyBuild(reg *Registration, program uint64) error {
	if reg == nil {
		return nil
	}
	fn, ok := reg.Notify().(BuildNotifyFunc)
	if !ok {
		return errors.InvalidArgument(errors.PhaseCallback,
			"registration does not hold a build notify callback")
	}
	return b.run(func() {
		fn(program, reg.UserData())
	})
}

// RunNativeKernel invokes an enqueued native kernel callback with its
// retained argument object.
func (b *Bridge) RunNativeKernel(reg *Registration) error {
	if reg == nil {
		return nil
	}
	fn, ok := reg.Notify().(NativeKernelFunc)
	if !ok {
		return errors.InvalidArgument(errors.PhaseCallback,
			"registration does not hold a native kernel callback")
	}
	return b.run(func() {
		fn(reg.UserData())
	})
}

// run executes a managed callback inside the attach scope. A panic in the
// callback is recovered, logged with its original value, and reported to
// the native invoker as a generic callback fault; the thread is detached
// on every exit path.
func (b *Bridge) run(fn func()) (err error) {
	detach := b.attacher.Attach()
	defer detach()
	defer func() {
		if rec := recover(); rec != nil {
			b.log.Error("managed callback panicked on foreign thread",
				zap.Any("panic", rec))
			err = errors.CallbackFault(rec)
		}
	}()
	fn()
	return nil
}
