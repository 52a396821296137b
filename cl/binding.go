package cl

import (
	"go.uber.org/zap"

	clbridge "github.com/hostcl/clbridge"
	"github.com/hostcl/clbridge/callback"
	"github.com/hostcl/clbridge/errors"
	"github.com/hostcl/clbridge/marshal"
	"github.com/hostcl/clbridge/mem"
	"github.com/hostcl/clbridge/ptr"
)

// Binding is the managed entry point for native calls. It owns a resolver,
// a callback registry and a bridge, all over one Driver, and applies the
// same shape to every operation: resolve host-memory arguments, flatten
// handle lists, call the driver, release with the declared access
// direction, write results back into wrappers.
//
// A Binding is safe for concurrent use.
type Binding struct {
	driver   Driver
	alloc    clbridge.Allocator
	resolver *marshal.Resolver
	registry *callback.Registry
	bridge   *callback.Bridge
	log      *zap.Logger
}

type bindingConfig struct {
	alloc        clbridge.Allocator
	pinner       mem.Pinner
	factory      marshal.Factory
	registryOpts []callback.RegistryOption
	bridgeOpts   []callback.BridgeOption
	log          *zap.Logger
}

// BindingOption configures a Binding.
type BindingOption func(*bindingConfig)

// WithAllocator overrides the native allocator. The default is a fresh
// HeapArena.
func WithAllocator(a clbridge.Allocator) BindingOption {
	return func(c *bindingConfig) { c.alloc = a }
}

// WithPinner overrides the slice pinning strategy. The default pins in
// place.
func WithPinner(p mem.Pinner) BindingOption {
	return func(c *bindingConfig) { c.pinner = p }
}

// WithFactory overrides wrapper materialization for indirection lists.
func WithFactory(f marshal.Factory) BindingOption {
	return func(c *bindingConfig) { c.factory = f }
}

// WithLogger sets the logger shared by the binding and its components.
func WithLogger(log *zap.Logger) BindingOption {
	return func(c *bindingConfig) { c.log = log }
}

// WithRegistryOptions forwards options to the callback registry.
func WithRegistryOptions(opts ...callback.RegistryOption) BindingOption {
	return func(c *bindingConfig) { c.registryOpts = append(c.registryOpts, opts...) }
}

// WithBridgeOptions forwards options to the callback bridge.
func WithBridgeOptions(opts ...callback.BridgeOption) BindingOption {
	return func(c *bindingConfig) { c.bridgeOpts = append(c.bridgeOpts, opts...) }
}

// New creates a Binding over the given driver.
func New(driver Driver, opts ...BindingOption) *Binding {
	cfg := &bindingConfig{log: zap.NewNop()}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.alloc == nil {
		cfg.alloc = mem.NewHeapArena()
	}
	if cfg.pinner == nil {
		cfg.pinner = mem.NewRuntimePinner()
	}

	resolverOpts := []marshal.Option{marshal.WithLogger(cfg.log)}
	if cfg.factory != nil {
		resolverOpts = append(resolverOpts, marshal.WithFactory(cfg.factory))
	}

	registryOpts := append([]callback.RegistryOption{
		callback.WithRegistryLogger(cfg.log),
	}, cfg.registryOpts...)
	bridgeOpts := append([]callback.BridgeOption{
		callback.WithBridgeLogger(cfg.log),
	}, cfg.bridgeOpts...)

	return &Binding{
		driver:   driver,
		alloc:    cfg.alloc,
		resolver: marshal.NewResolver(cfg.alloc, cfg.pinner, resolverOpts...),
		registry: callback.NewRegistry(registryOpts...),
		bridge:   callback.NewBridge(bridgeOpts...),
		log:      cfg.log,
	}
}

// Registry exposes the callback registry, mainly for tests and teardown
// accounting.
func (b *Binding) Registry() *callback.Registry { return b.registry }

// release finishes a resolved argument with the declared access direction.
func (b *Binding) release(r *marshal.Resolved, access Access) error {
	return b.resolver.Release(r, access.discardWrites())
}

// GetPlatformIDs enumerates platforms into the caller's slice. The slice
// length is the declared capacity; only the slots the native side actually
// filled are populated, the rest stay untouched. numPlatforms, when
// non-nil, receives the count the native side reported.
func (b *Binding) GetPlatformIDs(platforms []*Platform, numPlatforms *uint32) (Status, error) {
	var arrAddr uintptr
	if len(platforms) > 0 {
		addr, err := b.alloc.Alloc(len(platforms) * mem.SlotSize)
		if err != nil {
			return OutOfHostMemory, errors.AllocationFailed(errors.PhaseDriver, len(platforms)*mem.SlotSize, err)
		}
		defer b.alloc.Free(addr, len(platforms)*mem.SlotSize)
		arrAddr = addr
	}

	countAddr, err := b.alloc.Alloc(4)
	if err != nil {
		return OutOfHostMemory, errors.AllocationFailed(errors.PhaseDriver, 4, err)
	}
	defer b.alloc.Free(countAddr, 4)

	status := b.driver.GetPlatformIDs(uint32(len(platforms)), arrAddr, countAddr)

	count := mem.ReadUint32(countAddr)
	n := int(count)
	if n > len(platforms) {
		n = len(platforms)
	}
	for i := 0; i < n; i++ {
		if platforms[i] == nil {
			platforms[i] = &Platform{}
		}
		platforms[i].SetNativeHandle(mem.ReadSlot(arrAddr, i))
	}
	if numPlatforms != nil {
		*numPlatforms = count
	}
	return status, nil
}

// GetDeviceIDs enumerates a platform's devices of the given type into the
// caller's slice, with the same capacity-versus-count contract as
// GetPlatformIDs.
func (b *Binding) GetDeviceIDs(platform *Platform, deviceType DeviceType, devices []*Device, numDevices *uint32) (Status, error) {
	if platform == nil {
		return InvalidValue, errors.NilPointer(errors.PhaseDriver, "*cl.Platform")
	}

	var arrAddr uintptr
	if len(devices) > 0 {
		addr, err := b.alloc.Alloc(len(devices) * mem.SlotSize)
		if err != nil {
			return OutOfHostMemory, errors.AllocationFailed(errors.PhaseDriver, len(devices)*mem.SlotSize, err)
		}
		defer b.alloc.Free(addr, len(devices)*mem.SlotSize)
		arrAddr = addr
	}

	countAddr, err := b.alloc.Alloc(4)
	if err != nil {
		return OutOfHostMemory, errors.AllocationFailed(errors.PhaseDriver, 4, err)
	}
	defer b.alloc.Free(countAddr, 4)

	status := b.driver.GetDeviceIDs(platform.NativeHandle(), deviceType,
		uint32(len(devices)), arrAddr, countAddr)

	count := mem.ReadUint32(countAddr)
	n := int(count)
	if n > len(devices) {
		n = len(devices)
	}
	for i := 0; i < n; i++ {
		if devices[i] == nil {
			devices[i] = &Device{}
		}
		devices[i].SetNativeHandle(mem.ReadSlot(arrAddr, i))
	}
	if numDevices != nil {
		*numDevices = count
	}
	return status, nil
}

// GetPlatformInfo queries a platform property into the caller's value
// buffer. sizeRet, when non-nil, receives the size the native side would
// need for the full value.
func (b *Binding) GetPlatformInfo(platform *Platform, param uint32, size int, value *ptr.Pointer, sizeRet *int) (Status, error) {
	if platform == nil {
		return InvalidValue, errors.NilPointer(errors.PhaseDriver, "*cl.Platform")
	}
	return b.infoQuery(size, value, sizeRet, func(valueAddr, sizeRetAddr uintptr) Status {
		return b.driver.GetPlatformInfo(platform.NativeHandle(), param, size, valueAddr, sizeRetAddr)
	})
}

// GetDeviceInfo queries a device property, same contract as
// GetPlatformInfo.
func (b *Binding) GetDeviceInfo(device *Device, param uint32, size int, value *ptr.Pointer, sizeRet *int) (Status, error) {
	if device == nil {
		return InvalidValue, errors.NilPointer(errors.PhaseDriver, "*cl.Device")
	}
	return b.infoQuery(size, value, sizeRet, func(valueAddr, sizeRetAddr uintptr) Status {
		return b.driver.GetDeviceInfo(device.NativeHandle(), param, size, valueAddr, sizeRetAddr)
	})
}

// infoQuery is the shared shape of the info-query operations: the value
// buffer is a host-memory out argument, the size-return an optional native
// slot read back after the call.
func (b *Binding) infoQuery(size int, value *ptr.Pointer, sizeRet *int, call func(valueAddr, sizeRetAddr uintptr) Status) (Status, error) {
	r, err := b.resolver.Resolve(value)
	if err != nil {
		return InvalidValue, err
	}

	var sizeRetAddr uintptr
	if sizeRet != nil {
		addr, err := b.alloc.Alloc(mem.SlotSize)
		if err != nil {
			b.releaseLogged(r, NativeReads, "info query")
			return OutOfHostMemory, errors.AllocationFailed(errors.PhaseDriver, mem.SlotSize, err)
		}
		defer b.alloc.Free(addr, mem.SlotSize)
		sizeRetAddr = addr
	}

	status := call(r.Addr(), sizeRetAddr)

	if err := b.release(r, NativeWrites); err != nil {
		return status, err
	}
	if sizeRet != nil {
		*sizeRet = int(mem.ReadUint64(sizeRetAddr))
	}
	return status, nil
}

// CreateContext creates a context over the given devices. properties, when
// non-nil, points at a zero-terminated array of 64-bit property pairs. The
// notify callback and its user-data are retained together and keyed to the
// context handle once the native call succeeds; notify with nil user-data
// creates no registration unless the registry was configured otherwise.
func (b *Binding) CreateContext(properties *ptr.Pointer, devices []*Device, notify callback.ContextNotifyFunc, userData any) (*Context, Status, error) {
	props, err := b.contextProperties(properties)
	if err != nil {
		return nil, InvalidValue, err
	}
	devs := marshal.Handles(devices, len(devices))

	var reg *callback.Registration
	if notify != nil {
		reg = b.registry.NewRegistration(notify, userData)
	}

	var nn NativeContextNotify
	if reg != nil {
		nn = func(errinfo string, _ uintptr, cb uintptr, ud any) {
			r, _ := ud.(*callback.Registration)
			if err := b.bridge.NotifyContext(r, errinfo, uint64(cb)); err != nil {
				b.log.Error("context notify callback failed", zap.Error(err))
			}
		}
	}

	handle, status := b.driver.CreateContext(props, devs, nn, reg)
	if status != Success || handle == 0 {
		return nil, status, nil
	}

	b.registry.Put(handle, reg)
	ctx := &Context{}
	ctx.SetNativeHandle(handle)
	return ctx, status, nil
}

// contextProperties reads a zero-terminated property array out of host
// memory. The terminator is dropped; the driver takes the pairs alone.
func (b *Binding) contextProperties(properties *ptr.Pointer) ([]int64, error) {
	if properties == nil {
		return nil, nil
	}
	r, err := b.resolver.Resolve(properties)
	if err != nil {
		return nil, err
	}

	var props []int64
	if addr := r.Addr(); addr != 0 {
		// Guards against a missing terminator running off the buffer.
		const maxProperties = 100
		for i := 0; i < maxProperties; i++ {
			v := mem.ReadUint64(addr + uintptr(i*mem.SlotSize))
			if v == 0 {
				break
			}
			props = append(props, int64(v))
		}
	}

	if err := b.release(r, NativeReads); err != nil {
		return nil, err
	}
	return props, nil
}

// ReleaseContext releases a context and destroys its callback registration.
func (b *Binding) ReleaseContext(context *Context) (Status, error) {
	if context == nil {
		return InvalidContext, errors.NilPointer(errors.PhaseDriver, "*cl.Context")
	}
	status := b.driver.ReleaseContext(context.NativeHandle())
	b.registry.Destroy(context.NativeHandle())
	return status, nil
}

// CreateCommandQueue creates a queue on one of the context's devices.
func (b *Binding) CreateCommandQueue(context *Context, device *Device, properties uint64) (*CommandQueue, Status, error) {
	if context == nil || device == nil {
		return nil, InvalidValue, errors.NilPointer(errors.PhaseDriver, "*cl.Context or *cl.Device")
	}
	handle, status := b.driver.CreateCommandQueue(context.NativeHandle(), device.NativeHandle(), properties)
	if status != Success || handle == 0 {
		return nil, status, nil
	}
	q := &CommandQueue{}
	q.SetNativeHandle(handle)
	return q, status, nil
}

// ReleaseCommandQueue releases a command queue.
func (b *Binding) ReleaseCommandQueue(queue *CommandQueue) (Status, error) {
	if queue == nil {
		return InvalidCommandQueue, errors.NilPointer(errors.PhaseDriver, "*cl.CommandQueue")
	}
	return b.driver.ReleaseCommandQueue(queue.NativeHandle()), nil
}

// CreateBuffer creates a memory object, optionally initialized from or
// aliasing hostPtr. With MemUseHostPtr the native implementation may keep
// using the pointer after this call returns; a pinned or copied managed
// slice is only valid for the duration of the call, so that combination is
// flagged.
func (b *Binding) CreateBuffer(context *Context, flags MemFlags, size int, hostPtr *ptr.Pointer) (*Mem, Status, error) {
	if context == nil {
		return nil, InvalidContext, errors.NilPointer(errors.PhaseDriver, "*cl.Context")
	}

	r, err := b.resolver.Resolve(hostPtr)
	if err != nil {
		return nil, InvalidHostPtr, err
	}
	if flags&MemUseHostPtr != 0 &&
		(r.Kind() == marshal.KindPinnedArray || r.Kind() == marshal.KindCopiedArray) {
		b.log.Warn("MemUseHostPtr over a managed slice: the address is only valid during this call",
			zap.Stringer("kind", r.Kind()))
	}

	handle, status := b.driver.CreateBuffer(context.NativeHandle(), flags, size, r.Addr())

	if err := b.release(r, NativeReads); err != nil {
		return nil, status, err
	}
	if status != Success || handle == 0 {
		return nil, status, nil
	}
	m := &Mem{}
	m.SetNativeHandle(handle)
	return m, status, nil
}

// ReleaseMemObject releases a memory object.
func (b *Binding) ReleaseMemObject(m *Mem) (Status, error) {
	if m == nil {
		return InvalidMemObject, errors.NilPointer(errors.PhaseDriver, "*cl.Mem")
	}
	return b.driver.ReleaseMemObject(m.NativeHandle()), nil
}

// EnqueueReadBuffer reads size bytes of the memory object into dst. For a
// non-blocking read into a pinned or copied managed slice the address
// stops being valid when this call releases it, before the native transfer
// may have finished; that request is flagged.
func (b *Binding) EnqueueReadBuffer(queue *CommandQueue, buffer *Mem, blocking bool, offset, size int, dst *ptr.Pointer, waitList []*Event, event *Event) (Status, error) {
	if queue == nil || buffer == nil {
		return InvalidValue, errors.NilPointer(errors.PhaseDriver, "*cl.CommandQueue or *cl.Mem")
	}

	r, err := b.resolver.Resolve(dst)
	if err != nil {
		return InvalidHostPtr, err
	}
	b.warnNonBlockingManaged(blocking, r, "read")

	evHandle, status := b.driver.EnqueueReadBuffer(queue.NativeHandle(), buffer.NativeHandle(),
		blocking, offset, size, r.Addr(), marshal.Handles(waitList, len(waitList)))

	if err := b.release(r, NativeWrites); err != nil {
		return status, err
	}
	setEvent(event, evHandle)
	return status, nil
}

// EnqueueWriteBuffer writes size bytes from src into the memory object.
// src is read-only to the native side, so a staged copy is not written
// back.
func (b *Binding) EnqueueWriteBuffer(queue *CommandQueue, buffer *Mem, blocking bool, offset, size int, src *ptr.Pointer, waitList []*Event, event *Event) (Status, error) {
	if queue == nil || buffer == nil {
		return InvalidValue, errors.NilPointer(errors.PhaseDriver, "*cl.CommandQueue or *cl.Mem")
	}

	r, err := b.resolver.Resolve(src)
	if err != nil {
		return InvalidHostPtr, err
	}
	b.warnNonBlockingManaged(blocking, r, "write")

	evHandle, status := b.driver.EnqueueWriteBuffer(queue.NativeHandle(), buffer.NativeHandle(),
		blocking, offset, size, r.Addr(), marshal.Handles(waitList, len(waitList)))

	if err := b.release(r, NativeReads); err != nil {
		return status, err
	}
	setEvent(event, evHandle)
	return status, nil
}

// EnqueueNativeKernel enqueues a managed function for execution by the
// native implementation. The function and its argument object are retained
// together; a non-nil function with nil args creates no registration under
// the default registry policy and the enqueue proceeds without a callback.
func (b *Binding) EnqueueNativeKernel(queue *CommandQueue, fn callback.NativeKernelFunc, args any, waitList []*Event, event *Event) (Status, error) {
	if queue == nil {
		return InvalidCommandQueue, errors.NilPointer(errors.PhaseDriver, "*cl.CommandQueue")
	}

	var reg *callback.Registration
	if fn != nil {
		reg = b.registry.NewRegistration(fn, args)
	}

	var nn NativeUserFunc
	if reg != nil {
		nn = func(ud any) {
			r, _ := ud.(*callback.Registration)
			if err := b.bridge.RunNativeKernel(r); err != nil {
				b.log.Error("native kernel callback failed", zap.Error(err))
			}
		}
	}

	evHandle, status := b.driver.EnqueueNativeKernel(queue.NativeHandle(), nn, reg,
		marshal.Handles(waitList, len(waitList)))
	setEvent(event, evHandle)
	return status, nil
}

// CreateProgramWithSource creates a program from source strings.
func (b *Binding) CreateProgramWithSource(context *Context, sources []string) (*Program, Status, error) {
	if context == nil {
		return nil, InvalidContext, errors.NilPointer(errors.PhaseDriver, "*cl.Context")
	}
	handle, status := b.driver.CreateProgramWithSource(context.NativeHandle(), sources)
	if status != Success || handle == 0 {
		return nil, status, nil
	}
	p := &Program{}
	p.SetNativeHandle(handle)
	return p, status, nil
}

// BuildProgram builds a program, asynchronously when notify is non-nil.
// The notify registration is one-shot and lives in the trampoline closure
// rather than the registry; a build is not a releasable resource.
func (b *Binding) BuildProgram(program *Program, devices []*Device, options string, notify callback.BuildNotifyFunc, userData any) (Status, error) {
	if program == nil {
		return InvalidProgram, errors.NilPointer(errors.PhaseDriver, "*cl.Program")
	}

	var reg *callback.Registration
	if notify != nil {
		reg = b.registry.NewRegistration(notify, userData)
	}

	var nn NativeBuildNotify
	if reg != nil {
		nn = func(handle uint64, ud any) {
			r, _ := ud.(*callback.Registration)
			if err := b.bridge.NotifyBuild(r, handle); err != nil {
				b.log.Error("build notify callback failed", zap.Error(err))
			}
		}
	}

	status := b.driver.BuildProgram(program.NativeHandle(),
		marshal.Handles(devices, len(devices)), options, nn, reg)
	return status, nil
}

// ReleaseProgram releases a program.
func (b *Binding) ReleaseProgram(program *Program) (Status, error) {
	if program == nil {
		return InvalidProgram, errors.NilPointer(errors.PhaseDriver, "*cl.Program")
	}
	return b.driver.ReleaseProgram(program.NativeHandle()), nil
}

// CreateKernel creates a kernel by name from a built program.
func (b *Binding) CreateKernel(program *Program, name string) (*Kernel, Status, error) {
	if program == nil {
		return nil, InvalidProgram, errors.NilPointer(errors.PhaseDriver, "*cl.Program")
	}
	handle, status := b.driver.CreateKernel(program.NativeHandle(), name)
	if status != Success || handle == 0 {
		return nil, status, nil
	}
	k := &Kernel{}
	k.SetNativeHandle(handle)
	return k, status, nil
}

// SetKernelArg sets one kernel argument from host memory. The value is
// read by the native call and never written, so staged copies are
// discarded on release.
func (b *Binding) SetKernelArg(kernel *Kernel, index uint32, size int, value *ptr.Pointer) (Status, error) {
	if kernel == nil {
		return InvalidKernel, errors.NilPointer(errors.PhaseDriver, "*cl.Kernel")
	}

	r, err := b.resolver.Resolve(value)
	if err != nil {
		return InvalidArgValue, err
	}

	status := b.driver.SetKernelArg(kernel.NativeHandle(), index, size, r.Addr())

	if err := b.release(r, NativeReads); err != nil {
		return status, err
	}
	return status, nil
}

// ReleaseKernel releases a kernel.
func (b *Binding) ReleaseKernel(kernel *Kernel) (Status, error) {
	if kernel == nil {
		return InvalidKernel, errors.NilPointer(errors.PhaseDriver, "*cl.Kernel")
	}
	return b.driver.ReleaseKernel(kernel.NativeHandle()), nil
}

// CreateSampler creates a sampler.
func (b *Binding) CreateSampler(context *Context, normalizedCoords bool, addressingMode, filterMode uint32) (*Sampler, Status, error) {
	if context == nil {
		return nil, InvalidContext, errors.NilPointer(errors.PhaseDriver, "*cl.Context")
	}
	handle, status := b.driver.CreateSampler(context.NativeHandle(), normalizedCoords, addressingMode, filterMode)
	if status != Success || handle == 0 {
		return nil, status, nil
	}
	s := &Sampler{}
	s.SetNativeHandle(handle)
	return s, status, nil
}

// ReleaseSampler releases a sampler.
func (b *Binding) ReleaseSampler(sampler *Sampler) (Status, error) {
	if sampler == nil {
		return InvalidValue, errors.NilPointer(errors.PhaseDriver, "*cl.Sampler")
	}
	return b.driver.ReleaseSampler(sampler.NativeHandle()), nil
}

// WaitForEvents blocks until every listed event has completed.
func (b *Binding) WaitForEvents(events []*Event) (Status, error) {
	if len(events) == 0 {
		return InvalidValue, errors.InvalidArgument(errors.PhaseDriver, "empty event list")
	}
	return b.driver.WaitForEvents(marshal.Handles(events, len(events))), nil
}

// ReleaseEvent releases an event.
func (b *Binding) ReleaseEvent(event *Event) (Status, error) {
	if event == nil {
		return InvalidEvent, errors.NilPointer(errors.PhaseDriver, "*cl.Event")
	}
	return b.driver.ReleaseEvent(event.NativeHandle()), nil
}

// warnNonBlockingManaged flags a non-blocking transfer over memory whose
// native address stops being valid at release.
func (b *Binding) warnNonBlockingManaged(blocking bool, r *marshal.Resolved, op string) {
	if blocking {
		return
	}
	if k := r.Kind(); k == marshal.KindPinnedArray || k == marshal.KindCopiedArray {
		b.log.Warn("non-blocking transfer over a managed slice: the address is only valid during this call",
			zap.String("op", op), zap.Stringer("kind", k))
	}
}

// releaseLogged releases on an error path where the primary fault is being
// returned already.
func (b *Binding) releaseLogged(r *marshal.Resolved, access Access, op string) {
	if err := b.release(r, access); err != nil {
		b.log.Warn("release failed on error path",
			zap.String("op", op), zap.Error(err))
	}
}

func setEvent(event *Event, handle uint64) {
	if event != nil && handle != 0 {
		event.SetNativeHandle(handle)
	}
}
