package fake

import (
	"strings"
	"sync"

	"github.com/eapache/queue"
	"go.uber.org/zap"

	"github.com/hostcl/clbridge/cl"
	"github.com/hostcl/clbridge/mem"
)

// PlatformSpec describes one fake platform and its devices.
type PlatformSpec struct {
	Name    string
	Vendor  string
	Version string
	Devices []DeviceSpec
}

// DeviceSpec describes one fake device.
type DeviceSpec struct {
	Name string
	Type cl.DeviceType
}

// DefaultPlatform is the inventory used when no WithPlatform option is
// given.
var DefaultPlatform = PlatformSpec{
	Name:    "clbridge fake",
	Vendor:  "hostcl",
	Version: "OpenCL 1.2 fake",
	Devices: []DeviceSpec{
		{Name: "fake-cpu-0", Type: cl.DeviceTypeCPU},
		{Name: "fake-gpu-0", Type: cl.DeviceTypeGPU},
	},
}

type platformState struct {
	spec    PlatformSpec
	handle  uint64
	devices []*deviceState
}

type deviceState struct {
	spec     DeviceSpec
	handle   uint64
	platform *platformState
}

type contextState struct {
	devices  []uint64
	props    []int64
	notify   cl.NativeContextNotify
	userData any
}

type queueState struct {
	context uint64
	device  uint64
}

type bufferState struct {
	data  []byte
	flags cl.MemFlags
}

type programState struct {
	context uint64
	sources []string
	built   bool
}

type kernelState struct {
	program uint64
	name    string
	args    map[uint32][]byte
}

// Driver is an in-process cl.Driver. All methods are safe for concurrent
// use. Asynchronous work (build notifications, native kernels, triggered
// context errors) runs on a single worker goroutine owned by the driver,
// so callbacks arrive on a goroutine the caller does not control, the same
// situation a real implementation creates.
type Driver struct {
	mu        sync.Mutex
	next      uint64
	platforms []*platformState
	devices   map[uint64]*deviceState
	contexts  map[uint64]*contextState
	queues    map[uint64]*queueState
	buffers   map[uint64]*bufferState
	programs  map[uint64]*programState
	kernels   map[uint64]*kernelState
	samplers  map[uint64]struct{}
	events    map[uint64]chan struct{}
	closed    bool

	tasks *queue.Queue
	wake  chan struct{}
	done  chan struct{}

	log *zap.Logger
}

// Option configures a Driver.
type Option func(*Driver)

// WithPlatform adds a platform to the inventory. The first WithPlatform
// replaces the default inventory.
func WithPlatform(spec PlatformSpec) Option {
	return func(d *Driver) {
		d.platforms = append(d.platforms, d.newPlatform(spec))
	}
}

// WithLogger sets the driver's logger.
func WithLogger(log *zap.Logger) Option {
	return func(d *Driver) { d.log = log }
}

// New creates a driver and starts its worker goroutine. Close it when done.
func New(opts ...Option) *Driver {
	d := &Driver{
		next:     0x1000,
		devices:  make(map[uint64]*deviceState),
		contexts: make(map[uint64]*contextState),
		queues:   make(map[uint64]*queueState),
		buffers:  make(map[uint64]*bufferState),
		programs: make(map[uint64]*programState),
		kernels:  make(map[uint64]*kernelState),
		samplers: make(map[uint64]struct{}),
		events:   make(map[uint64]chan struct{}),
		tasks:    queue.New(),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if len(d.platforms) == 0 {
		d.platforms = []*platformState{d.newPlatform(DefaultPlatform)}
	}
	go d.run()
	return d
}

// Close drains the task queue and stops the worker.
func (d *Driver) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
	<-d.done
}

func (d *Driver) newPlatform(spec PlatformSpec) *platformState {
	p := &platformState{spec: spec, handle: d.handle()}
	for _, ds := range spec.Devices {
		dev := &deviceState{spec: ds, handle: d.handle(), platform: p}
		p.devices = append(p.devices, dev)
		d.devices[dev.handle] = dev
	}
	return p
}

// handle hands out process-unique non-zero handles. Callers hold d.mu or
// run before the worker starts.
func (d *Driver) handle() uint64 {
	if d.next == 0 {
		d.next = 0x1000
	}
	h := d.next
	d.next++
	return h
}

// submit queues fn for the worker goroutine.
func (d *Driver) submit(fn func()) {
	d.mu.Lock()
	d.tasks.Add(fn)
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *Driver) run() {
	for {
		d.mu.Lock()
		for d.tasks.Length() > 0 {
			fn := d.tasks.Remove().(func())
			d.mu.Unlock()
			fn()
			d.mu.Lock()
		}
		closed := d.closed
		d.mu.Unlock()

		if closed {
			close(d.done)
			return
		}
		<-d.wake
	}
}

// newEvent creates an event in the pending state.
func (d *Driver) newEvent() (uint64, chan struct{}) {
	h := d.handle()
	ch := make(chan struct{})
	d.events[h] = ch
	return h, ch
}

// --- enumeration ---

func (d *Driver) GetPlatformIDs(numEntries uint32, platforms uintptr, numPlatforms uintptr) cl.Status {
	if platforms != 0 && numEntries == 0 {
		return cl.InvalidValue
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if numPlatforms != 0 {
		mem.WriteUint32(numPlatforms, uint32(len(d.platforms)))
	}
	if platforms != 0 {
		n := int(numEntries)
		if n > len(d.platforms) {
			n = len(d.platforms)
		}
		for i := 0; i < n; i++ {
			mem.WriteSlot(platforms, i, d.platforms[i].handle)
		}
	}
	return cl.Success
}

func (d *Driver) GetDeviceIDs(platform uint64, deviceType cl.DeviceType, numEntries uint32, devices uintptr, numDevices uintptr) cl.Status {
	if devices != 0 && numEntries == 0 {
		return cl.InvalidValue
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	p := d.findPlatform(platform)
	if p == nil {
		return cl.InvalidValue
	}

	var matched []*deviceState
	for _, dev := range p.devices {
		if deviceType == cl.DeviceTypeAll || dev.spec.Type&deviceType != 0 {
			matched = append(matched, dev)
		}
	}
	if len(matched) == 0 {
		return cl.DeviceNotFound
	}

	if numDevices != 0 {
		mem.WriteUint32(numDevices, uint32(len(matched)))
	}
	if devices != 0 {
		n := int(numEntries)
		if n > len(matched) {
			n = len(matched)
		}
		for i := 0; i < n; i++ {
			mem.WriteSlot(devices, i, matched[i].handle)
		}
	}
	return cl.Success
}

func (d *Driver) findPlatform(handle uint64) *platformState {
	for _, p := range d.platforms {
		if p.handle == handle {
			return p
		}
	}
	return nil
}

// --- info queries ---

func (d *Driver) GetPlatformInfo(platform uint64, param uint32, size int, value uintptr, sizeRet uintptr) cl.Status {
	d.mu.Lock()
	defer d.mu.Unlock()

	p := d.findPlatform(platform)
	if p == nil {
		return cl.InvalidValue
	}

	var s string
	switch param {
	case cl.PlatformName:
		s = p.spec.Name
	case cl.PlatformVendor:
		s = p.spec.Vendor
	case cl.PlatformVersion:
		s = p.spec.Version
	case cl.PlatformProfile:
		s = "FULL_PROFILE"
	case cl.PlatformExtensions:
		s = ""
	default:
		return cl.InvalidValue
	}
	return writeInfoString(s, size, value, sizeRet)
}

func (d *Driver) GetDeviceInfo(device uint64, param uint32, size int, value uintptr, sizeRet uintptr) cl.Status {
	d.mu.Lock()
	defer d.mu.Unlock()

	dev, ok := d.devices[device]
	if !ok {
		return cl.InvalidDevice
	}

	switch param {
	case cl.DeviceName:
		return writeInfoString(dev.spec.Name, size, value, sizeRet)
	case cl.DeviceVendor:
		return writeInfoString(dev.platform.spec.Vendor, size, value, sizeRet)
	case cl.DeviceVersion:
		return writeInfoString(dev.platform.spec.Version, size, value, sizeRet)
	case cl.DeviceTypeKey:
		if sizeRet != 0 {
			mem.WriteUint64(sizeRet, 8)
		}
		if value != 0 {
			if size < 8 {
				return cl.InvalidValue
			}
			mem.WriteUint64(value, uint64(dev.spec.Type))
		}
		return cl.Success
	default:
		return cl.InvalidValue
	}
}

// writeInfoString copies s plus a NUL terminator into the caller's value
// buffer, the usual C info-query contract.
func writeInfoString(s string, size int, value uintptr, sizeRet uintptr) cl.Status {
	need := len(s) + 1
	if sizeRet != 0 {
		mem.WriteUint64(sizeRet, uint64(need))
	}
	if value != 0 {
		if size < need {
			return cl.InvalidValue
		}
		dst := mem.Bytes(value, need)
		copy(dst, s)
		dst[need-1] = 0
	}
	return cl.Success
}

// --- contexts and queues ---

func (d *Driver) CreateContext(properties []int64, devices []uint64, notify cl.NativeContextNotify, userData any) (uint64, cl.Status) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(devices) == 0 {
		return 0, cl.InvalidValue
	}
	for _, h := range devices {
		if _, ok := d.devices[h]; !ok {
			return 0, cl.InvalidDevice
		}
	}

	h := d.handle()
	d.contexts[h] = &contextState{
		devices:  append([]uint64(nil), devices...),
		props:    append([]int64(nil), properties...),
		notify:   notify,
		userData: userData,
	}
	return h, cl.Success
}

func (d *Driver) ReleaseContext(context uint64) cl.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.contexts[context]; !ok {
		return cl.InvalidContext
	}
	delete(d.contexts, context)
	return cl.Success
}

func (d *Driver) CreateCommandQueue(context, device uint64, _ uint64) (uint64, cl.Status) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.contexts[context]; !ok {
		return 0, cl.InvalidContext
	}
	if _, ok := d.devices[device]; !ok {
		return 0, cl.InvalidDevice
	}

	h := d.handle()
	d.queues[h] = &queueState{context: context, device: device}
	return h, cl.Success
}

func (d *Driver) ReleaseCommandQueue(q uint64) cl.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.queues[q]; !ok {
		return cl.InvalidCommandQueue
	}
	delete(d.queues, q)
	return cl.Success
}

// --- memory objects ---

func (d *Driver) CreateBuffer(context uint64, flags cl.MemFlags, size int, hostPtr uintptr) (uint64, cl.Status) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.contexts[context]; !ok {
		return 0, cl.InvalidContext
	}
	if size <= 0 {
		return 0, cl.InvalidBufferSize
	}
	wantsHost := flags&(cl.MemUseHostPtr|cl.MemCopyHostPtr) != 0
	if wantsHost && hostPtr == 0 {
		return 0, cl.InvalidHostPtr
	}
	if !wantsHost && hostPtr != 0 {
		return 0, cl.InvalidHostPtr
	}

	b := &bufferState{data: make([]byte, size), flags: flags}
	if wantsHost {
		copy(b.data, mem.Bytes(hostPtr, size))
	}

	h := d.handle()
	d.buffers[h] = b
	return h, cl.Success
}

func (d *Driver) ReleaseMemObject(m uint64) cl.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.buffers[m]; !ok {
		return cl.InvalidMemObject
	}
	delete(d.buffers, m)
	return cl.Success
}

// BufferContents returns a copy of a buffer's current contents, for test
// assertions.
func (d *Driver) BufferContents(m uint64) ([]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buffers[m]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), b.data...), true
}

// --- transfers ---

func (d *Driver) EnqueueReadBuffer(q, buffer uint64, _ bool, offset, size int, dst uintptr, waitList []uint64) (uint64, cl.Status) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if st := d.checkEnqueue(q, waitList); st != cl.Success {
		return 0, st
	}
	b, ok := d.buffers[buffer]
	if !ok {
		return 0, cl.InvalidMemObject
	}
	if offset < 0 || size < 0 || offset+size > len(b.data) {
		return 0, cl.InvalidValue
	}
	if dst == 0 {
		return 0, cl.InvalidValue
	}

	// Transfers complete inline; the event is born done.
	copy(mem.Bytes(dst, size), b.data[offset:offset+size])
	ev, ch := d.newEvent()
	close(ch)
	return ev, cl.Success
}

func (d *Driver) EnqueueWriteBuffer(q, buffer uint64, _ bool, offset, size int, src uintptr, waitList []uint64) (uint64, cl.Status) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if st := d.checkEnqueue(q, waitList); st != cl.Success {
		return 0, st
	}
	b, ok := d.buffers[buffer]
	if !ok {
		return 0, cl.InvalidMemObject
	}
	if offset < 0 || size < 0 || offset+size > len(b.data) {
		return 0, cl.InvalidValue
	}
	if src == 0 {
		return 0, cl.InvalidValue
	}

	copy(b.data[offset:offset+size], mem.Bytes(src, size))
	ev, ch := d.newEvent()
	close(ch)
	return ev, cl.Success
}

func (d *Driver) EnqueueNativeKernel(q uint64, fn cl.NativeUserFunc, userData any, waitList []uint64) (uint64, cl.Status) {
	d.mu.Lock()

	if st := d.checkEnqueue(q, waitList); st != cl.Success {
		d.mu.Unlock()
		return 0, st
	}
	if fn == nil {
		d.mu.Unlock()
		return 0, cl.InvalidValue
	}

	ev, ch := d.newEvent()
	d.mu.Unlock()

	d.submit(func() {
		fn(userData)
		close(ch)
	})
	return ev, cl.Success
}

// checkEnqueue validates the queue and wait list of an enqueue. Callers
// hold d.mu.
func (d *Driver) checkEnqueue(q uint64, waitList []uint64) cl.Status {
	if _, ok := d.queues[q]; !ok {
		return cl.InvalidCommandQueue
	}
	for _, ev := range waitList {
		if _, ok := d.events[ev]; !ok {
			return cl.InvalidEvent
		}
	}
	return cl.Success
}

// --- programs and kernels ---

func (d *Driver) CreateProgramWithSource(context uint64, sources []string) (uint64, cl.Status) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.contexts[context]; !ok {
		return 0, cl.InvalidContext
	}
	if len(sources) == 0 {
		return 0, cl.InvalidValue
	}

	h := d.handle()
	d.programs[h] = &programState{
		context: context,
		sources: append([]string(nil), sources...),
	}
	return h, cl.Success
}

func (d *Driver) BuildProgram(program uint64, devices []uint64, options string, notify cl.NativeBuildNotify, userData any) cl.Status {
	d.mu.Lock()

	p, ok := d.programs[program]
	if !ok {
		d.mu.Unlock()
		return cl.InvalidProgram
	}
	for _, h := range devices {
		if _, ok := d.devices[h]; !ok {
			d.mu.Unlock()
			return cl.InvalidDevice
		}
	}
	if strings.Contains(options, "-invalid") {
		d.mu.Unlock()
		return cl.InvalidBuildOptions
	}

	if notify == nil {
		p.built = true
		d.mu.Unlock()
		return cl.Success
	}
	d.mu.Unlock()

	d.submit(func() {
		d.mu.Lock()
		p.built = true
		d.mu.Unlock()
		notify(program, userData)
	})
	return cl.Success
}

func (d *Driver) ReleaseProgram(program uint64) cl.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.programs[program]; !ok {
		return cl.InvalidProgram
	}
	delete(d.programs, program)
	return cl.Success
}

func (d *Driver) CreateKernel(program uint64, name string) (uint64, cl.Status) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.programs[program]
	if !ok {
		return 0, cl.InvalidProgram
	}
	if !p.built {
		return 0, cl.InvalidProgramExecutable
	}
	if name == "" {
		return 0, cl.InvalidKernelName
	}

	h := d.handle()
	d.kernels[h] = &kernelState{
		program: program,
		name:    name,
		args:    make(map[uint32][]byte),
	}
	return h, cl.Success
}

func (d *Driver) SetKernelArg(kernel uint64, index uint32, size int, value uintptr) cl.Status {
	d.mu.Lock()
	defer d.mu.Unlock()

	k, ok := d.kernels[kernel]
	if !ok {
		return cl.InvalidKernel
	}
	if size < 0 {
		return cl.InvalidArgSize
	}

	// A zero value address with non-zero size declares local memory; the
	// stored argument is empty either way.
	var arg []byte
	if value != 0 && size > 0 {
		arg = append([]byte(nil), mem.Bytes(value, size)...)
	}
	k.args[index] = arg
	return cl.Success
}

// KernelArg returns a copy of a stored kernel argument, for test
// assertions.
func (d *Driver) KernelArg(kernel uint64, index uint32) ([]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	k, ok := d.kernels[kernel]
	if !ok {
		return nil, false
	}
	arg, ok := k.args[index]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), arg...), true
}

func (d *Driver) ReleaseKernel(kernel uint64) cl.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.kernels[kernel]; !ok {
		return cl.InvalidKernel
	}
	delete(d.kernels, kernel)
	return cl.Success
}

// --- samplers ---

func (d *Driver) CreateSampler(context uint64, _ bool, _, _ uint32) (uint64, cl.Status) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.contexts[context]; !ok {
		return 0, cl.InvalidContext
	}
	h := d.handle()
	d.samplers[h] = struct{}{}
	return h, cl.Success
}

func (d *Driver) ReleaseSampler(sampler uint64) cl.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.samplers[sampler]; !ok {
		return cl.InvalidValue
	}
	delete(d.samplers, sampler)
	return cl.Success
}

// --- events ---

func (d *Driver) WaitForEvents(events []uint64) cl.Status {
	d.mu.Lock()
	chans := make([]chan struct{}, 0, len(events))
	for _, ev := range events {
		ch, ok := d.events[ev]
		if !ok {
			d.mu.Unlock()
			return cl.InvalidEvent
		}
		chans = append(chans, ch)
	}
	d.mu.Unlock()

	for _, ch := range chans {
		<-ch
	}
	return cl.Success
}

func (d *Driver) ReleaseEvent(event uint64) cl.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.events[event]; !ok {
		return cl.InvalidEvent
	}
	delete(d.events, event)
	return cl.Success
}

// --- test hooks ---

// ContextProperties returns a copy of the property pairs a context was
// created with, for test assertions.
func (d *Driver) ContextProperties(context uint64) ([]int64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.contexts[context]
	if !ok {
		return nil, false
	}
	return append([]int64(nil), c.props...), true
}

// Drain blocks until every task submitted so far has run.
func (d *Driver) Drain() {
	done := make(chan struct{})
	d.submit(func() { close(done) })
	<-done
}

// TriggerContextError fires a context's error callback from the worker
// goroutine, the way a real implementation reports asynchronous faults.
// privateSize stands in for the size of a payload that is never
// materialized here. Returns false when the context has no callback.
func (d *Driver) TriggerContextError(context uint64, errinfo string, privateSize int) bool {
	d.mu.Lock()
	c, ok := d.contexts[context]
	if !ok || c.notify == nil {
		d.mu.Unlock()
		d.log.Warn("no context callback to trigger",
			zap.Uint64("context", context))
		return false
	}
	notify, userData := c.notify, c.userData
	d.mu.Unlock()

	d.submit(func() {
		notify(errinfo, 0, uintptr(privateSize), userData)
	})
	return true
}
