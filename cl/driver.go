package cl

// NativeContextNotify is the trampoline shape the driver fires when a
// context reports an error. privateInfo is the raw payload address and cb
// its size in bytes; the payload itself is never interpreted on this side.
type NativeContextNotify func(errinfo string, privateInfo uintptr, cb uintptr, userData any)

// NativeBuildNotify is the trampoline shape the driver fires when an
// asynchronous program build finishes.
type NativeBuildNotify func(program uint64, userData any)

// NativeUserFunc is the trampoline shape the driver fires to execute an
// enqueued native kernel.
type NativeUserFunc func(userData any)

// Driver is the seam between the binding and the native implementation.
// Everything below the seam speaks raw addresses and 64-bit handle arrays;
// everything above it speaks wrapper objects and pointer records. Out
// parameters are passed as native addresses the implementation writes
// into, matching the shape of the underlying C entry points.
//
// Implementations must tolerate zero addresses for optional out
// parameters and must fire callbacks from whatever thread they own; the
// binding's bridge handles re-entry.
type Driver interface {
	GetPlatformIDs(numEntries uint32, platforms uintptr, numPlatforms uintptr) Status
	GetPlatformInfo(platform uint64, param uint32, size int, value uintptr, sizeRet uintptr) Status

	GetDeviceIDs(platform uint64, deviceType DeviceType, numEntries uint32, devices uintptr, numDevices uintptr) Status
	GetDeviceInfo(device uint64, param uint32, size int, value uintptr, sizeRet uintptr) Status

	CreateContext(properties []int64, devices []uint64, notify NativeContextNotify, userData any) (uint64, Status)
	ReleaseContext(context uint64) Status

	CreateCommandQueue(context, device uint64, properties uint64) (uint64, Status)
	ReleaseCommandQueue(queue uint64) Status

	CreateBuffer(context uint64, flags MemFlags, size int, hostPtr uintptr) (uint64, Status)
	ReleaseMemObject(mem uint64) Status

	EnqueueReadBuffer(queue, buffer uint64, blocking bool, offset, size int, dst uintptr, waitList []uint64) (uint64, Status)
	EnqueueWriteBuffer(queue, buffer uint64, blocking bool, offset, size int, src uintptr, waitList []uint64) (uint64, Status)
	EnqueueNativeKernel(queue uint64, fn NativeUserFunc, userData any, waitList []uint64) (uint64, Status)

	CreateProgramWithSource(context uint64, sources []string) (uint64, Status)
	BuildProgram(program uint64, devices []uint64, options string, notify NativeBuildNotify, userData any) Status
	ReleaseProgram(program uint64) Status

	CreateKernel(program uint64, name string) (uint64, Status)
	SetKernelArg(kernel uint64, index uint32, size int, value uintptr) Status
	ReleaseKernel(kernel uint64) Status

	CreateSampler(context uint64, normalizedCoords bool, addressingMode, filterMode uint32) (uint64, Status)
	ReleaseSampler(sampler uint64) Status

	WaitForEvents(events []uint64) Status
	ReleaseEvent(event uint64) Status
}
