package cl_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/hostcl/clbridge/callback"
	"github.com/hostcl/clbridge/cl"
	"github.com/hostcl/clbridge/fake"
	"github.com/hostcl/clbridge/mem"
	"github.com/hostcl/clbridge/ptr"
)

func newTestBinding(t *testing.T, opts ...cl.BindingOption) (*cl.Binding, *fake.Driver) {
	t.Helper()
	d := fake.New()
	t.Cleanup(d.Close)
	return cl.New(d, opts...), d
}

// setup enumerates the default inventory down to one device, context and
// queue.
func setup(t *testing.T, b *cl.Binding) (*cl.Platform, *cl.Device, *cl.Context, *cl.CommandQueue) {
	t.Helper()

	platforms := make([]*cl.Platform, 1)
	if st, err := b.GetPlatformIDs(platforms, nil); st != cl.Success || err != nil {
		t.Fatalf("GetPlatformIDs = %v, %v", st, err)
	}

	devices := make([]*cl.Device, 1)
	if st, err := b.GetDeviceIDs(platforms[0], cl.DeviceTypeAll, devices, nil); st != cl.Success || err != nil {
		t.Fatalf("GetDeviceIDs = %v, %v", st, err)
	}

	ctx, st, err := b.CreateContext(nil, devices, nil, nil)
	if st != cl.Success || err != nil {
		t.Fatalf("CreateContext = %v, %v", st, err)
	}

	q, st, err := b.CreateCommandQueue(ctx, devices[0], 0)
	if st != cl.Success || err != nil {
		t.Fatalf("CreateCommandQueue = %v, %v", st, err)
	}
	return platforms[0], devices[0], ctx, q
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}

func TestBinding_GetPlatformIDs_CapacityContract(t *testing.T) {
	b, _ := newTestBinding(t)

	// Declared capacity 2, one actual platform: exactly one slot is
	// populated, the rest stay untouched.
	platforms := make([]*cl.Platform, 2)
	var count uint32
	st, err := b.GetPlatformIDs(platforms, &count)
	if st != cl.Success || err != nil {
		t.Fatalf("GetPlatformIDs = %v, %v", st, err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
	if platforms[0] == nil || platforms[0].NativeHandle() == 0 {
		t.Fatal("slot 0 must be populated with a live handle")
	}
	if platforms[1] != nil {
		t.Fatal("slot 1 must stay untouched")
	}
}

func TestBinding_GetPlatformInfo(t *testing.T) {
	b, _ := newTestBinding(t)
	platform, _, _, _ := setup(t, b)

	var need int
	if st, err := b.GetPlatformInfo(platform, cl.PlatformName, 0, nil, &need); st != cl.Success || err != nil {
		t.Fatalf("size query = %v, %v", st, err)
	}
	if need == 0 {
		t.Fatal("size query must report a non-zero size")
	}

	value := make([]byte, need)
	if st, err := b.GetPlatformInfo(platform, cl.PlatformName, need, ptr.ToBytes(value), nil); st != cl.Success || err != nil {
		t.Fatalf("value query = %v, %v", st, err)
	}
	if got := cString(value); got != fake.DefaultPlatform.Name {
		t.Fatalf("platform name = %q, want %q", got, fake.DefaultPlatform.Name)
	}
}

func TestBinding_GetDeviceInfo(t *testing.T) {
	b, _ := newTestBinding(t)
	_, device, _, _ := setup(t, b)

	value := make([]byte, 64)
	if st, err := b.GetDeviceInfo(device, cl.DeviceName, len(value), ptr.ToBytes(value), nil); st != cl.Success || err != nil {
		t.Fatalf("GetDeviceInfo = %v, %v", st, err)
	}
	if !strings.HasPrefix(cString(value), "fake-") {
		t.Fatalf("device name = %q", cString(value))
	}
}

func TestBinding_BufferWriteReadPinned(t *testing.T) {
	b, _ := newTestBinding(t)
	_, _, ctx, q := setup(t, b)

	buf, st, err := b.CreateBuffer(ctx, cl.MemReadWrite, 8, nil)
	if st != cl.Success || err != nil {
		t.Fatalf("CreateBuffer = %v, %v", st, err)
	}

	src := []byte{9, 8, 7, 6, 5, 4, 3, 2}
	if st, err := b.EnqueueWriteBuffer(q, buf, true, 0, 8, ptr.ToBytes(src), nil, nil); st != cl.Success || err != nil {
		t.Fatalf("EnqueueWriteBuffer = %v, %v", st, err)
	}

	dst := make([]byte, 8)
	if st, err := b.EnqueueReadBuffer(q, buf, true, 0, 8, ptr.ToBytes(dst), nil, nil); st != cl.Success || err != nil {
		t.Fatalf("EnqueueReadBuffer = %v, %v", st, err)
	}
	if !bytes.Equal(dst, src) {
		t.Fatalf("read back %v, want %v", dst, src)
	}
}

func TestBinding_BufferReadCopiedWritesBack(t *testing.T) {
	arena := mem.NewHeapArena()
	t.Cleanup(func() { arena.Close() })

	// Staged copies force the writeback path on release.
	b, _ := newTestBinding(t,
		cl.WithAllocator(arena),
		cl.WithPinner(mem.NewCopyPinner(arena)))
	_, _, ctx, q := setup(t, b)

	src := []byte{1, 2, 3, 4}
	buf, st, err := b.CreateBuffer(ctx, cl.MemReadWrite|cl.MemCopyHostPtr, 4, ptr.ToBytes(src))
	if st != cl.Success || err != nil {
		t.Fatalf("CreateBuffer = %v, %v", st, err)
	}

	dst := make([]byte, 4)
	if st, err := b.EnqueueReadBuffer(q, buf, true, 0, 4, ptr.ToBytes(dst), nil, nil); st != cl.Success || err != nil {
		t.Fatalf("EnqueueReadBuffer = %v, %v", st, err)
	}
	if !bytes.Equal(dst, src) {
		t.Fatalf("read back %v, want %v", dst, src)
	}
	if arena.Live() != 0 {
		t.Fatalf("arena has %d live allocations after release", arena.Live())
	}
}

func TestBinding_ReadWithByteOffset(t *testing.T) {
	b, _ := newTestBinding(t)
	_, _, ctx, q := setup(t, b)

	buf, st, err := b.CreateBuffer(ctx, cl.MemReadWrite, 8, nil)
	if st != cl.Success || err != nil {
		t.Fatalf("CreateBuffer = %v, %v", st, err)
	}
	if st, err := b.EnqueueWriteBuffer(q, buf, true, 0, 8, ptr.ToBytes([]byte{1, 2, 3, 4, 5, 6, 7, 8}), nil, nil); st != cl.Success || err != nil {
		t.Fatalf("EnqueueWriteBuffer = %v, %v", st, err)
	}

	// Read four bytes into the second half of the destination slice.
	dst := make([]byte, 8)
	view := ptr.ToBytes(dst).WithByteOffset(4)
	if st, err := b.EnqueueReadBuffer(q, buf, true, 0, 4, view, nil, nil); st != cl.Success || err != nil {
		t.Fatalf("EnqueueReadBuffer = %v, %v", st, err)
	}
	if !bytes.Equal(dst, []byte{0, 0, 0, 0, 1, 2, 3, 4}) {
		t.Fatalf("dst = %v", dst)
	}
}

func TestBinding_CreateContext_RegistersCallback(t *testing.T) {
	b, d := newTestBinding(t)

	platforms := make([]*cl.Platform, 1)
	if st, err := b.GetPlatformIDs(platforms, nil); st != cl.Success || err != nil {
		t.Fatalf("GetPlatformIDs = %v, %v", st, err)
	}
	devices := make([]*cl.Device, 1)
	if st, err := b.GetDeviceIDs(platforms[0], cl.DeviceTypeAll, devices, nil); st != cl.Success || err != nil {
		t.Fatalf("GetDeviceIDs = %v, %v", st, err)
	}

	got := make(chan string, 1)
	notify := callback.ContextNotifyFunc(func(errinfo string, private any, cb uint64, ud any) {
		if private != nil {
			t.Error("private info must be the nil placeholder")
		}
		if cb != 16 {
			t.Errorf("cb = %d, want 16", cb)
		}
		if ud != "user-data" {
			t.Errorf("user data = %v", ud)
		}
		got <- errinfo
	})

	ctx, st, err := b.CreateContext(nil, devices, notify, "user-data")
	if st != cl.Success || err != nil {
		t.Fatalf("CreateContext = %v, %v", st, err)
	}
	if b.Registry().Len() != 1 {
		t.Fatalf("registry size = %d, want 1", b.Registry().Len())
	}

	if !d.TriggerContextError(ctx.NativeHandle(), "device lost", 16) {
		t.Fatal("driver must see the trampoline")
	}
	d.Drain()
	if e := <-got; e != "device lost" {
		t.Fatalf("errinfo = %q", e)
	}

	if st, err := b.ReleaseContext(ctx); st != cl.Success || err != nil {
		t.Fatalf("ReleaseContext = %v, %v", st, err)
	}
	if b.Registry().Len() != 0 {
		t.Fatal("release must destroy the registration")
	}
}

func TestBinding_CreateContext_NilUserDataMakesNoRegistration(t *testing.T) {
	b, d := newTestBinding(t)

	platforms := make([]*cl.Platform, 1)
	if st, err := b.GetPlatformIDs(platforms, nil); st != cl.Success || err != nil {
		t.Fatalf("GetPlatformIDs = %v, %v", st, err)
	}
	devices := make([]*cl.Device, 1)
	if st, err := b.GetDeviceIDs(platforms[0], cl.DeviceTypeAll, devices, nil); st != cl.Success || err != nil {
		t.Fatalf("GetDeviceIDs = %v, %v", st, err)
	}

	notify := callback.ContextNotifyFunc(func(string, any, uint64, any) {
		t.Error("callback must never fire without a registration")
	})
	ctx, st, err := b.CreateContext(nil, devices, notify, nil)
	if st != cl.Success || err != nil {
		t.Fatalf("CreateContext = %v, %v", st, err)
	}
	if b.Registry().Len() != 0 {
		t.Fatal("nil user-data must not create a registration")
	}
	if d.TriggerContextError(ctx.NativeHandle(), "x", 0) {
		t.Fatal("driver must not have a trampoline to fire")
	}
}

func TestBinding_ContextProperties(t *testing.T) {
	b, d := newTestBinding(t)

	platforms := make([]*cl.Platform, 1)
	if st, err := b.GetPlatformIDs(platforms, nil); st != cl.Success || err != nil {
		t.Fatalf("GetPlatformIDs = %v, %v", st, err)
	}
	devices := make([]*cl.Device, 1)
	if st, err := b.GetDeviceIDs(platforms[0], cl.DeviceTypeAll, devices, nil); st != cl.Success || err != nil {
		t.Fatalf("GetDeviceIDs = %v, %v", st, err)
	}

	// Zero-terminated pairs; the terminator never reaches the driver.
	props := []int64{0x1084, int64(platforms[0].NativeHandle()), 0}
	ctx, st, err := b.CreateContext(ptr.ToInt64s(props), devices, nil, nil)
	if st != cl.Success || err != nil {
		t.Fatalf("CreateContext = %v, %v", st, err)
	}

	got, ok := d.ContextProperties(ctx.NativeHandle())
	if !ok {
		t.Fatal("context must exist")
	}
	want := []int64{0x1084, int64(platforms[0].NativeHandle())}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("properties = %v, want %v", got, want)
	}
}

func TestBinding_BuildProgramAsyncAndKernelArgs(t *testing.T) {
	b, d := newTestBinding(t)
	_, device, ctx, _ := setup(t, b)

	prog, st, err := b.CreateProgramWithSource(ctx, []string{"__kernel void k() {}"})
	if st != cl.Success || err != nil {
		t.Fatalf("CreateProgramWithSource = %v, %v", st, err)
	}

	built := make(chan uint64, 1)
	notify := callback.BuildNotifyFunc(func(program uint64, ud any) {
		if ud != "build-ud" {
			t.Errorf("user data = %v", ud)
		}
		built <- program
	})
	if st, err := b.BuildProgram(prog, []*cl.Device{device}, "", notify, "build-ud"); st != cl.Success || err != nil {
		t.Fatalf("BuildProgram = %v, %v", st, err)
	}
	d.Drain()
	if got := <-built; got != prog.NativeHandle() {
		t.Fatalf("built program = %#x", got)
	}

	kernel, st, err := b.CreateKernel(prog, "k")
	if st != cl.Success || err != nil {
		t.Fatalf("CreateKernel = %v, %v", st, err)
	}

	arg := []float32{1.5, 2.5}
	if st, err := b.SetKernelArg(kernel, 0, 8, ptr.ToFloat32s(arg)); st != cl.Success || err != nil {
		t.Fatalf("SetKernelArg = %v, %v", st, err)
	}
	stored, ok := d.KernelArg(kernel.NativeHandle(), 0)
	if !ok || len(stored) != 8 {
		t.Fatalf("stored arg = %v, %v", stored, ok)
	}
}

func TestBinding_EnqueueNativeKernel(t *testing.T) {
	b, _ := newTestBinding(t)
	_, _, _, q := setup(t, b)

	ran := make(chan any, 1)
	fn := callback.NativeKernelFunc(func(args any) { ran <- args })

	var ev cl.Event
	if st, err := b.EnqueueNativeKernel(q, fn, []int{1, 2}, nil, &ev); st != cl.Success || err != nil {
		t.Fatalf("EnqueueNativeKernel = %v, %v", st, err)
	}
	if ev.NativeHandle() == 0 {
		t.Fatal("event must be populated")
	}
	if st, err := b.WaitForEvents([]*cl.Event{&ev}); st != cl.Success || err != nil {
		t.Fatalf("WaitForEvents = %v, %v", st, err)
	}
	if args := <-ran; args == nil {
		t.Fatal("kernel must receive its args")
	}
}

func TestBinding_NilWrapperArguments(t *testing.T) {
	b, _ := newTestBinding(t)

	if st, err := b.ReleaseContext(nil); st != cl.InvalidContext || err == nil {
		t.Fatalf("ReleaseContext(nil) = %v, %v", st, err)
	}
	if _, st, err := b.CreateBuffer(nil, cl.MemReadWrite, 4, nil); st != cl.InvalidContext || err == nil {
		t.Fatalf("CreateBuffer(nil ctx) = %v, %v", st, err)
	}
	if st, err := b.WaitForEvents(nil); st != cl.InvalidValue || err == nil {
		t.Fatalf("WaitForEvents(nil) = %v, %v", st, err)
	}
}
