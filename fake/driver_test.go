package fake

import (
	"bytes"
	"testing"

	"github.com/hostcl/clbridge/cl"
	"github.com/hostcl/clbridge/mem"
)

func newTestDriver(t *testing.T, opts ...Option) (*Driver, *mem.HeapArena) {
	t.Helper()
	d := New(opts...)
	arena := mem.NewHeapArena()
	t.Cleanup(func() {
		d.Close()
		arena.Close()
	})
	return d, arena
}

// firstPlatform enumerates and returns the first platform handle.
func firstPlatform(t *testing.T, d *Driver, arena *mem.HeapArena) uint64 {
	t.Helper()
	arr, err := arena.Alloc(mem.SlotSize)
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	defer arena.Free(arr, mem.SlotSize)
	cnt, err := arena.Alloc(4)
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	defer arena.Free(cnt, 4)

	if st := d.GetPlatformIDs(1, arr, cnt); st != cl.Success {
		t.Fatalf("GetPlatformIDs = %v", st)
	}
	return mem.ReadSlot(arr, 0)
}

func firstDevice(t *testing.T, d *Driver, arena *mem.HeapArena, platform uint64) uint64 {
	t.Helper()
	arr, err := arena.Alloc(mem.SlotSize)
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	defer arena.Free(arr, mem.SlotSize)

	if st := d.GetDeviceIDs(platform, cl.DeviceTypeAll, 1, arr, 0); st != cl.Success {
		t.Fatalf("GetDeviceIDs = %v", st)
	}
	return mem.ReadSlot(arr, 0)
}

func TestDriver_PlatformEnumeration(t *testing.T) {
	d, arena := newTestDriver(t)

	cnt, err := arena.Alloc(4)
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	defer arena.Free(cnt, 4)

	// Count-only query.
	if st := d.GetPlatformIDs(0, 0, cnt); st != cl.Success {
		t.Fatalf("count query = %v", st)
	}
	if got := mem.ReadUint32(cnt); got != 1 {
		t.Fatalf("platform count = %d, want 1", got)
	}

	// Asking for handles with zero capacity is invalid.
	arr, err := arena.Alloc(mem.SlotSize)
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	defer arena.Free(arr, mem.SlotSize)
	if st := d.GetPlatformIDs(0, arr, 0); st != cl.InvalidValue {
		t.Fatalf("zero capacity with array = %v, want INVALID_VALUE", st)
	}

	if h := firstPlatform(t, d, arena); h == 0 {
		t.Fatal("platform handle must be non-zero")
	}
}

func TestDriver_PlatformInfo(t *testing.T) {
	d, arena := newTestDriver(t, WithPlatform(PlatformSpec{
		Name:    "test platform",
		Vendor:  "testers",
		Version: "OpenCL 3.0 test",
		Devices: []DeviceSpec{{Name: "dev", Type: cl.DeviceTypeCPU}},
	}))
	p := firstPlatform(t, d, arena)

	sizeRet, err := arena.Alloc(mem.SlotSize)
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	defer arena.Free(sizeRet, mem.SlotSize)

	if st := d.GetPlatformInfo(p, cl.PlatformName, 0, 0, sizeRet); st != cl.Success {
		t.Fatalf("size query = %v", st)
	}
	need := int(mem.ReadUint64(sizeRet))
	if need != len("test platform")+1 {
		t.Fatalf("size = %d", need)
	}

	buf, err := arena.Alloc(need)
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	defer arena.Free(buf, need)

	if st := d.GetPlatformInfo(p, cl.PlatformName, need, buf, 0); st != cl.Success {
		t.Fatalf("value query = %v", st)
	}
	got := mem.Bytes(buf, need)
	if string(got[:need-1]) != "test platform" || got[need-1] != 0 {
		t.Fatalf("value = %q", got)
	}

	// Undersized buffer is rejected.
	if st := d.GetPlatformInfo(p, cl.PlatformName, 2, buf, 0); st != cl.InvalidValue {
		t.Fatalf("undersized = %v, want INVALID_VALUE", st)
	}
}

func TestDriver_BufferRoundTrip(t *testing.T) {
	d, arena := newTestDriver(t)
	p := firstPlatform(t, d, arena)
	dev := firstDevice(t, d, arena, p)

	ctx, st := d.CreateContext(nil, []uint64{dev}, nil, nil)
	if st != cl.Success {
		t.Fatalf("CreateContext = %v", st)
	}
	q, st := d.CreateCommandQueue(ctx, dev, 0)
	if st != cl.Success {
		t.Fatalf("CreateCommandQueue = %v", st)
	}

	buf, st := d.CreateBuffer(ctx, cl.MemReadWrite, 8, 0)
	if st != cl.Success {
		t.Fatalf("CreateBuffer = %v", st)
	}

	src, err := arena.Alloc(8)
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	defer arena.Free(src, 8)
	copy(mem.Bytes(src, 8), []byte{1, 2, 3, 4, 5, 6, 7, 8})

	ev, st := d.EnqueueWriteBuffer(q, buf, true, 0, 8, src, nil)
	if st != cl.Success {
		t.Fatalf("EnqueueWriteBuffer = %v", st)
	}
	if st := d.WaitForEvents([]uint64{ev}); st != cl.Success {
		t.Fatalf("WaitForEvents = %v", st)
	}

	dst, err := arena.Alloc(8)
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	defer arena.Free(dst, 8)

	if _, st := d.EnqueueReadBuffer(q, buf, true, 0, 8, dst, nil); st != cl.Success {
		t.Fatalf("EnqueueReadBuffer = %v", st)
	}
	if !bytes.Equal(mem.Bytes(dst, 8), []byte{1, 2, 3, 4, 5, 6, 7, 8}) {
		t.Fatalf("read back %v", mem.Bytes(dst, 8))
	}

	// Out-of-range transfer is rejected.
	if _, st := d.EnqueueReadBuffer(q, buf, true, 4, 8, dst, nil); st != cl.InvalidValue {
		t.Fatalf("out-of-range read = %v, want INVALID_VALUE", st)
	}
}

func TestDriver_AsyncBuild(t *testing.T) {
	d, arena := newTestDriver(t)
	p := firstPlatform(t, d, arena)
	dev := firstDevice(t, d, arena, p)

	ctx, _ := d.CreateContext(nil, []uint64{dev}, nil, nil)
	prog, st := d.CreateProgramWithSource(ctx, []string{"__kernel void k() {}"})
	if st != cl.Success {
		t.Fatalf("CreateProgramWithSource = %v", st)
	}

	// A kernel cannot be created before the build completes.
	if _, st := d.CreateKernel(prog, "k"); st != cl.InvalidProgramExecutable {
		t.Fatalf("kernel before build = %v, want INVALID_PROGRAM_EXECUTABLE", st)
	}

	notified := make(chan uint64, 1)
	st = d.BuildProgram(prog, []uint64{dev}, "", func(program uint64, _ any) {
		notified <- program
	}, nil)
	if st != cl.Success {
		t.Fatalf("BuildProgram = %v", st)
	}
	d.Drain()

	if got := <-notified; got != prog {
		t.Fatalf("notified program = %#x, want %#x", got, prog)
	}
	if _, st := d.CreateKernel(prog, "k"); st != cl.Success {
		t.Fatalf("kernel after build = %v", st)
	}
}

func TestDriver_NativeKernelRunsOnWorker(t *testing.T) {
	d, arena := newTestDriver(t)
	p := firstPlatform(t, d, arena)
	dev := firstDevice(t, d, arena, p)

	ctx, _ := d.CreateContext(nil, []uint64{dev}, nil, nil)
	q, _ := d.CreateCommandQueue(ctx, dev, 0)

	ran := make(chan any, 1)
	ev, st := d.EnqueueNativeKernel(q, func(ud any) { ran <- ud }, "payload", nil)
	if st != cl.Success {
		t.Fatalf("EnqueueNativeKernel = %v", st)
	}
	if st := d.WaitForEvents([]uint64{ev}); st != cl.Success {
		t.Fatalf("WaitForEvents = %v", st)
	}
	if got := <-ran; got != "payload" {
		t.Fatalf("user data = %v", got)
	}
}

func TestDriver_TriggerContextError(t *testing.T) {
	d, arena := newTestDriver(t)
	p := firstPlatform(t, d, arena)
	dev := firstDevice(t, d, arena, p)

	got := make(chan string, 1)
	ctx, st := d.CreateContext(nil, []uint64{dev},
		func(errinfo string, _ uintptr, _ uintptr, _ any) { got <- errinfo }, "ud")
	if st != cl.Success {
		t.Fatalf("CreateContext = %v", st)
	}

	if !d.TriggerContextError(ctx, "device lost", 16) {
		t.Fatal("TriggerContextError must find the callback")
	}
	d.Drain()
	if e := <-got; e != "device lost" {
		t.Fatalf("errinfo = %q", e)
	}

	// Contexts created without a callback cannot be triggered.
	plain, _ := d.CreateContext(nil, []uint64{dev}, nil, nil)
	if d.TriggerContextError(plain, "x", 0) {
		t.Fatal("trigger without a callback must report false")
	}
}
