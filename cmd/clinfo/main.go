package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/hostcl/clbridge/cl"
	"github.com/hostcl/clbridge/fake"
	"github.com/hostcl/clbridge/ptr"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	keyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	ruleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

func main() {
	var (
		demo        = flag.Bool("demo", false, "Run a buffer round-trip on the first device")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	binding, driver := newBinding()
	defer driver.Close()

	if *interactive {
		if err := runInteractive(binding, driver); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := list(binding); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *demo {
		if err := runDemo(binding); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
}

// newBinding wires the binding over the in-process driver. A real ICD
// loader would slot in behind the same cl.Driver seam.
func newBinding() (*cl.Binding, *fake.Driver) {
	driver := fake.New()
	return cl.New(driver), driver
}

func list(b *cl.Binding) error {
	platforms, err := enumeratePlatforms(b)
	if err != nil {
		return err
	}

	width := 60
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 && w < width {
		width = w
	}
	rule := ruleStyle.Render(strings.Repeat("-", width))

	fmt.Println(headerStyle.Render("clinfo"))
	fmt.Printf("Platforms: %d\n", len(platforms))

	for i, p := range platforms {
		fmt.Println(rule)
		fmt.Printf("Platform #%d\n", i)
		for _, param := range []struct {
			label string
			key   uint32
		}{
			{"Name", cl.PlatformName},
			{"Vendor", cl.PlatformVendor},
			{"Version", cl.PlatformVersion},
			{"Profile", cl.PlatformProfile},
		} {
			v, err := platformString(b, p, param.key)
			if err != nil {
				return err
			}
			fmt.Printf("  %s %s\n", keyStyle.Render(param.label+":"), valueStyle.Render(v))
		}

		devices, err := enumerateDevices(b, p)
		if err != nil {
			return err
		}
		for j, d := range devices {
			name, err := deviceString(b, d, cl.DeviceName)
			if err != nil {
				return err
			}
			fmt.Printf("  Device #%d: %s\n", j, valueStyle.Render(name))
		}
	}
	return nil
}

// runDemo writes a payload through a device buffer and reads it back,
// exercising the full marshalling path from the command line.
func runDemo(b *cl.Binding) error {
	platforms, err := enumeratePlatforms(b)
	if err != nil {
		return err
	}
	if len(platforms) == 0 {
		return fmt.Errorf("no platforms")
	}
	devices, err := enumerateDevices(b, platforms[0])
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		return fmt.Errorf("no devices")
	}

	out, err := roundTrip(b, devices[0], []byte("clinfo demo payload"))
	if err != nil {
		return err
	}
	fmt.Printf("\nRound trip: %s\n", valueStyle.Render(string(out)))
	return nil
}

// roundTrip pushes payload through a fresh context, queue and buffer on
// the given device and returns what came back.
func roundTrip(b *cl.Binding, device *cl.Device, payload []byte) ([]byte, error) {
	ctx, st, err := b.CreateContext(nil, []*cl.Device{device}, nil, nil)
	if err != nil {
		return nil, err
	}
	if st != cl.Success {
		return nil, fmt.Errorf("CreateContext: %s", st)
	}
	defer b.ReleaseContext(ctx)

	q, st, err := b.CreateCommandQueue(ctx, device, 0)
	if err != nil {
		return nil, err
	}
	if st != cl.Success {
		return nil, fmt.Errorf("CreateCommandQueue: %s", st)
	}
	defer b.ReleaseCommandQueue(q)

	buf, st, err := b.CreateBuffer(ctx, cl.MemReadWrite, len(payload), nil)
	if err != nil {
		return nil, err
	}
	if st != cl.Success {
		return nil, fmt.Errorf("CreateBuffer: %s", st)
	}
	defer b.ReleaseMemObject(buf)

	if st, err := b.EnqueueWriteBuffer(q, buf, true, 0, len(payload), ptr.ToBytes(payload), nil, nil); err != nil || st != cl.Success {
		return nil, fmt.Errorf("EnqueueWriteBuffer: %s, %v", st, err)
	}

	out := make([]byte, len(payload))
	if st, err := b.EnqueueReadBuffer(q, buf, true, 0, len(out), ptr.ToBytes(out), nil, nil); err != nil || st != cl.Success {
		return nil, fmt.Errorf("EnqueueReadBuffer: %s, %v", st, err)
	}
	return out, nil
}

func enumeratePlatforms(b *cl.Binding) ([]*cl.Platform, error) {
	var count uint32
	if st, err := b.GetPlatformIDs(nil, &count); err != nil || st != cl.Success {
		return nil, fmt.Errorf("GetPlatformIDs: %s, %v", st, err)
	}
	platforms := make([]*cl.Platform, count)
	if count == 0 {
		return platforms, nil
	}
	if st, err := b.GetPlatformIDs(platforms, nil); err != nil || st != cl.Success {
		return nil, fmt.Errorf("GetPlatformIDs: %s, %v", st, err)
	}
	return platforms, nil
}

func enumerateDevices(b *cl.Binding, p *cl.Platform) ([]*cl.Device, error) {
	var count uint32
	if st, err := b.GetDeviceIDs(p, cl.DeviceTypeAll, nil, &count); err != nil || st != cl.Success {
		return nil, fmt.Errorf("GetDeviceIDs: %s, %v", st, err)
	}
	devices := make([]*cl.Device, count)
	if count == 0 {
		return devices, nil
	}
	if st, err := b.GetDeviceIDs(p, cl.DeviceTypeAll, devices, nil); err != nil || st != cl.Success {
		return nil, fmt.Errorf("GetDeviceIDs: %s, %v", st, err)
	}
	return devices, nil
}

func platformString(b *cl.Binding, p *cl.Platform, param uint32) (string, error) {
	var need int
	if st, err := b.GetPlatformInfo(p, param, 0, nil, &need); err != nil || st != cl.Success {
		return "", fmt.Errorf("GetPlatformInfo: %s, %v", st, err)
	}
	if need == 0 {
		return "", nil
	}
	value := make([]byte, need)
	if st, err := b.GetPlatformInfo(p, param, need, ptr.ToBytes(value), nil); err != nil || st != cl.Success {
		return "", fmt.Errorf("GetPlatformInfo: %s, %v", st, err)
	}
	return cString(value), nil
}

func deviceString(b *cl.Binding, d *cl.Device, param uint32) (string, error) {
	var need int
	if st, err := b.GetDeviceInfo(d, param, 0, nil, &need); err != nil || st != cl.Success {
		return "", fmt.Errorf("GetDeviceInfo: %s, %v", st, err)
	}
	if need == 0 {
		return "", nil
	}
	value := make([]byte, need)
	if st, err := b.GetDeviceInfo(d, param, need, ptr.ToBytes(value), nil); err != nil || st != cl.Success {
		return "", fmt.Errorf("GetDeviceInfo: %s, %v", st, err)
	}
	return cString(value), nil
}

func cString(b []byte) string {
	if i := strings.IndexByte(string(b), 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}
