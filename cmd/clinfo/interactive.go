package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hostcl/clbridge/cl"
	"github.com/hostcl/clbridge/fake"
)

var (
	deviceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type deviceEntry struct {
	device   *cl.Device
	platform string
	name     string
	vendor   string
	version  string
}

type modelState int

const (
	stateSelectDevice modelState = iota
	stateInputPayload
	stateShowResult
)

type interactiveModel struct {
	err      error
	binding  *cl.Binding
	driver   *fake.Driver
	devices  []deviceEntry
	input    textinput.Model
	result   string
	selected int
	state    modelState
}

type loadedMsg struct {
	err     error
	devices []deviceEntry
}

type tripResultMsg struct {
	err    error
	result string
}

func newInteractiveModel(b *cl.Binding, d *fake.Driver) *interactiveModel {
	return &interactiveModel{
		binding: b,
		driver:  d,
		state:   stateSelectDevice,
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.loadDevices
}

func (m *interactiveModel) loadDevices() tea.Msg {
	platforms, err := enumeratePlatforms(m.binding)
	if err != nil {
		return loadedMsg{err: err}
	}

	var entries []deviceEntry
	for _, p := range platforms {
		pname, err := platformString(m.binding, p, cl.PlatformName)
		if err != nil {
			return loadedMsg{err: err}
		}
		devices, err := enumerateDevices(m.binding, p)
		if err != nil {
			return loadedMsg{err: err}
		}
		for _, d := range devices {
			e := deviceEntry{device: d, platform: pname}
			if e.name, err = deviceString(m.binding, d, cl.DeviceName); err != nil {
				return loadedMsg{err: err}
			}
			if e.vendor, err = deviceString(m.binding, d, cl.DeviceVendor); err != nil {
				return loadedMsg{err: err}
			}
			if e.version, err = deviceString(m.binding, d, cl.DeviceVersion); err != nil {
				return loadedMsg{err: err}
			}
			entries = append(entries, e)
		}
	}
	return loadedMsg{devices: entries}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.state != stateInputPayload || msg.String() == "ctrl+c" {
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectDevice && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectDevice && m.selected < len(m.devices)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectDevice:
				if len(m.devices) == 0 {
					return m, nil
				}
				ti := textinput.New()
				ti.Placeholder = "payload to round-trip"
				ti.Prompt = "payload: "
				ti.Width = 40
				ti.Focus()
				m.input = ti
				m.state = stateInputPayload

			case stateInputPayload:
				return m, m.runTrip

			case stateShowResult:
				m.state = stateSelectDevice
				m.result = ""
				m.err = nil
			}

		case "esc":
			switch m.state {
			case stateInputPayload:
				m.state = stateSelectDevice
			case stateShowResult:
				m.state = stateSelectDevice
				m.result = ""
				m.err = nil
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.devices = msg.devices

	case tripResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputPayload {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *interactiveModel) runTrip() tea.Msg {
	payload := m.input.Value()
	if payload == "" {
		payload = "ping"
	}

	out, err := roundTrip(m.binding, m.devices[m.selected].device, []byte(payload))
	if err != nil {
		return tripResultMsg{err: err}
	}
	return tripResultMsg{result: string(out)}
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if len(m.devices) == 0 {
		return "Enumerating devices..."
	}

	var b strings.Builder

	b.WriteString(headerStyle.Render("clinfo"))
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectDevice:
		b.WriteString("Select a device:\n\n")
		for i, e := range m.devices {
			line := fmt.Sprintf("%s  (%s, %s)", e.name, e.platform, e.version)
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + deviceStyle.Render(line))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter round-trip • q quit"))

	case stateInputPayload:
		e := m.devices[m.selected]
		b.WriteString(fmt.Sprintf("Round-trip on %s\n\n", deviceStyle.Render(e.name)))
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter run • esc back"))

	case stateShowResult:
		e := m.devices[m.selected]
		b.WriteString(fmt.Sprintf("Result on %s:\n\n", deviceStyle.Render(e.name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func runInteractive(b *cl.Binding, d *fake.Driver) error {
	p := tea.NewProgram(newInteractiveModel(b, d), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
