package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/ledbench/internal/color"
	"github.com/muurk/ledbench/internal/deviceapi"
	"github.com/muurk/ledbench/internal/picker"
	"github.com/muurk/ledbench/internal/session"
)

const (
	// wheelRows is the height of the colour wheel in terminal rows
	wheelRows = 11

	// wheelTop and wheelLeft place the wheel inside the control content
	wheelTop  = 3
	wheelLeft = 2

	// the hue strip sits one blank row under the wheel
	stripRows = 2
	stripTop  = wheelTop + wheelRows + 1

	// maxResultLines caps the results pane
	maxResultLines = 50

	brightnessStep = 10
	wheelHueStep   = 10
	wheelSatStep   = 10
	wheelValueStep = 10
)

// controlKeyMap defines key bindings for the control screen
type controlKeyMap struct {
	PowerOn   key.Binding
	PowerOff  key.Binding
	Preset    key.Binding
	Brighter  key.Binding
	Dimmer    key.Binding
	Hue       key.Binding
	Sat       key.Binding
	Value     key.Binding
	Send      key.Binding
	Sequence  key.Binding
	Cancel    key.Binding
	Broadcast key.Binding
	Mute      key.Binding
	Export    key.Binding
	Clear     key.Binding
	Refresh   key.Binding
	Drop      key.Binding
	Devices   key.Binding
	Quit      key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k controlKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Preset, k.Send, k.Sequence, k.Cancel, k.Export, k.Devices, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k controlKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.PowerOn, k.PowerOff, k.Preset, k.Brighter, k.Dimmer},
		{k.Hue, k.Sat, k.Value, k.Send},
		{k.Sequence, k.Cancel, k.Broadcast, k.Mute},
		{k.Export, k.Clear, k.Refresh, k.Drop, k.Devices, k.Quit},
	}
}

// sequenceKeys maps a key to a built-in sequence
var sequenceKeys = map[string]string{
	"a": session.SeqAllColors,
	"w": session.SeqRainbow,
	"g": session.SeqGradient,
	"n": session.SeqRandom,
	"f": session.SeqFull,
}

// ControlModel is the device control screen
type ControlModel struct {
	Wheel      Wheel
	Strip      HueStrip
	Brightness int

	// Status is a one-line note such as the last report path
	Status string

	Keys controlKeyMap
}

// NewControlModel creates the control screen for the given wheel geometry
func NewControlModel(circle picker.Circle) ControlModel {
	return ControlModel{
		Wheel:      NewWheel(circle, wheelRows),
		Strip:      NewHueStrip(picker.DefaultStrip(), wheelRows*2, stripRows),
		Brightness: 100,
		Keys: controlKeyMap{
			PowerOn:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "power on")),
			PowerOff:  key.NewBinding(key.WithKeys("P"), key.WithHelp("P", "power off")),
			Preset:    key.NewBinding(key.WithKeys("0", "1", "2", "3", "4", "5", "6", "7"), key.WithHelp("0-7", "preset")),
			Brighter:  key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "brighter")),
			Dimmer:    key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "dimmer")),
			Hue:       key.NewBinding(key.WithKeys("left", "right", "h", "l"), key.WithHelp("←/→", "hue")),
			Sat:       key.NewBinding(key.WithKeys("up", "down", "k", "j"), key.WithHelp("↑/↓", "saturation")),
			Value:     key.NewBinding(key.WithKeys("[", "]"), key.WithHelp("[/]", "value")),
			Send:      key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter/click", "send colour")),
			Sequence:  key.NewBinding(key.WithKeys("a", "w", "g", "n", "f"), key.WithHelp("a/w/g/n/f", "sequence")),
			Cancel:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "stop sequence")),
			Broadcast: key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "broadcast on")),
			Mute:      key.NewBinding(key.WithKeys("B"), key.WithHelp("B", "broadcast off")),
			Export:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export report")),
			Clear:     key.NewBinding(key.WithKeys("C"), key.WithHelp("C", "clear results")),
			Refresh:   key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "refresh info")),
			Drop:      key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "disconnect")),
			Devices:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "devices")),
			Quit:      key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		},
	}
}

// syncFromInfo picks up brightness and colour reported by the device
func (m *ControlModel) syncFromInfo(info *deviceapi.DeviceInfo) {
	if info == nil {
		return
	}
	if v, ok := info.Extra["brightness"].(float64); ok {
		m.Brightness = int(color.ClampPercent(v))
	}
	if v, ok := info.Extra["value"].(float64); ok && v > 0 {
		m.Wheel.Value = color.ClampPercent(v)
	}
}

// wheelCell converts a terminal position to a wheel grid cell
func wheelCell(x, y int) (col, row int) {
	return x - ContentOriginX - wheelLeft, y - ContentOriginY - wheelTop
}

// stripCell converts a terminal position to a hue strip grid cell
func stripCell(x, y int) (col, row int) {
	return x - ContentOriginX - wheelLeft, y - ContentOriginY - stripTop
}

func (m AppModel) updateControl(msg tea.Msg) (tea.Model, tea.Cmd) {
	c := &m.Control

	switch msg := msg.(type) {
	case tea.MouseMsg:
		if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
			return m, nil
		}
		if x, y, ok := c.Wheel.CellPoint(wheelCell(msg.X, msg.Y)); ok {
			c.Wheel.MoveTo(x, y)
			return m, m.perform(session.Pick(c.Wheel.Circle, x, y, c.Wheel.Value, nil))
		}
		col, row := stripCell(msg.X, msg.Y)
		if hsv, ok := c.Strip.Pick(col, row); ok {
			x, y, _ := c.Strip.CellPoint(col, row)
			c.Wheel.Hue, c.Wheel.Saturation, c.Wheel.Value = hsv.Hue, hsv.Saturation, hsv.Value
			return m, m.perform(session.StripPick(c.Strip.Strip, x, y, nil))
		}
		return m, nil

	case tea.KeyMsg:
		k := msg.String()
		switch {
		case key.Matches(msg, c.Keys.Quit):
			return m.quit()
		case key.Matches(msg, c.Keys.Devices):
			m.CurrentScreen = ScreenDiscovery
		case key.Matches(msg, c.Keys.PowerOn):
			return m, m.perform(session.Power(true))
		case key.Matches(msg, c.Keys.PowerOff):
			return m, m.perform(session.Power(false))
		case key.Matches(msg, c.Keys.Preset):
			return m, m.perform(session.Preset(int(k[0] - '0')))
		case key.Matches(msg, c.Keys.Brighter):
			c.Brightness = min(100, c.Brightness+brightnessStep)
			return m, m.perform(session.Brightness(c.Brightness))
		case key.Matches(msg, c.Keys.Dimmer):
			c.Brightness = max(0, c.Brightness-brightnessStep)
			return m, m.perform(session.Brightness(c.Brightness))
		case key.Matches(msg, c.Keys.Hue):
			if k == "right" || k == "l" {
				c.Wheel.Nudge(wheelHueStep, 0)
			} else {
				c.Wheel.Nudge(-wheelHueStep, 0)
			}
		case key.Matches(msg, c.Keys.Sat):
			if k == "up" || k == "k" {
				c.Wheel.Nudge(0, wheelSatStep)
			} else {
				c.Wheel.Nudge(0, -wheelSatStep)
			}
		case key.Matches(msg, c.Keys.Value):
			if k == "]" {
				c.Wheel.Value = color.ClampPercent(c.Wheel.Value + wheelValueStep)
			} else {
				c.Wheel.Value = color.ClampPercent(c.Wheel.Value - wheelValueStep)
			}
		case key.Matches(msg, c.Keys.Send):
			return m, m.perform(session.HSV(c.Wheel.Selected(), nil))
		case key.Matches(msg, c.Keys.Sequence):
			m.startSequence(sequenceKeys[k])
		case key.Matches(msg, c.Keys.Cancel):
			m.sess.CancelSequence()
		case key.Matches(msg, c.Keys.Broadcast):
			return m, m.perform(session.Broadcast(true))
		case key.Matches(msg, c.Keys.Mute):
			return m, m.perform(session.Broadcast(false))
		case key.Matches(msg, c.Keys.Export):
			m.exportReport()
		case key.Matches(msg, c.Keys.Clear):
			m.sess.ClearResults()
			c.Status = ""
		case key.Matches(msg, c.Keys.Refresh):
			if conn := m.sess.Connection(); conn != nil {
				return m, m.dial(conn.IP)
			}
		case key.Matches(msg, c.Keys.Drop):
			m.sess.CancelSequence()
			m.sess.Disconnect()
			m.CurrentScreen = ScreenDiscovery
		}
	}
	return m, nil
}

// View renders the control screen
func (m ControlModel) View(sess *session.Session, width, height int) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(m.connectionLine(sess))
	b.WriteString("\n\n")

	wheel := lipgloss.NewStyle().MarginLeft(wheelLeft).Render(
		m.Wheel.Render() + "\n\n" + m.Strip.Render(m.Wheel.Selected()))
	side := lipgloss.JoinVertical(lipgloss.Left,
		m.selectionPanel(),
		"",
		presetPalette(),
	)
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, wheel, "   ", side))
	b.WriteString("\n\n")

	if m.Status != "" {
		b.WriteString("  " + m.Status + "\n")
	}

	lines := height - wheelRows - stripRows - 15
	b.WriteString(renderResults(sess, lines, width-8))
	return b.String()
}

func (m ControlModel) connectionLine(sess *session.Session) string {
	conn := sess.Connection()
	if conn == nil {
		return WarnStyle.Render("  Not connected. Press tab to pick a device.")
	}
	line := fmt.Sprintf("  %s %s  %s",
		LabelStyle.Render("Device"),
		ValueStyle.Render(conn.IP),
		LabelStyle.Render(conn.Info.Summary()))
	if seq := sess.Sequence(); seq != nil {
		line += "  " + WarnStyle.Render(fmt.Sprintf("▶ %s %d/%d", seq.Name, seq.Step, seq.Total))
	}
	return line
}

func (m ControlModel) selectionPanel() string {
	sel := m.Wheel.Selected()
	rgb := sel.RGB()
	swatch := lipgloss.NewStyle().Background(lipgloss.Color(rgb.Hex())).Render("      ")

	rows := []string{
		RenderTitle("Selected colour"),
		fmt.Sprintf("%s  %s", swatch, ValueStyle.Render(sel.String())),
		LabelStyle.Render(fmt.Sprintf("RGB %d,%d,%d  %s", rgb.R, rgb.G, rgb.B, rgb.Hex())),
		"",
		fmt.Sprintf("%s %s", LabelStyle.Render("Brightness"), ValueStyle.Render(fmt.Sprintf("%d%%", m.Brightness))),
	}
	return strings.Join(rows, "\n")
}

func presetPalette() string {
	cells := make([]string, 0, color.MaxPreset+1)
	for _, p := range color.Presets() {
		label := fmt.Sprintf(" %d ", p.Index)
		style := lipgloss.NewStyle().Background(lipgloss.Color(p.Preview)).Foreground(lipgloss.Color("#000000"))
		cells = append(cells, style.Render(label))
	}
	return RenderTitle("Presets") + "\n" + strings.Join(cells, " ")
}

func renderResults(sess *session.Session, lines, width int) string {
	if lines < 3 {
		lines = 3
	}
	recent := sess.Results().Recent(min(lines, maxResultLines))

	summary := sess.Results().Summary()
	title := fmt.Sprintf("Results  %d total, %d ok, %d failed", summary.Total, summary.Succeeded, summary.Failed)

	out := []string{RenderTitle(title)}
	if len(recent) == 0 {
		out = append(out, LabelStyle.Render("no results yet"))
	}
	for _, r := range recent {
		mark := OKStyle.Render("✓")
		outcome := ""
		if !r.Succeeded() {
			mark = FailStyle.Render("✗")
			outcome = "  " + FailStyle.Render(r.Outcome)
		}
		out = append(out, fmt.Sprintf("%s %s %s%s", LabelStyle.Render(r.Time.Format("15:04:05")), mark, r.Label, outcome))
	}
	return PaneStyle.Width(width).Render(strings.Join(out, "\n"))
}
