package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/ledbench/internal/deviceapi"
	"github.com/muurk/ledbench/internal/discovery"
	"github.com/muurk/ledbench/internal/session"
)

// messagePaneLines is how many broadcast messages the discovery screen shows
const messagePaneLines = 6

// discoveryKeyMap defines key bindings for the discovery screen
type discoveryKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Connect key.Binding
	Rescan  key.Binding
	Manual  key.Binding
	Listen  key.Binding
	Clear   key.Binding
	Control key.Binding
	Quit    key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k discoveryKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Connect, k.Rescan, k.Manual, k.Listen, k.Clear, k.Control, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k discoveryKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Connect},
		{k.Rescan, k.Manual, k.Listen, k.Clear},
		{k.Control, k.Quit},
	}
}

// manualKeyMap defines key bindings for manual IP entry
type manualKeyMap struct {
	Confirm key.Binding
	Cancel  key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k manualKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Confirm, k.Cancel}
}

// FullHelp returns keybindings for the expanded help view
func (k manualKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Confirm, k.Cancel}}
}

// deviceItem wraps a Device for use with bubbles/list
type deviceItem struct {
	device *discovery.Device
}

func (d deviceItem) FilterValue() string {
	return d.device.IP + " " + d.device.DeviceID + " " + d.device.Name
}

func (d deviceItem) Title() string {
	return fmt.Sprintf("%s  %s", d.device.IP, d.device.Name)
}

func (d deviceItem) Description() string {
	return fmt.Sprintf("%s • %s • via %s", d.device.DeviceID, d.device.Status, d.device.Source)
}

// DiscoveryModel is the device discovery screen
type DiscoveryModel struct {
	Scanning    bool
	ScanStarted time.Time
	DeviceList  list.Model

	ManualMode bool
	IPInput    textinput.Model
	InputErr   error

	Spinner    spinner.Model
	Keys       discoveryKeyMap
	ManualKeys manualKeyMap
}

// NewDiscoveryModel creates a new discovery screen model
func NewDiscoveryModel() DiscoveryModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	ipInput := textinput.New()
	ipInput.Placeholder = "192.168.1.23"
	ipInput.CharLimit = 15
	ipInput.Width = 20

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(HighlightColor).BorderForeground(HighlightColor)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.BorderForeground(HighlightColor)

	devices := list.New([]list.Item{}, delegate, MinTerminalWidth-4, 10)
	devices.Title = "Devices"
	devices.Styles.Title = TitleStyle
	devices.SetShowStatusBar(false)
	devices.SetShowHelp(false)
	devices.SetFilteringEnabled(false)

	return DiscoveryModel{
		DeviceList: devices,
		IPInput:    ipInput,
		Spinner:    s,
		Keys: discoveryKeyMap{
			Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
			Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
			Connect: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "connect")),
			Rescan:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rescan")),
			Manual:  key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "manual IP")),
			Listen:  key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "UDP listen")),
			Clear:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear")),
			Control: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "control")),
			Quit:    key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		},
		ManualKeys: manualKeyMap{
			Confirm: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "connect")),
			Cancel:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		},
	}
}

func (m *DiscoveryModel) resize(width, height int) {
	m.DeviceList.SetWidth(width - 4)
	m.DeviceList.SetHeight(max(height-messagePaneLines-12, 6))
}

func (m *DiscoveryModel) setDevices(devices []*discovery.Device) {
	items := make([]list.Item, len(devices))
	for i, d := range devices {
		items[i] = deviceItem{device: d}
	}
	m.DeviceList.SetItems(items)
}

// SelectedDevice returns the highlighted device, or nil
func (m DiscoveryModel) SelectedDevice() *discovery.Device {
	if item, ok := m.DeviceList.SelectedItem().(deviceItem); ok {
		return item.device
	}
	return nil
}

func (m DiscoveryModel) helpKeys() help.KeyMap {
	if m.ManualMode {
		return m.ManualKeys
	}
	return m.Keys
}

func (m AppModel) updateDiscovery(msg tea.Msg) (tea.Model, tea.Cmd) {
	d := &m.Discovery

	if keyMsg, ok := msg.(tea.KeyMsg); ok && d.ManualMode {
		switch {
		case key.Matches(keyMsg, d.ManualKeys.Cancel):
			d.ManualMode = false
			d.InputErr = nil
			d.IPInput.Blur()
			return m, nil
		case key.Matches(keyMsg, d.ManualKeys.Confirm):
			ip := strings.TrimSpace(d.IPInput.Value())
			if err := deviceapi.ValidateIP(ip); err != nil {
				d.InputErr = err
				return m, nil
			}
			d.ManualMode = false
			d.InputErr = nil
			d.IPInput.Blur()
			return m, m.dial(ip)
		}
		var cmd tea.Cmd
		d.IPInput, cmd = d.IPInput.Update(msg)
		return m, cmd
	}

	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !d.Scanning {
			return m, nil
		}
		var cmd tea.Cmd
		d.Spinner, cmd = d.Spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, d.Keys.Quit):
			return m.quit()
		case key.Matches(msg, d.Keys.Connect):
			if dev := d.SelectedDevice(); dev != nil {
				return m, m.dial(dev.IP)
			}
			return m, nil
		case key.Matches(msg, d.Keys.Rescan):
			return m, m.scan()
		case key.Matches(msg, d.Keys.Manual):
			d.ManualMode = true
			d.IPInput.SetValue("")
			return m, d.IPInput.Focus()
		case key.Matches(msg, d.Keys.Listen):
			if m.sess.Listening() {
				m.sess.StopListening()
			} else {
				_ = m.sess.StartListening(m.ctx)
			}
			return m, nil
		case key.Matches(msg, d.Keys.Clear):
			m.sess.ClearDevices()
			m.sess.ClearMessages()
			d.setDevices(nil)
			return m, nil
		case key.Matches(msg, d.Keys.Control):
			if m.sess.Connected() {
				m.CurrentScreen = ScreenControl
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	d.DeviceList, cmd = d.DeviceList.Update(msg)
	return m, cmd
}

// View renders the discovery screen
func (m DiscoveryModel) View(sess *session.Session, width int) string {
	var b strings.Builder
	b.WriteString("\n")

	switch {
	case m.ManualMode:
		b.WriteString(RenderSubtitle("  Enter device IP address"))
		b.WriteString("\n\n  IP Address: ")
		b.WriteString(m.IPInput.View())
		if m.InputErr != nil {
			b.WriteString("\n\n  ")
			b.WriteString(FailStyle.Render(deviceapi.GetShortErrorMessage(m.InputErr)))
		}
		b.WriteString("\n\n")

	case m.Scanning:
		elapsed := time.Since(m.ScanStarted).Round(time.Second)
		b.WriteString(fmt.Sprintf("  %s %s  %s\n\n", m.Spinner.View(),
			TitleStyle.Render("Scanning local subnet..."),
			SubtitleStyle.Render(elapsed.String())))

	case len(m.DeviceList.Items()) == 0:
		b.WriteString(WarnStyle.Render("  ⚠ No devices found"))
		b.WriteString("\n\n")
		b.WriteString(LabelStyle.Render("    • Check the controller is powered and on this network\n"))
		b.WriteString(LabelStyle.Render("    • Press r to rescan, l to listen for announcements or m to enter an IP\n"))
		b.WriteString("\n")

	default:
		b.WriteString(m.DeviceList.View())
		b.WriteString("\n")
	}

	if last, ok := sess.Results().Last(); ok && !last.Succeeded() {
		b.WriteString("  ")
		b.WriteString(FailStyle.Render(last.Label + ": " + last.Outcome))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(renderMessages(sess, width-8))
	return b.String()
}

func renderMessages(sess *session.Session, width int) string {
	title := "UDP broadcast (off)"
	if sess.Listening() {
		title = "UDP broadcast (listening"
		if addr := sess.ListenerAddr(); addr != nil {
			title += " on " + addr.String()
		}
		title += ")"
	}

	msgs := sess.Messages()
	if len(msgs) > messagePaneLines {
		msgs = msgs[len(msgs)-messagePaneLines:]
	}

	lines := []string{RenderTitle(title)}
	if len(msgs) == 0 {
		lines = append(lines, LabelStyle.Render("no messages"))
	}
	for _, msg := range msgs {
		text := strings.ReplaceAll(msg.Text, "\n", " ")
		line := fmt.Sprintf("%s %s %s", msg.At.Format("15:04:05"), msg.From, text)
		if lipgloss.Width(line) > width-2 && width > 5 {
			line = string([]rune(line)[:width-3]) + "…"
		}
		lines = append(lines, line)
	}

	return PaneStyle.Width(width).Render(strings.Join(lines, "\n"))
}
