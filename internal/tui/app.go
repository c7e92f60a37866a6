package tui

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/ledbench/internal/picker"
	"github.com/muurk/ledbench/internal/session"
)

// Screen represents the current active screen in the application
type Screen string

const (
	ScreenDiscovery Screen = "discovery"
	ScreenControl   Screen = "control"
)

// Options configures the application
type Options struct {
	Session *session.Session
	Sweeper session.Sweeper
	Wheel   picker.Circle

	// ReportDir is where exported reports go
	ReportDir string

	// Device, when set, is dialled on start
	Device string
}

// sessionEventMsg carries one event drained from the session queue
type sessionEventMsg struct {
	event session.Event
}

// scanDoneMsg reports that a sweep worker returned
type scanDoneMsg struct{}

// AppModel is the top-level model. Its Update is the session's interactive
// loop: every session event is applied here and nowhere else.
type AppModel struct {
	CurrentScreen Screen

	Discovery DiscoveryModel
	Control   ControlModel

	sess      *session.Session
	sweeper   session.Sweeper
	reportDir string
	device    string

	ctx    context.Context
	cancel context.CancelFunc
	rng    *rand.Rand

	Width  int
	Height int
	Help   help.Model
}

// NewAppModel creates the application, starting on the discovery screen
func NewAppModel(opts Options) AppModel {
	ctx, cancel := context.WithCancel(context.Background())
	now := uint64(time.Now().UnixNano())

	return AppModel{
		CurrentScreen: ScreenDiscovery,
		Discovery:     NewDiscoveryModel(),
		Control:       NewControlModel(opts.Wheel),
		sess:          opts.Session,
		sweeper:       opts.Sweeper,
		reportDir:     opts.ReportDir,
		device:        opts.Device,
		ctx:           ctx,
		cancel:        cancel,
		rng:           rand.New(rand.NewPCG(now, now>>1)),
		Width:         MinTerminalWidth,
		Height:        30,
		Help:          help.New(),
	}
}

// Init arms the event pump and starts the first sweep or dial
func (m AppModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.waitForEvent(), m.Discovery.Spinner.Tick}
	if m.device != "" {
		cmds = append(cmds, m.dial(m.device))
	} else if m.sweeper != nil {
		cmds = append(cmds, m.scan())
	}
	return tea.Batch(cmds...)
}

func (m AppModel) waitForEvent() tea.Cmd {
	events := m.sess.Events()
	return func() tea.Msg {
		return sessionEventMsg{event: <-events}
	}
}

// dial connects on a worker; the outcome arrives through the pump
func (m AppModel) dial(ip string) tea.Cmd {
	sess, ctx := m.sess, m.ctx
	return func() tea.Msg {
		sess.Post(sess.Dial(ctx, ip))
		return nil
	}
}

// perform sends a on a worker
func (m AppModel) perform(a session.Action) tea.Cmd {
	target, err := m.sess.Target()
	if err != nil {
		m.sess.Apply(session.ResultLogged{Result: session.Failure(a.String(), err), Err: err})
		return nil
	}
	sess, ctx := m.sess, m.ctx
	return func() tea.Msg {
		sess.Post(target.Perform(ctx, a))
		return nil
	}
}

func (m *AppModel) scan() tea.Cmd {
	if m.Discovery.Scanning || m.sweeper == nil {
		return nil
	}
	m.Discovery.Scanning = true
	m.Discovery.ScanStarted = time.Now()

	sess, ctx, sweeper := m.sess, m.ctx, m.sweeper
	return tea.Batch(
		func() tea.Msg {
			sess.Scan(ctx, sweeper)
			return scanDoneMsg{}
		},
		m.Discovery.Spinner.Tick,
	)
}

// Update handles all messages and routes them to the appropriate screen
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Discovery.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m.quit()
		}

	case sessionEventMsg:
		return m.applyEvent(msg.event)

	case scanDoneMsg:
		m.Discovery.Scanning = false
		return m, nil
	}

	switch m.CurrentScreen {
	case ScreenControl:
		return m.updateControl(msg)
	default:
		return m.updateDiscovery(msg)
	}
}

func (m AppModel) applyEvent(e session.Event) (tea.Model, tea.Cmd) {
	m.sess.Apply(e)

	switch ev := e.(type) {
	case session.Connected:
		m.Control.syncFromInfo(ev.Info)
		m.CurrentScreen = ScreenControl
	case session.Disconnected:
		m.CurrentScreen = ScreenDiscovery
	case session.ResultLogged:
		if ev.Info != nil {
			m.Control.syncFromInfo(ev.Info)
		}
	case session.DevicesDiscovered, session.DeviceDiscovered:
		m.Discovery.setDevices(m.sess.Devices())
	}
	return m, m.waitForEvent()
}

func (m AppModel) quit() (tea.Model, tea.Cmd) {
	m.cancel()
	m.sess.CancelSequence()
	m.sess.StopListening()
	return m, tea.Quit
}

// exportReport writes the report and records where it went
func (m *AppModel) exportReport() {
	path, err := m.sess.ExportReport(m.reportDir)
	if err != nil {
		m.Control.Status = FailStyle.Render("Report not written: " + err.Error())
		return
	}
	m.Control.Status = OKStyle.Render("Report saved to " + path)
}

func (m *AppModel) startSequence(name string) {
	seq, err := session.SequenceByName(name, m.rng)
	if err != nil {
		m.Control.Status = FailStyle.Render(err.Error())
		return
	}
	// failures are logged by the session
	_ = m.sess.StartSequence(m.ctx, seq)
}

func (m AppModel) status() string {
	conn := m.sess.Connection()
	if conn == nil {
		return "not connected"
	}
	s := fmt.Sprintf("connected to %s (%s)", conn.IP, conn.Info.Summary())
	if seq := m.sess.Sequence(); seq != nil {
		s += fmt.Sprintf("  •  %s %d/%d", seq.Name, seq.Step, seq.Total)
	}
	if m.sess.Listening() {
		s += "  •  listening"
	}
	return s
}

// View renders the current screen
func (m AppModel) View() string {
	var content, helpText string
	switch m.CurrentScreen {
	case ScreenControl:
		content = m.Control.View(m.sess, m.Width, m.Height)
		helpText = m.Help.View(m.Control.Keys)
	default:
		content = m.Discovery.View(m.sess, m.Width)
		helpText = m.Help.View(m.Discovery.helpKeys())
	}
	return RenderApplicationContainer(content, m.status(), helpText, m.Width, m.Height)
}

// Run starts the application full screen and blocks until it quits
func Run(opts Options) error {
	p := tea.NewProgram(NewAppModel(opts), tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	opts.Session.Close()
	return err
}
