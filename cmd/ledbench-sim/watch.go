package main

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/muurk/ledbench/internal/simulator"
	"github.com/muurk/ledbench/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:   "watch [addr]",
	Short: "Show a running simulator's LED live",
	Long: `Connect to a simulator's websocket feed and render the LED colour as it
changes. addr defaults to the simulator listen address from the settings
file.

On a terminal the colour is drawn as a swatch that updates in place;
otherwise one line is printed per state change.`,
	Example: `  ledbench-sim watch
  ledbench-sim watch 127.0.0.1:8080`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

// stateMsg is one state received from the feed
type stateMsg simulator.State

// feedClosedMsg ends the program when the feed goes away
type feedClosedMsg struct {
	err error
}

type watchModel struct {
	addr  string
	state *simulator.State
	err   error
}

func (m watchModel) Init() tea.Cmd {
	return nil
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		}
	case stateMsg:
		st := simulator.State(msg)
		m.state = &st
	case feedClosedMsg:
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m watchModel) View() string {
	title := ui.HeaderTitleStyle.Render("SIMULATOR") + "  " + ui.HeaderCommandStyle.Render("ws://"+m.addr+simulator.FeedPath)
	if m.state == nil {
		return title + "\n\nWaiting for state...\n"
	}

	swatch := ui.Swatch(m.state.Output(), 24)
	block := lipgloss.JoinVertical(lipgloss.Left, swatch, swatch, swatch)
	details := lipgloss.NewStyle().PaddingLeft(2).Render(strings.Join([]string{
		m.state.DeviceName + " (" + m.state.DeviceID + ")",
		stateLine(*m.state),
		fmt.Sprintf("uptime %.0fs", m.state.Uptime),
	}, "\n"))

	return title + "\n\n" + lipgloss.JoinHorizontal(lipgloss.Top, block, details) +
		"\n\n" + ui.StepNoteStyle.Render("q to quit") + "\n"
}

// stateLine summarises what the LED is showing
func stateLine(s simulator.State) string {
	var what string
	switch s.Mode {
	case simulator.ModePreset:
		what = fmt.Sprintf("preset %d", s.Color)
	case simulator.ModeHSV:
		what = fmt.Sprintf("hsv %d/%d/%d", s.Hue, s.Saturation, s.Value)
	default:
		what = "rainbow"
	}
	broadcast := "off"
	if s.Broadcast {
		broadcast = "on"
	}
	return fmt.Sprintf("power %s  %s  brightness %d%%  rgb %s  broadcast %s",
		s.Power, what, s.Brightness, s.Output().Hex(), broadcast)
}

func runWatch(cmd *cobra.Command, args []string) error {
	addr := settings.Simulator.Listen
	if len(args) == 1 {
		addr = args[0]
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if !ui.IsTerminal() {
		var last simulator.State
		return simulator.Watch(ctx, addr, func(s simulator.State) {
			// rgb and uptime move every animation frame
			key := s
			key.RGB, key.Uptime = [3]int{}, 0
			if key != last {
				last = key
				fmt.Println(stateLine(s))
			}
		})
	}

	p := tea.NewProgram(watchModel{addr: addr})
	go func() {
		err := simulator.Watch(ctx, addr, func(s simulator.State) {
			p.Send(stateMsg(s))
		})
		p.Send(feedClosedMsg{err: err})
	}()

	final, err := p.Run()
	cancel()
	if err != nil {
		return err
	}
	if m, ok := final.(watchModel); ok && m.err != nil {
		return m.err
	}
	return nil
}
