package main

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/ledbench/internal/config"
	"github.com/muurk/ledbench/internal/simulator"
)

func TestAnnounceTarget(t *testing.T) {
	s := config.Default()
	if got, want := announceTarget(s), "224.0.0.1:8888"; got != want {
		t.Errorf("got %s, want %s", got, want)
	}

	s.Broadcast.Group = ""
	s.Broadcast.Port = 9999
	if got, want := announceTarget(s), "127.0.0.1:9999"; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestStateLine(t *testing.T) {
	tests := []struct {
		name  string
		state simulator.State
		want  string
	}{
		{"rainbow", simulator.State{Power: "on", Mode: simulator.ModeRainbow}, "rainbow"},
		{"preset", simulator.State{Power: "on", Mode: simulator.ModePreset, Color: 3}, "preset 3"},
		{"hsv", simulator.State{Power: "on", Mode: simulator.ModeHSV, Hue: 120, Saturation: 50, Value: 75}, "hsv 120/50/75"},
		{"broadcast", simulator.State{Power: "off", Broadcast: true}, "broadcast on"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stateLine(tt.state); !strings.Contains(got, tt.want) {
				t.Errorf("got %q, want it to contain %q", got, tt.want)
			}
		})
	}
}

func TestWatchModel(t *testing.T) {
	m := watchModel{addr: "127.0.0.1:8080"}
	if !strings.Contains(m.View(), "Waiting") {
		t.Errorf("view before first state should say it is waiting")
	}

	next, _ := m.Update(stateMsg(simulator.State{DeviceID: "sim-1", Power: "on", Mode: simulator.ModePreset, Color: 1, RGB: [3]int{255, 0, 0}}))
	m = next.(watchModel)
	if m.state == nil || m.state.DeviceID != "sim-1" {
		t.Fatalf("state not recorded: %+v", m.state)
	}
	if view := m.View(); !strings.Contains(view, "sim-1") || !strings.Contains(view, "preset 1") {
		t.Errorf("view missing state details:\n%s", view)
	}

	feedErr := errors.New("feed closed: EOF")
	next, cmd := m.Update(feedClosedMsg{err: feedErr})
	m = next.(watchModel)
	if !errors.Is(m.err, feedErr) {
		t.Errorf("got err %v, want %v", m.err, feedErr)
	}
	if cmd == nil {
		t.Fatal("expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("expected tea.QuitMsg")
	}
}
