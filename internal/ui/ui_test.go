package ui

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/ledbench/internal/deviceapi"
	"github.com/muurk/ledbench/internal/discovery"
	"github.com/muurk/ledbench/internal/session"
)

func TestHeaderRender(t *testing.T) {
	out := NewHeader("Preset", "ledbench color 3",
		Param{Key: "Device", Value: "192.168.1.23"},
		Param{Key: "Preset", Value: "3"},
	).SetWidth(80).Render()

	for _, want := range []string{"PRESET", "ledbench color 3", "Device:", "192.168.1.23"} {
		if !strings.Contains(out, want) {
			t.Errorf("header missing %q:\n%s", want, out)
		}
	}
}

func TestFailureResultHasHints(t *testing.T) {
	err := deviceapi.NewTransportError("connection refused", "192.168.1.23", errors.New("dial"))
	r := NewFailureResult("Connect Failed", err)

	if len(r.Troubleshooting) == 0 {
		t.Fatal("expected troubleshooting tips for a transport error")
	}
	out := r.SetWidth(80).Render()
	if !strings.Contains(out, "Connect Failed") {
		t.Errorf("render missing title:\n%s", out)
	}
}

func TestRenderDevices(t *testing.T) {
	if got := RenderDevices(nil); !strings.Contains(got, "No devices found") {
		t.Errorf("empty table = %q", got)
	}

	devices := []*discovery.Device{
		discovery.NewNamedDevice("192.168.1.23", &deviceapi.DeviceInfo{DeviceID: "esp32-01", DeviceName: "Desk"}, discovery.SourceSweep),
		discovery.NewGenericDevice("192.168.1.40", discovery.SourceSweep),
	}
	got := RenderDevices(devices)
	for _, want := range []string{"192.168.1.23", "esp32-01", "Desk", "192.168.1.40", discovery.GenericName} {
		if !strings.Contains(got, want) {
			t.Errorf("table missing %q:\n%s", want, got)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"much too long", 5, "much…"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestProgressKeepsRecentSteps(t *testing.T) {
	p := NewProgress("rainbow", 36)
	p.Visible = 3

	for i := 1; i <= 5; i++ {
		p.Record(i, fmt.Sprintf("step %d", i), i != 4, "")
	}

	steps := p.Steps()
	if len(steps) != 3 {
		t.Fatalf("got %d visible steps, want 3", len(steps))
	}
	if steps[0].Number != 3 || steps[2].Number != 5 {
		t.Errorf("visible steps = %d..%d, want 3..5", steps[0].Number, steps[2].Number)
	}
	if steps[1].Status != StepFailed {
		t.Errorf("step 4 status = %v, want StepFailed", steps[1].Status)
	}
	if p.Failed != 1 {
		t.Errorf("Failed = %d, want 1", p.Failed)
	}
	if got, want := p.Percent(), 5.0/36.0; got != want {
		t.Errorf("Percent() = %v, want %v", got, want)
	}
	if !strings.Contains(p.Render(), "[5/36]") {
		t.Errorf("render missing step counter:\n%s", p.Render())
	}
}

func TestProgressZeroTotal(t *testing.T) {
	if got := NewProgress("empty", 0).Percent(); got != 0 {
		t.Errorf("Percent() = %v, want 0", got)
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"maybe\n", false},
	}
	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			got := Confirm(strings.NewReader(tt.input), &out, "Overwrite", []string{"config exists"}, "Replace it?")
			if got != tt.want {
				t.Errorf("Confirm(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if !strings.Contains(out.String(), "Replace it?") {
				t.Errorf("prompt not written: %q", out.String())
			}
		})
	}
}

// connectedSession returns a session connected to a stub controller whose
// control endpoint fails for preset 4
func connectedSession(t *testing.T) *session.Session {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("color") == "4" {
			http.Error(w, "nope", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"device_id":"esp32-01","device_name":"Bench"}`))
	}))
	t.Cleanup(srv.Close)

	sess := session.New(session.Options{})
	client := deviceapi.NewClientWithURL(srv.URL)
	info, err := client.Info(context.Background())
	if err != nil {
		t.Fatalf("Info() error = %v", err)
	}
	sess.Apply(session.Connected{IP: client.Host(), Info: info, Client: client})
	return sess
}

func quickSequence() session.Sequence {
	seq := session.AllColors()
	seq.Interval = time.Millisecond
	return seq
}

func TestSequenceRunnerPlain(t *testing.T) {
	sess := connectedSession(t)
	var out bytes.Buffer

	runner := NewSequenceRunner(SequenceRunnerConfig{
		Title:   "Sequence",
		Command: "ledbench sequence all-colors",
		Output:  &out,
	})
	finished, err := runner.Run(context.Background(), sess, quickSequence())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if finished.Steps != 8 || finished.Failed != 1 {
		t.Errorf("finished = %+v, want 8 steps with 1 failure", finished)
	}
	if sess.Sequence() != nil {
		t.Error("sequence still tracked after finish")
	}
	text := out.String()
	if !strings.Contains(text, "[8/8]") {
		t.Errorf("output missing last step:\n%s", text)
	}
	if !strings.Contains(text, "failed:") {
		t.Errorf("output missing failure note:\n%s", text)
	}
}

func TestSequenceRunnerNotConnected(t *testing.T) {
	sess := session.New(session.Options{})
	var out bytes.Buffer

	_, err := NewSequenceRunner(SequenceRunnerConfig{Output: &out}).Run(context.Background(), sess, quickSequence())
	if !errors.Is(err, deviceapi.ErrNotConnected) {
		t.Errorf("Run() error = %v, want ErrNotConnected", err)
	}
}

func TestSequenceModelUpdate(t *testing.T) {
	sess := connectedSession(t)
	seq := quickSequence()
	m := newSequenceModel(sess, seq, 80)

	updated, _ := m.Update(sessionEventMsg{event: session.SequenceProgress{Name: seq.Name, Step: 1, Total: 8, Label: "color 1", OK: true}})
	m = updated.(sequenceModel)
	if m.progress.Done != 1 {
		t.Errorf("Done = %d, want 1", m.progress.Done)
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = updated.(sequenceModel)
	if !m.cancelling {
		t.Error("esc did not start cancelling")
	}
	if !strings.Contains(m.View(), "Cancelling") {
		t.Errorf("view = %q", m.View())
	}

	updated, cmd := m.Update(sessionEventMsg{event: session.SequenceFinished{Name: seq.Name, Steps: 1, Total: 8, Cancelled: true}})
	m = updated.(sequenceModel)
	if m.finished == nil || !m.finished.Cancelled {
		t.Fatalf("finished = %+v, want cancelled", m.finished)
	}
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}
