package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/muurk/ledbench/internal/deviceapi"
	"github.com/muurk/ledbench/internal/discovery"
	"github.com/muurk/ledbench/internal/picker"
)

// stubDevice answers every path with the info document
func stubDevice(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"device_id":"esp32-01","device_name":"Bench","power":"on"}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

// connectTo applies a Connected event for an httptest server, whose address
// is not a plain IPv4 on the default port
func connectTo(t *testing.T, s *Session, srv *httptest.Server) {
	t.Helper()
	client := deviceapi.NewClientWithURL(srv.URL)
	info, err := client.Info(context.Background())
	if err != nil {
		t.Fatalf("Info() error = %v", err)
	}
	s.Apply(Connected{IP: client.Host(), Info: info, Client: client})
}

func TestEndToEnd(t *testing.T) {
	srv, hits := stubDevice(t)
	s := New(Options{})

	connectTo(t, s, srv)
	before := s.Results().Len()

	if err := s.Do(context.Background(), Preset(1)); err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	if got := s.Results().Len() - before; got != 1 {
		t.Fatalf("log gained %d entries, want 1", got)
	}
	last, _ := s.Results().Last()
	if !last.Succeeded() {
		t.Errorf("entry %+v, want success", last)
	}
	if last.Label != "color 1" {
		t.Errorf("Label = %q, want %q", last.Label, "color 1")
	}

	s.Disconnect()
	if s.Connected() {
		t.Fatal("still connected after Disconnect")
	}

	hitsBefore := hits.Load()
	err := s.Do(context.Background(), Power(true))
	if !errors.Is(err, deviceapi.ErrNotConnected) {
		t.Fatalf("Do() error = %v, want ErrNotConnected", err)
	}
	if !deviceapi.IsConfigurationError(err) {
		t.Errorf("want configuration error, got %v", err)
	}
	if hits.Load() != hitsBefore {
		t.Error("a request was sent while disconnected")
	}

	last, _ = s.Results().Last()
	if last.Succeeded() || !strings.Contains(last.Outcome, "no device connected") {
		t.Errorf("rejected action entry = %+v", last)
	}
}

func TestConnect(t *testing.T) {
	s := New(Options{})

	t.Run("invalid address", func(t *testing.T) {
		err := s.Connect(context.Background(), "not-an-ip")
		if !deviceapi.IsValidationError(err) {
			t.Fatalf("Connect() error = %v, want validation error", err)
		}
		if s.Connected() {
			t.Error("connected after failure")
		}
	})
}

func TestDial(t *testing.T) {
	s := New(Options{Port: 1})

	ev := s.Dial(context.Background(), "127.0.0.1")
	r, ok := ev.(ResultLogged)
	if !ok {
		t.Fatalf("Dial() = %T, want ResultLogged", ev)
	}
	if r.Err == nil || r.Result.Succeeded() {
		t.Errorf("Dial() = %+v, want failure", r)
	}
	if r.Result.Label != "connect 127.0.0.1" {
		t.Errorf("Label = %q", r.Result.Label)
	}
}

func TestPerform_RefreshesInfo(t *testing.T) {
	var infoCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == deviceapi.InfoPath {
			n := infoCalls.Add(1)
			if n > 1 {
				_, _ = w.Write([]byte(`{"device_id":"esp32-01","device_name":"Bench","power":"off"}`))
				return
			}
			_, _ = w.Write([]byte(`{"device_id":"esp32-01","device_name":"Bench","power":"on"}`))
			return
		}
		_, _ = w.Write([]byte("OK"))
	}))
	defer srv.Close()

	s := New(Options{})
	connectTo(t, s, srv)

	if err := s.Do(context.Background(), Power(false)); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if got := s.Connection().Info.Extra["power"]; got != "off" {
		t.Errorf("cached power = %v, want off", got)
	}
}

func TestPerform_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == deviceapi.InfoPath {
			_, _ = w.Write([]byte(`{"device_id":"esp32-01"}`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := New(Options{})
	connectTo(t, s, srv)

	err := s.Do(context.Background(), Brightness(40))
	if !deviceapi.IsStatusError(err) {
		t.Fatalf("Do() error = %v, want status error", err)
	}
	last, _ := s.Results().Last()
	if last.Succeeded() {
		t.Errorf("entry %+v, want failure", last)
	}
	if !s.Connected() {
		t.Error("a failed action must not drop the connection")
	}
}

func TestApply_Devices(t *testing.T) {
	s := New(Options{})

	a := discovery.NewGenericDevice("192.168.1.3", discovery.SourceSweep)
	b := discovery.NewGenericDevice("192.168.1.4", discovery.SourceSweep)
	s.Apply(DevicesDiscovered{Devices: []*discovery.Device{a, b}})

	dup := discovery.NewGenericDevice("192.168.1.4", discovery.SourceBroadcast)
	s.Apply(DeviceDiscovered{Device: dup})
	if len(s.Devices()) != 2 {
		t.Fatalf("len(Devices) = %d, want 2", len(s.Devices()))
	}

	c := discovery.NewGenericDevice("192.168.1.9", discovery.SourceBroadcast)
	s.Apply(DeviceDiscovered{Device: c})
	if len(s.Devices()) != 3 || s.Devices()[2] != c {
		t.Fatalf("Devices = %v", s.Devices())
	}

	// batch replace drops what was there
	s.Apply(DevicesDiscovered{Devices: []*discovery.Device{c}})
	if len(s.Devices()) != 1 {
		t.Errorf("len(Devices) = %d, want 1", len(s.Devices()))
	}

	s.ClearDevices()
	if len(s.Devices()) != 0 {
		t.Error("ClearDevices left devices behind")
	}
}

func TestApply_Messages(t *testing.T) {
	s := New(Options{})
	for i := 0; i < MaxMessages+10; i++ {
		s.Apply(BroadcastMessage{From: "10.0.0.1", Text: "x"})
	}
	if len(s.Messages()) != MaxMessages {
		t.Errorf("len(Messages) = %d, want %d", len(s.Messages()), MaxMessages)
	}
}

type fakeSweeper struct {
	report *discovery.SweepReport
	err    error
}

func (f fakeSweeper) Sweep(context.Context) (*discovery.SweepReport, error) {
	return f.report, f.err
}

func TestScan(t *testing.T) {
	s := New(Options{})

	report := &discovery.SweepReport{Devices: []*discovery.Device{
		discovery.NewGenericDevice("192.168.1.3", discovery.SourceSweep),
	}}
	s.Scan(context.Background(), fakeSweeper{report: report})

	if n := s.Drain(); n != 2 {
		t.Fatalf("Drain() = %d, want 2", n)
	}
	if len(s.Devices()) != 1 {
		t.Errorf("len(Devices) = %d, want 1", len(s.Devices()))
	}
	last, _ := s.Results().Last()
	if last.Label != "found 1 devices" || !last.Succeeded() {
		t.Errorf("entry = %+v", last)
	}
}

func TestScan_SetupFailure(t *testing.T) {
	s := New(Options{})

	s.Scan(context.Background(), fakeSweeper{err: deviceapi.NewConfigurationError("no IPv4 network interface found", nil)})
	s.Drain()

	if len(s.Devices()) != 0 {
		t.Error("setup failure must yield no devices")
	}
	last, _ := s.Results().Last()
	if last.Succeeded() || last.Label != "network scan" {
		t.Errorf("entry = %+v", last)
	}
}

func TestListening(t *testing.T) {
	s := New(Options{})
	defer s.Close()

	// the default group needs a multicast route; plain UDP is enough here
	s.listener = newTestListener(s)

	if err := s.StartListening(context.Background()); err != nil {
		t.Fatalf("StartListening() error = %v", err)
	}
	if !s.Listening() {
		t.Fatal("Listening() = false")
	}

	err := s.StartListening(context.Background())
	if !deviceapi.IsConcurrencyWarning(err) {
		t.Fatalf("second start error = %v, want concurrency warning", err)
	}
	last, _ := s.Results().Last()
	if !strings.HasPrefix(last.Outcome, "warning") {
		t.Errorf("entry = %+v, want warning", last)
	}
	if !s.Listening() {
		t.Error("second start stopped the listener")
	}

	s.StopListening()
	if s.Listening() {
		t.Error("Listening() = true after stop")
	}
}

func TestListening_RestartAfterStop(t *testing.T) {
	s := New(Options{})
	defer s.Close()
	s.listener = newTestListener(s)

	if err := s.StartListening(context.Background()); err != nil {
		t.Fatalf("StartListening() error = %v", err)
	}
	s.StopListening()
	if err := s.StartListening(context.Background()); err != nil {
		t.Fatalf("restart error = %v", err)
	}
	if !s.Listening() || !s.listener.Running() {
		t.Fatalf("listening = %v, listener running = %v, want both true", s.Listening(), s.listener.Running())
	}

	// the first socket's stop arrives after the restart and must not hide it
	s.Drain()
	if !s.Listening() {
		t.Error("stale ListenerStopped cleared the restarted listener")
	}
	last, _ := s.Results().Last()
	if last.Label != "start UDP listener" || !last.Succeeded() {
		t.Errorf("entry = %+v", last)
	}
}

func TestClose_FullEventBuffer(t *testing.T) {
	s := New(Options{EventBuffer: 1})
	s.listener = newTestListener(s)

	if err := s.StartListening(context.Background()); err != nil {
		t.Fatalf("StartListening() error = %v", err)
	}
	s.Post(Disconnected{})

	closed := make(chan struct{})
	go func() {
		s.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close blocked on a full event buffer")
	}
}

func TestStripPick(t *testing.T) {
	a := StripPick(picker.DefaultStrip(), 125, 40, nil)

	p := a.Params
	if p.Hue == nil || p.Saturation == nil || p.Value == nil {
		t.Fatalf("params = %+v, want hue, saturation and value", p)
	}
	if *p.Hue != 180 || *p.Saturation != 100 || *p.Value != 75 {
		t.Errorf("got H%d S%d V%d, want H180 S100 V75", *p.Hue, *p.Saturation, *p.Value)
	}
	if p.Brightness != nil {
		t.Error("brightness sent without being asked for")
	}
	if !strings.HasPrefix(a.String(), "strip (125,40)") {
		t.Errorf("label = %q", a.String())
	}
}
