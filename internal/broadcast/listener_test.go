package broadcast

import (
	"context"
	"net"
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/muurk/ledbench/internal/deviceapi"
	"github.com/muurk/ledbench/internal/discovery"
)

func startLoopback(t *testing.T) (*Listener, chan Event, net.Conn) {
	t.Helper()

	events := make(chan Event, 32)
	l := NewListener(Config{ReadTimeout: 50 * time.Millisecond}, func(e Event) { events <- e })
	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(l.Stop)

	port := l.Addr().(*net.UDPAddr).Port
	conn, err := net.Dial("udp4", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	return l, events, conn
}

func send(t *testing.T, conn net.Conn, payload string) {
	t.Helper()
	if _, err := conn.Write([]byte(payload)); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func next(t *testing.T, events chan Event) Event {
	t.Helper()
	select {
	case e := <-events:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestListener_Dedup(t *testing.T) {
	_, events, conn := startLoopback(t)

	announcement := `{"device_id":"esp32-01","device_name":"Bench","rgb":[255,0,0]}`
	send(t, conn, announcement)
	send(t, conn, announcement)
	send(t, conn, "not json")

	var raw, announced int
	var device *discovery.Device
	for raw < 3 {
		switch e := next(t, events).(type) {
		case RawMessage:
			raw++
			if e.From != "127.0.0.1" {
				t.Errorf("From = %q, want 127.0.0.1", e.From)
			}
		case DeviceAnnounced:
			announced++
			device = e.Device
		case Error:
			t.Fatalf("unexpected error event: %v", e.Err)
		}
	}

	if announced != 1 {
		t.Fatalf("DeviceAnnounced fired %d times, want 1", announced)
	}
	if device.IP != "127.0.0.1" || device.DeviceID != "esp32-01" || device.Name != "Bench" {
		t.Errorf("device = %v", device)
	}
	if device.Source != discovery.SourceBroadcast {
		t.Errorf("Source = %v, want broadcast", device.Source)
	}
	if device.GetMetadata("rgb") == "" {
		t.Error("extra announcement fields should be kept as metadata")
	}
}

func TestListener_MalformedDatagram(t *testing.T) {
	_, events, conn := startLoopback(t)

	send(t, conn, "{broken")
	send(t, conn, `{"device_name":"no id"}`)

	for i := 0; i < 2; i++ {
		e := next(t, events)
		if _, ok := e.(RawMessage); !ok {
			t.Fatalf("event %d = %T, want RawMessage", i, e)
		}
	}

	select {
	case e := <-events:
		t.Fatalf("unexpected event %T", e)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestListener_InvalidUTF8(t *testing.T) {
	_, events, conn := startLoopback(t)

	send(t, conn, "ok\xffok")

	e, ok := next(t, events).(RawMessage)
	if !ok {
		t.Fatal("want RawMessage")
	}
	if e.Text != "ok\uFFFDok" {
		t.Errorf("Text = %q", e.Text)
	}
}

func TestListener_Forget(t *testing.T) {
	l, events, conn := startLoopback(t)

	announcement := `{"device_id":"esp32-01"}`
	send(t, conn, announcement)
	next(t, events) // raw
	if _, ok := next(t, events).(DeviceAnnounced); !ok {
		t.Fatal("want DeviceAnnounced")
	}

	l.Forget()
	send(t, conn, announcement)
	next(t, events) // raw
	if _, ok := next(t, events).(DeviceAnnounced); !ok {
		t.Fatal("want DeviceAnnounced after Forget")
	}
}

func TestListener_Lifecycle(t *testing.T) {
	events := make(chan Event, 8)
	l := NewListener(Config{ReadTimeout: 50 * time.Millisecond}, func(e Event) { events <- e })

	if l.State() != StateStopped {
		t.Fatalf("initial state = %v", l.State())
	}

	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !l.Running() {
		t.Fatal("Running() = false after Start")
	}

	err := l.Start(context.Background())
	if !deviceapi.IsConcurrencyWarning(err) {
		t.Fatalf("second Start() error = %v, want concurrency warning", err)
	}
	if !l.Running() {
		t.Fatal("second Start must not stop the listener")
	}

	start := time.Now()
	l.Stop()
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Stop took %v", elapsed)
	}
	if l.Running() || l.Addr() != nil {
		t.Error("listener still running after Stop")
	}
	if _, ok := next(t, events).(Stopped); !ok {
		t.Error("want Stopped event")
	}

	// stopped listeners can be restarted
	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("restart error = %v", err)
	}
	l.Stop()
	l.Stop()
}

func TestListener_RestartWhileStopping(t *testing.T) {
	events := make(chan Event, 8)
	l := NewListener(Config{ReadTimeout: 200 * time.Millisecond}, func(e Event) { events <- e })
	defer l.Stop()

	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	done := l.Cancel()
	if got := l.State(); got != StateStopping {
		t.Fatalf("state after Cancel = %v, want stopping", got)
	}
	if l.Running() {
		t.Fatal("Running() = true after Cancel")
	}

	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("Start() during stop error = %v", err)
	}
	select {
	case <-done:
	default:
		t.Error("Start returned before the previous socket closed")
	}
	if !l.Running() || l.Addr() == nil {
		t.Error("listener not running after restart")
	}
	if _, ok := next(t, events).(Stopped); !ok {
		t.Error("want Stopped event from the first socket")
	}
}

func TestListener_ContextCancel(t *testing.T) {
	events := make(chan Event, 8)
	l := NewListener(Config{ReadTimeout: 50 * time.Millisecond}, func(e Event) { events <- e })

	ctx, cancel := context.WithCancel(context.Background())
	if err := l.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	cancel()

	if _, ok := next(t, events).(Stopped); !ok {
		t.Fatal("want Stopped event")
	}
	if l.Running() {
		t.Error("Running() = true after cancel")
	}
}

func TestListener_BadGroup(t *testing.T) {
	l := NewListener(Config{Group: "10.0.0.1"}, nil)

	err := l.Start(context.Background())
	if !deviceapi.IsConfigurationError(err) {
		t.Fatalf("Start() error = %v, want configuration error", err)
	}
	if l.Running() {
		t.Error("listener running after failed setup")
	}
}

func TestListener_SharedPort(t *testing.T) {
	if runtime.GOOS == "windows" || runtime.GOOS == "solaris" || runtime.GOOS == "illumos" {
		t.Skip("port sharing options are not set on " + runtime.GOOS)
	}

	first := NewListener(Config{ReadTimeout: 50 * time.Millisecond}, nil)
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer first.Stop()

	port := first.Addr().(*net.UDPAddr).Port
	second := NewListener(Config{Port: port, ReadTimeout: 50 * time.Millisecond}, nil)
	if err := second.Start(context.Background()); err != nil {
		t.Fatalf("second listener on port %d: %v", port, err)
	}
	second.Stop()
}
