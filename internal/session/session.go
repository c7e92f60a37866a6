package session

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muurk/ledbench/internal/broadcast"
	"github.com/muurk/ledbench/internal/deviceapi"
	"github.com/muurk/ledbench/internal/discovery"
	"github.com/muurk/ledbench/internal/logging"
)

const (
	// DefaultEventBuffer is the capacity of the worker event queue
	DefaultEventBuffer = 1024

	// MaxMessages caps the broadcast message backlog
	MaxMessages = 200
)

// Options configures a Session
type Options struct {
	// Port is the controllers' HTTP port
	Port int

	// ControlTimeout bounds every device call (default 5s)
	ControlTimeout time.Duration

	// Broadcast configures the UDP listener
	Broadcast broadcast.Config

	// EventBuffer is the worker event queue capacity
	EventBuffer int
}

// Connection is the single active device connection
type Connection struct {
	IP          string
	Info        *deviceapi.DeviceInfo
	Client      *deviceapi.Client
	ConnectedAt time.Time
	InfoAt      time.Time
}

// SequenceStatus tracks a running sequence
type SequenceStatus struct {
	Name   string
	Step   int
	Total  int
	cancel context.CancelFunc
}

// Sweeper is satisfied by *discovery.Scanner
type Sweeper interface {
	Sweep(ctx context.Context) (*discovery.SweepReport, error)
}

// Session is the state of one test run.
//
// It is owned by a single interactive loop: every method except Post,
// Events and the worker functions (Scan, RunSequence) must be called from
// that loop. Workers hand results back with Post and the loop drains
// Events and calls Apply.
type Session struct {
	ID        string
	StartedAt time.Time

	opts     Options
	conn     *Connection
	log      ResultLog
	devices  []*discovery.Device
	messages []BroadcastMessage
	sequence *SequenceStatus

	listening bool
	listener  *broadcast.Listener

	events chan Event
	logger *zap.Logger
}

// New creates a disconnected session with an empty log
func New(opts Options) *Session {
	if opts.Port <= 0 {
		opts.Port = deviceapi.DefaultPort
	}
	if opts.ControlTimeout <= 0 {
		opts.ControlTimeout = deviceapi.ControlTimeout
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = DefaultEventBuffer
	}

	s := &Session{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		opts:      opts,
		events:    make(chan Event, opts.EventBuffer),
		logger:    logging.Named("session"),
	}
	s.listener = broadcast.NewListener(opts.Broadcast, s.forwardListenerEvent)
	return s
}

// Post queues an event for the interactive loop. Safe from any goroutine.
func (s *Session) Post(e Event) {
	s.events <- e
}

// Events is drained by the interactive loop
func (s *Session) Events() <-chan Event {
	return s.events
}

// Drain applies every queued event without blocking and returns how many
// were applied
func (s *Session) Drain() int {
	n := 0
	for {
		select {
		case e := <-s.events:
			s.Apply(e)
			n++
		default:
			return n
		}
	}
}

// Apply is the only place session state changes
func (s *Session) Apply(e Event) {
	switch ev := e.(type) {
	case ResultLogged:
		s.log.Append(ev.Result)
		if ev.Info != nil && s.conn != nil && s.conn.IP == ev.IP {
			s.conn.Info = ev.Info
			s.conn.InfoAt = time.Now()
		}

	case Connected:
		now := time.Now()
		s.conn = &Connection{
			IP:          ev.IP,
			Info:        ev.Info,
			Client:      ev.Client,
			ConnectedAt: now,
			InfoAt:      now,
		}
		s.log.Append(Success("connect "+ev.IP, ""))
		s.logger.Info("Connected", zap.String("ip", ev.IP), zap.String("device", ev.Info.Summary()))

	case Disconnected:
		s.conn = nil
		s.log.Append(Success("disconnect", ""))

	case DevicesDiscovered:
		s.devices = append([]*discovery.Device(nil), ev.Devices...)

	case DeviceDiscovered:
		if s.findDevice(ev.Device.IP) == nil {
			s.devices = append(s.devices, ev.Device)
		}

	case BroadcastMessage:
		s.messages = append(s.messages, ev)
		if len(s.messages) > MaxMessages {
			s.messages = s.messages[len(s.messages)-MaxMessages:]
		}

	case ListenerError:
		s.listening = s.listener.Running()
		s.log.Append(Failure("UDP listener", ev.Err))

	case ListenerStopped:
		// a stale stop from a previous socket must not hide a restart
		s.listening = s.listener.Running()

	case SequenceProgress:
		if s.sequence != nil && s.sequence.Name == ev.Name {
			s.sequence.Step = ev.Step
			s.sequence.Total = ev.Total
		}

	case SequenceFinished:
		if s.sequence != nil && s.sequence.Name == ev.Name {
			s.sequence.cancel()
			s.sequence = nil
		}
		s.log.Append(finishedResult(ev))
	}
}

func finishedResult(ev SequenceFinished) TestResult {
	label := "sequence " + ev.Name
	switch {
	case ev.Cancelled:
		return TestResult{Time: time.Now(), Label: label,
			Outcome: fmt.Sprintf("%s: cancelled after %d of %d steps", outcomeFailed, ev.Steps, ev.Total)}
	case ev.Failed > 0:
		return TestResult{Time: time.Now(), Label: label,
			Outcome: fmt.Sprintf("%s: %d of %d steps failed", outcomeFailed, ev.Failed, ev.Total)}
	default:
		return Success(label, fmt.Sprintf("%d steps", ev.Steps))
	}
}

// Connection returns the active connection, or nil
func (s *Session) Connection() *Connection {
	return s.conn
}

// Connected reports whether a device is connected
func (s *Session) Connected() bool {
	return s.conn != nil
}

// Results returns the result log
func (s *Session) Results() *ResultLog {
	return &s.log
}

// Devices returns the discovered devices in discovery order
func (s *Session) Devices() []*discovery.Device {
	return s.devices
}

// Messages returns the broadcast message backlog, oldest first
func (s *Session) Messages() []BroadcastMessage {
	return s.messages
}

// Listening reports whether the broadcast listener is running
func (s *Session) Listening() bool {
	return s.listening
}

// Sequence returns the running sequence, or nil
func (s *Session) Sequence() *SequenceStatus {
	return s.sequence
}

func (s *Session) findDevice(ip string) *discovery.Device {
	for _, d := range s.devices {
		if d.IP == ip {
			return d
		}
	}
	return nil
}

// Target snapshots the connection for a worker. Without a connection it
// returns a "no device connected" configuration error.
func (s *Session) Target() (Target, error) {
	if s.conn == nil {
		return Target{}, deviceapi.ErrNotConnected
	}
	return Target{IP: s.conn.IP, Client: s.conn.Client, logger: s.logger}, nil
}

// Do performs a on the connected device and applies the result. Without a
// connection nothing is sent; a failure entry is logged and the
// configuration error returned.
func (s *Session) Do(ctx context.Context, a Action) error {
	target, err := s.Target()
	if err != nil {
		s.Apply(ResultLogged{Result: Failure(a.String(), err), Err: err})
		return err
	}

	ev := target.Perform(ctx, a)
	s.Apply(ev)
	return ev.Err
}

// NewClient builds a client for ip with the session's port and timeout
func (s *Session) NewClient(ip string) *deviceapi.Client {
	client := deviceapi.NewClient(ip, s.opts.Port)
	client.SetTimeout(s.opts.ControlTimeout)
	return client
}

// Dial fetches the info document from ip. It does I/O but touches no state,
// so it may run on a worker; the returned event is Connected or a failure
// ResultLogged.
func (s *Session) Dial(ctx context.Context, ip string) Event {
	label := "connect " + ip
	if err := deviceapi.ValidateIP(ip); err != nil {
		return ResultLogged{Result: Failure(label, err), Err: err}
	}

	client := s.NewClient(ip)
	info, err := client.Info(ctx)
	if err != nil {
		return ResultLogged{Result: Failure(label, err), Err: err, IP: ip}
	}
	return Connected{IP: ip, Info: info, Client: client}
}

// Connect dials ip and applies the outcome, replacing any connection
func (s *Session) Connect(ctx context.Context, ip string) error {
	ev := s.Dial(ctx, ip)
	s.Apply(ev)
	if r, ok := ev.(ResultLogged); ok {
		return r.Err
	}
	return nil
}

// Disconnect clears the connection. Nothing is sent to the device.
func (s *Session) Disconnect() {
	s.Apply(Disconnected{})
}

// ClearResults empties the result log
func (s *Session) ClearResults() {
	s.log.Clear()
}

// ClearDevices empties the device list. The listener forgets the addresses
// it has announced so they can be rediscovered.
func (s *Session) ClearDevices() {
	s.devices = nil
	s.listener.Forget()
}

// ClearMessages empties the broadcast message backlog
func (s *Session) ClearMessages() {
	s.messages = nil
}

// Scan sweeps with sweeper and posts the devices as one batch plus a result
// entry. It is a worker: run it on its own goroutine.
func (s *Session) Scan(ctx context.Context, sweeper Sweeper) {
	report, err := sweeper.Sweep(ctx)
	if report == nil {
		s.Post(ResultLogged{Result: Failure("network scan", err), Err: err})
		return
	}

	s.Post(DevicesDiscovered{Devices: report.Devices})
	if err != nil {
		s.Post(ResultLogged{Result: Failure("network scan", err), Err: err})
		return
	}
	s.Post(ResultLogged{Result: Success(fmt.Sprintf("found %d devices", len(report.Devices)), "")})
}

// StartListening starts the broadcast listener. A second start leaves the
// running listener alone and logs a warning.
func (s *Session) StartListening(ctx context.Context) error {
	const label = "start UDP listener"

	if s.listening {
		err := deviceapi.NewConcurrencyWarning("UDP listener is already running")
		s.log.Append(Warning(label, err))
		return err
	}

	if err := s.listener.Start(ctx); err != nil {
		if deviceapi.IsConcurrencyWarning(err) {
			s.log.Append(Warning(label, err))
		} else {
			s.log.Append(Failure(label, err))
		}
		return err
	}

	s.listening = true
	s.log.Append(Success(label, ""))
	return nil
}

// StopListening asks the listener to stop and returns at once. The socket
// closes within one read timeout; a ListenerStopped event follows. A
// StartListening before then waits for the close and starts a new socket.
func (s *Session) StopListening() {
	if !s.listening {
		return
	}
	s.listening = false
	s.listener.Cancel()
	s.log.Append(Success("stop UDP listener", ""))
}

// ListenerAddr returns the bound listener address, or nil
func (s *Session) ListenerAddr() net.Addr {
	return s.listener.Addr()
}

// Close stops the listener and any running sequence, waiting for the
// listener socket to close
func (s *Session) Close() {
	if s.sequence != nil {
		s.sequence.cancel()
	}
	s.listener.Stop()
	s.listening = false
}

// forwardListenerEvent runs on the listener goroutine. It never blocks, so
// Stop and Close return even when nothing is draining Events.
func (s *Session) forwardListenerEvent(e broadcast.Event) {
	switch ev := e.(type) {
	case broadcast.RawMessage:
		s.tryPost(BroadcastMessage{From: ev.From, Text: ev.Text, At: ev.At})
	case broadcast.DeviceAnnounced:
		s.tryPost(DeviceDiscovered{Device: ev.Device})
	case broadcast.Error:
		s.tryPost(ListenerError{Err: ev.Err})
	case broadcast.Stopped:
		s.tryPost(ListenerStopped{})
	}
}

// tryPost queues e unless the event buffer is full
func (s *Session) tryPost(e Event) {
	select {
	case s.events <- e:
	default:
		s.logger.Debug("Event buffer full, dropping listener event", zap.String("event", fmt.Sprintf("%T", e)))
	}
}
