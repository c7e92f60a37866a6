package broadcast

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/ipv4"

	"github.com/muurk/ledbench/internal/deviceapi"
	"github.com/muurk/ledbench/internal/discovery"
	"github.com/muurk/ledbench/internal/logging"
)

const (
	DefaultGroup       = "224.0.0.1"
	DefaultPort        = 8888
	DefaultReadTimeout = 1 * time.Second
	DefaultBufferSize  = 1024
)

// Config controls the listening socket
type Config struct {
	// Group is the multicast group to join. Empty means plain unicast UDP.
	Group string

	// Port to bind; 0 picks an ephemeral port
	Port int

	// ReadTimeout bounds each receive, and so the stop latency
	ReadTimeout time.Duration

	// BufferSize is the largest datagram accepted; longer ones are truncated
	BufferSize int
}

// DefaultConfig returns the group and port the controller firmware uses
func DefaultConfig() Config {
	return Config{
		Group:       DefaultGroup,
		Port:        DefaultPort,
		ReadTimeout: DefaultReadTimeout,
		BufferSize:  DefaultBufferSize,
	}
}

// State of a Listener
type State int

const (
	StateStopped State = iota
	StateListening
	// StateStopping is between a stop request and the socket closing
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateListening:
		return "listening"
	case StateStopping:
		return "stopping"
	}
	return "stopped"
}

// Event is delivered to the Handler
type Event interface {
	isEvent()
}

// RawMessage carries every datagram received
type RawMessage struct {
	From string
	Text string
	At   time.Time
}

// DeviceAnnounced fires once per sender address
type DeviceAnnounced struct {
	Device *discovery.Device
}

// Error reports a socket failure. The loop stops after it.
type Error struct {
	Err error
}

// Stopped fires after the socket is closed, whatever the reason
type Stopped struct{}

func (RawMessage) isEvent()      {}
func (DeviceAnnounced) isEvent() {}
func (Error) isEvent()           {}
func (Stopped) isEvent()         {}

// Handler receives listener events on the listener goroutine
type Handler func(Event)

// Listener is a receive-only UDP announcement listener
type Listener struct {
	cfg     Config
	handler Handler
	logger  *zap.Logger

	mu     sync.Mutex
	state  State
	conn   net.PacketConn
	cancel context.CancelFunc
	done   chan struct{}
	known  map[string]bool
}

// NewListener creates a stopped listener. A nil handler discards events.
func NewListener(cfg Config, handler Handler) *Listener {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	if handler == nil {
		handler = func(Event) {}
	}
	return &Listener{
		cfg:     cfg,
		handler: handler,
		logger:  logging.Named("broadcast"),
		known:   make(map[string]bool),
	}
}

// State returns the current lifecycle state
func (l *Listener) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Running reports whether the listener is in StateListening
func (l *Listener) Running() bool {
	return l.State() == StateListening
}

// Addr returns the bound local address, or nil when stopped
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return nil
	}
	return l.conn.LocalAddr()
}

// Start binds the socket and starts the receive loop. Setup failures are
// returned directly and leave the listener stopped. Starting a listener that
// is already running returns a concurrency warning and changes nothing.
// A stop still in progress is waited for first.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	for l.state == StateStopping {
		done := l.done
		l.mu.Unlock()
		<-done
		l.mu.Lock()
	}
	defer l.mu.Unlock()

	if l.state == StateListening {
		return deviceapi.NewConcurrencyWarning("broadcast listener is already running")
	}

	conn, err := l.bind(ctx)
	if err != nil {
		return err
	}

	loopCtx, cancel := context.WithCancel(ctx)
	l.conn = conn
	l.cancel = cancel
	l.done = make(chan struct{})
	l.state = StateListening

	l.logger.Info("Broadcast listener started",
		zap.String("group", l.cfg.Group),
		zap.Stringer("addr", conn.LocalAddr()),
	)

	go l.receive(loopCtx, conn, l.done)
	return nil
}

func (l *Listener) bind(ctx context.Context) (net.PacketConn, error) {
	lc := net.ListenConfig{Control: reuseAddr}
	conn, err := lc.ListenPacket(ctx, "udp4", net.JoinHostPort("", strconv.Itoa(l.cfg.Port)))
	if err != nil {
		return nil, deviceapi.NewTransportError(fmt.Sprintf("cannot bind UDP port %d", l.cfg.Port), "", err)
	}

	if l.cfg.Group == "" {
		return conn, nil
	}

	group := net.ParseIP(l.cfg.Group)
	if group == nil || group.To4() == nil || !group.IsMulticast() {
		_ = conn.Close()
		return nil, deviceapi.NewConfigurationError(fmt.Sprintf("%q is not an IPv4 multicast group", l.cfg.Group), nil)
	}

	if err := ipv4.NewPacketConn(conn).JoinGroup(nil, &net.UDPAddr{IP: group}); err != nil {
		_ = conn.Close()
		return nil, deviceapi.NewTransportError(fmt.Sprintf("cannot join multicast group %s", group), "", err)
	}
	return conn, nil
}

// Stop asks the loop to exit and waits for the socket to close. The wait is
// bounded by one read timeout. Stopping a stopped listener is a no-op.
func (l *Listener) Stop() {
	<-l.Cancel()
}

// Cancel asks the loop to exit without waiting. The listener leaves
// StateListening at once; the returned channel closes with the socket.
func (l *Listener) Cancel() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateListening:
		l.state = StateStopping
		l.cancel()
		return l.done
	case StateStopping:
		return l.done
	}
	done := make(chan struct{})
	close(done)
	return done
}

// Forget clears the set of announced addresses so they are reported again
func (l *Listener) Forget() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.known = make(map[string]bool)
}

func (l *Listener) receive(ctx context.Context, conn net.PacketConn, done chan struct{}) {
	defer func() {
		_ = conn.Close()

		l.mu.Lock()
		l.state = StateStopped
		l.conn = nil
		l.mu.Unlock()

		l.logger.Info("Broadcast listener stopped")
		l.handler(Stopped{})
		close(done)
	}()

	buf := make([]byte, l.cfg.BufferSize)
	for {
		if ctx.Err() != nil {
			return
		}

		if err := conn.SetReadDeadline(time.Now().Add(l.cfg.ReadTimeout)); err != nil {
			l.fail(err)
			return
		}

		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			l.fail(err)
			return
		}

		l.handle(from, buf[:n])
	}
}

func (l *Listener) fail(err error) {
	l.logger.Warn("Broadcast receive failed", zap.Error(err))
	l.handler(Error{Err: deviceapi.NewTransportError("broadcast receive failed", "", err)})
}

func (l *Listener) handle(from net.Addr, data []byte) {
	host := senderIP(from)
	logging.LogDatagram(host, data)

	l.handler(RawMessage{
		From: host,
		Text: strings.ToValidUTF8(string(data), "\uFFFD"),
		At:   time.Now(),
	})

	info, err := deviceapi.ParseDeviceInfo(data)
	if err != nil {
		return
	}
	if !l.remember(host) {
		return
	}

	device := discovery.NewNamedDevice(host, info, discovery.SourceBroadcast)
	if len(info.Extra) > 0 {
		device.Metadata = make(map[string]string, len(info.Extra))
		for _, f := range info.Fields() {
			if f.Key != "device_id" && f.Key != "device_name" {
				device.Metadata[f.Key] = f.Value
			}
		}
	}
	l.handler(DeviceAnnounced{Device: device})
}

// remember records host and reports whether it was new
func (l *Listener) remember(host string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.known[host] {
		return false
	}
	l.known[host] = true
	return true
}

func senderIP(addr net.Addr) string {
	if udp, ok := addr.(*net.UDPAddr); ok {
		return udp.IP.String()
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
