package discovery

import (
	"context"
	"errors"
	"net"
	"os"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"

	"github.com/muurk/ledbench/internal/deviceapi"
)

// DefaultPingTimeout bounds one reachability probe
const DefaultPingTimeout = 1 * time.Second

// protocolICMP is the IANA protocol number for ICMP over IPv4
const protocolICMP = 1

// Prober answers whether a host is alive
type Prober interface {
	Reachable(ctx context.Context, ip net.IP) bool
}

// Identifier asks a live host for its controller identity
type Identifier interface {
	Identify(ctx context.Context, ip net.IP) (*deviceapi.DeviceInfo, error)
}

// ICMPProber sends one ICMP echo over an unprivileged datagram socket.
// Hosts where such sockets are not permitted fall back to a TCP connect on
// FallbackPort, counting a refused connection as alive.
type ICMPProber struct {
	Timeout      time.Duration
	FallbackPort int

	seq atomic.Uint32
}

// NewICMPProber creates a prober with the default one second timeout
func NewICMPProber() *ICMPProber {
	return &ICMPProber{
		Timeout:      DefaultPingTimeout,
		FallbackPort: deviceapi.DefaultPort,
	}
}

// Reachable implements Prober
func (p *ICMPProber) Reachable(ctx context.Context, ip net.IP) bool {
	alive, err := p.ping(ctx, ip)
	if err == nil {
		return alive
	}
	return p.dial(ctx, ip)
}

func (p *ICMPProber) deadline(ctx context.Context) time.Time {
	deadline := time.Now().Add(p.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	return deadline
}

// ping returns an error only when ICMP itself is unavailable
func (p *ICMPProber) ping(ctx context.Context, ip net.IP) (bool, error) {
	conn, err := icmp.ListenPacket("udp4", "0.0.0.0")
	if err != nil {
		return false, err
	}
	defer func() { _ = conn.Close() }()

	if err := conn.SetDeadline(p.deadline(ctx)); err != nil {
		return false, err
	}

	seq := int(p.seq.Add(1) & 0xffff)
	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{
			ID:   os.Getpid() & 0xffff,
			Seq:  seq,
			Data: []byte("ledbench"),
		},
	}
	wire, err := msg.Marshal(nil)
	if err != nil {
		return false, err
	}

	if _, err := conn.WriteTo(wire, &net.UDPAddr{IP: ip}); err != nil {
		return false, nil
	}

	buf := make([]byte, 1500)
	for {
		n, peer, err := conn.ReadFrom(buf)
		if err != nil {
			return false, nil
		}

		reply, err := icmp.ParseMessage(protocolICMP, buf[:n])
		if err != nil || reply.Type != ipv4.ICMPTypeEchoReply {
			continue
		}
		if udp, ok := peer.(*net.UDPAddr); ok && !udp.IP.Equal(ip) {
			continue
		}
		// the kernel rewrites the echo ID on datagram sockets, so only the
		// sequence number identifies our reply
		if echo, ok := reply.Body.(*icmp.Echo); ok && echo.Seq == seq {
			return true, nil
		}
	}
}

func (p *ICMPProber) dial(ctx context.Context, ip net.IP) bool {
	ctx, cancel := context.WithDeadline(ctx, p.deadline(ctx))
	defer cancel()

	port := p.FallbackPort
	if port == 0 {
		port = deviceapi.DefaultPort
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(ip.String(), strconv.Itoa(port)))
	if err == nil {
		_ = conn.Close()
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}

// HTTPIdentifier identifies controllers through GET /api/info
type HTTPIdentifier struct {
	Port    int
	Timeout time.Duration
}

// NewHTTPIdentifier creates an identifier with the two second probe timeout
func NewHTTPIdentifier(port int) *HTTPIdentifier {
	return &HTTPIdentifier{Port: port, Timeout: deviceapi.ProbeTimeout}
}

// Identify implements Identifier
func (h *HTTPIdentifier) Identify(ctx context.Context, ip net.IP) (*deviceapi.DeviceInfo, error) {
	client := deviceapi.NewClient(ip.String(), h.Port).WithTimeout(h.Timeout)
	return client.Info(ctx)
}
