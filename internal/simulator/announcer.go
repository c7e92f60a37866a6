package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/ipv4"
)

// Announcement is the datagram multicast while broadcast is enabled
type Announcement struct {
	DeviceID   string `json:"device_id"`
	DeviceName string `json:"device_name"`
	IP         string `json:"ip"`
	RGB        [3]int `json:"rgb"`
}

// announcer multicasts the LED state at a fixed interval while broadcast is
// enabled
type announcer struct {
	target   string
	interval time.Duration
	led      *LED
	logger   *zap.Logger
}

// run sends until ctx is cancelled
func (a *announcer) run(ctx context.Context) error {
	raddr, err := net.ResolveUDPAddr("udp4", a.target)
	if err != nil {
		return fmt.Errorf("invalid announce address %q: %w", a.target, err)
	}
	conn, err := net.DialUDP("udp4", nil, raddr)
	if err != nil {
		return fmt.Errorf("failed to open announce socket: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if raddr.IP.IsMulticast() {
		pc := ipv4.NewPacketConn(conn)
		// local listeners on this host must see our own announcements
		if err := pc.SetMulticastLoopback(true); err != nil {
			a.logger.Debug("Multicast loopback not set", zap.Error(err))
		}
		if err := pc.SetMulticastTTL(1); err != nil {
			a.logger.Debug("Multicast TTL not set", zap.Error(err))
		}
	}

	localIP := conn.LocalAddr().(*net.UDPAddr).IP.String()

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if !a.led.Broadcasting() {
			continue
		}
		st := a.led.Snapshot()
		payload, err := json.Marshal(Announcement{
			DeviceID:   st.DeviceID,
			DeviceName: st.DeviceName,
			IP:         localIP,
			RGB:        st.RGB,
		})
		if err != nil {
			return err
		}
		if _, err := conn.Write(payload); err != nil {
			a.logger.Warn("Announcement not sent", zap.String("target", a.target), zap.Error(err))
			continue
		}
		a.logger.Debug("Announcement sent", zap.String("target", a.target), zap.Int("bytes", len(payload)))
	}
}
