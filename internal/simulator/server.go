package simulator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/ledbench/internal/logging"
)

// Defaults for a simulated controller
const (
	DefaultListen           = "127.0.0.1:8080"
	DefaultDeviceID         = "esp32s3-sim"
	DefaultDeviceName       = "ledbench simulator"
	DefaultAnnounceAddr     = "224.0.0.1:8888"
	DefaultAnnounceInterval = 2 * time.Second

	// DefaultFrameInterval paces the rainbow animation like the firmware
	DefaultFrameInterval = 20 * time.Millisecond
)

// Config holds the simulator configuration
type Config struct {
	Listen     string
	DeviceID   string
	DeviceName string

	// AnnounceAddr is where announcements go while broadcast is enabled
	AnnounceAddr     string
	AnnounceInterval time.Duration

	FrameInterval time.Duration
}

// Server is a stub LED controller serving the device HTTP API, a websocket
// state feed and UDP announcements
type Server struct {
	config Config
	led    *LED
	logger *zap.Logger

	http     *http.Server
	listener net.Listener
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	mu          sync.Mutex
	activeConns map[string]closer
	shutdown    bool
}

type closer interface {
	Close() error
}

// New creates a Server. Zero config fields take the defaults.
func New(config Config) *Server {
	if config.Listen == "" {
		config.Listen = DefaultListen
	}
	if config.DeviceID == "" {
		config.DeviceID = DefaultDeviceID
	}
	if config.DeviceName == "" {
		config.DeviceName = DefaultDeviceName
	}
	if config.AnnounceAddr == "" {
		config.AnnounceAddr = DefaultAnnounceAddr
	}
	if config.AnnounceInterval <= 0 {
		config.AnnounceInterval = DefaultAnnounceInterval
	}
	if config.FrameInterval <= 0 {
		config.FrameInterval = DefaultFrameInterval
	}

	s := &Server{
		config:      config,
		led:         NewLED(config.DeviceID, config.DeviceName),
		logger:      logging.Named("simulator"),
		activeConns: make(map[string]closer),
	}
	s.http = &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// LED returns the simulated LED
func (s *Server) LED() *LED {
	return s.led
}

// Start binds the listen address and serves in the background. It returns
// once the socket is bound; the server runs until ctx is cancelled or
// Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Listen, err)
	}
	s.listener = listener

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.logger.Info("Simulator listening",
		zap.String("addr", listener.Addr().String()),
		zap.String("device_id", s.config.DeviceID),
		zap.String("announce", s.config.AnnounceAddr),
	)

	s.wg.Add(3)
	go func() {
		defer s.wg.Done()
		if err := s.http.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server stopped", zap.Error(err))
		}
	}()
	go func() {
		defer s.wg.Done()
		s.animate(ctx)
	}()
	go func() {
		defer s.wg.Done()
		a := &announcer{
			target:   s.config.AnnounceAddr,
			interval: s.config.AnnounceInterval,
			led:      s.led,
			logger:   s.logger,
		}
		if err := a.run(ctx); err != nil {
			s.logger.Error("Announcer stopped", zap.Error(err))
		}
	}()

	context.AfterFunc(ctx, func() {
		_ = s.Shutdown(context.Background())
	})
	return nil
}

// Addr returns the bound HTTP address, or nil before Start
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) animate(ctx context.Context) {
	ticker := time.NewTicker(s.config.FrameInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.led.Step()
		}
	}
}

// track registers a feed connection; it fails once shutdown has begun
func (s *Server) track(addr string, c closer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutdown {
		return false
	}
	s.activeConns[addr] = c
	return true
}

func (s *Server) untrack(addr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.activeConns, addr)
}

// ActiveFeeds returns the number of connected feed clients
func (s *Server) ActiveFeeds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}

// Shutdown gracefully shuts down the server. It is safe to call more than
// once.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		return nil
	}
	s.shutdown = true
	for addr, c := range s.activeConns {
		s.logger.Debug("Closing feed", zap.String("remote_addr", addr))
		_ = c.Close()
		delete(s.activeConns, addr)
	}
	s.mu.Unlock()

	s.logger.Info("Shutting down simulator...")
	if s.cancel != nil {
		s.cancel()
	}

	err := s.http.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("Shutdown timeout, forcing close")
		return ctx.Err()
	}

	logging.Sync()
	return err
}
