package discovery

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/ledbench/internal/deviceapi"
	"github.com/muurk/ledbench/internal/logging"
)

// HostResult is the typed outcome of probing one candidate address.
// Unreachable and unidentified hosts are ordinary results, not errors.
type HostResult struct {
	IP         net.IP
	Reachable  bool
	Identified bool
	// Err is the identity probe failure for reachable, unidentified hosts
	Err    error
	Device *Device
}

// SweepReport is the outcome of one Sweep
type SweepReport struct {
	Local      net.IP
	Prefix     net.IP
	Hosts      []HostResult
	Devices    []*Device // reachable hosts in probe order
	StartedAt  time.Time
	FinishedAt time.Time
	Cancelled  bool
}

// Scanner sweeps a small range of the local subnet for controllers.
//
// Every collaborator is a field so tests can replace the host network query
// and both probes.
type Scanner struct {
	// Addrs queries the host's interface addresses
	Addrs func() ([]net.Addr, error)

	// Prober answers reachability (default ICMP echo)
	Prober Prober

	// Identifier asks live hosts for /api/info
	Identifier Identifier

	FirstHost    int
	LastHost     int
	PingTimeout  time.Duration
	ProbeTimeout time.Duration

	// OnHost, when set, is called after each candidate is probed
	OnHost func(result HostResult, done, total int)

	logger *zap.Logger
}

// NewScanner creates a sweep scanner with the default host range and probes
func NewScanner(port int) *Scanner {
	return &Scanner{
		Addrs:        interfaceAddrs,
		Prober:       NewICMPProber(),
		Identifier:   NewHTTPIdentifier(port),
		FirstHost:    DefaultFirstHost,
		LastHost:     DefaultLastHost,
		PingTimeout:  DefaultPingTimeout,
		ProbeTimeout: deviceapi.ProbeTimeout,
		logger:       logging.Named("discovery"),
	}
}

func (s *Scanner) log() *zap.Logger {
	if s.logger == nil {
		s.logger = logging.Named("discovery")
	}
	return s.logger
}

// Sweep probes each candidate address in turn, in the caller's goroutine.
//
// A failure to work out the local subnet is a configuration error and
// yields no results. Per-host failures never abort the sweep. Cancelling ctx
// stops between hosts and returns the partial report with ctx.Err().
func (s *Scanner) Sweep(ctx context.Context) (*SweepReport, error) {
	addrsFn := s.Addrs
	if addrsFn == nil {
		addrsFn = interfaceAddrs
	}

	addrs, err := addrsFn()
	if err != nil {
		return nil, deviceapi.NewConfigurationError("cannot query network interfaces", err)
	}
	local, mask, err := LocalIPv4(addrs)
	if err != nil {
		return nil, err
	}
	prefix, err := NetworkPrefix(local, mask)
	if err != nil {
		return nil, err
	}

	candidates := Candidates(prefix, local, s.FirstHost, s.LastHost)
	report := &SweepReport{
		Local:     local,
		Prefix:    prefix,
		StartedAt: time.Now(),
	}

	s.log().Info("Sweep started",
		zap.Stringer("local", local),
		zap.Stringer("prefix", prefix),
		zap.Int("candidates", len(candidates)),
	)

	for i, ip := range candidates {
		if ctx.Err() != nil {
			report.Cancelled = true
			break
		}

		result := s.probeHost(ctx, ip)
		report.Hosts = append(report.Hosts, result)
		if result.Device != nil {
			report.Devices = append(report.Devices, result.Device)
		}

		if s.OnHost != nil {
			s.OnHost(result, i+1, len(candidates))
		}
	}

	report.FinishedAt = time.Now()
	s.log().Info("Sweep finished",
		zap.Int("devices", len(report.Devices)),
		zap.Bool("cancelled", report.Cancelled),
		zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
	)

	if report.Cancelled {
		return report, ctx.Err()
	}
	return report, nil
}

func (s *Scanner) probeHost(ctx context.Context, ip net.IP) HostResult {
	result := HostResult{IP: ip}

	pingTimeout := s.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = DefaultPingTimeout
	}
	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	result.Reachable = s.Prober != nil && s.Prober.Reachable(pctx, ip)
	cancel()

	if !result.Reachable {
		return result
	}

	if s.Identifier == nil {
		result.Device = NewGenericDevice(ip.String(), SourceSweep)
		return result
	}

	probeTimeout := s.ProbeTimeout
	if probeTimeout <= 0 {
		probeTimeout = deviceapi.ProbeTimeout
	}
	ictx, cancel := context.WithTimeout(ctx, probeTimeout)
	info, err := s.Identifier.Identify(ictx, ip)
	cancel()

	if err != nil {
		s.log().Debug("Host did not identify", zap.Stringer("ip", ip), zap.Error(err))
		result.Err = err
		result.Device = NewGenericDevice(ip.String(), SourceSweep)
		return result
	}

	result.Identified = true
	result.Device = NewNamedDevice(ip.String(), info, SourceSweep)
	return result
}
