// Package discovery finds LED controllers on the local network.
//
// The primary mechanism is a sequential sweep of a small host range in the
// local /24: each candidate gets an ICMP echo, and each live host is asked
// for GET /api/info. Hosts that answer with a device_id become named
// devices; other live hosts are listed as generic network devices so the
// operator can still try them.
//
// mDNS browsing of _http._tcp services is available as a second source.
//
// # Usage Example
//
//	scanner := discovery.NewScanner(80)
//	report, err := scanner.Sweep(ctx)
//	if err != nil {
//	    return err
//	}
//	for _, device := range report.Devices {
//	    fmt.Println(device)
//	}
//
// # Network Requirements
//
// ICMP echo uses an unprivileged datagram socket where the kernel allows it
// (net.ipv4.ping_group_range on Linux). Otherwise reachability falls back to
// a TCP connect on the HTTP port.
//
// Only byte-aligned subnet masks are swept.
package discovery
