package discovery

import (
	"fmt"
	"net"

	"github.com/muurk/ledbench/internal/deviceapi"
)

// Default host-ID range swept inside the local prefix.
const (
	DefaultFirstHost = 1
	DefaultLastHost  = 20
)

// LocalIPv4 picks the first non-loopback IPv4 address (with its mask) from
// addrs.
func LocalIPv4(addrs []net.Addr) (net.IP, net.IPMask, error) {
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		ip := ipNet.IP.To4()
		if ip == nil || ip.IsLoopback() {
			continue
		}

		mask := ipNet.Mask
		if len(mask) == net.IPv6len {
			mask = mask[12:]
		}
		if len(mask) != net.IPv4len {
			continue
		}
		return ip, mask, nil
	}
	return nil, nil, deviceapi.NewConfigurationError("no IPv4 network interface found", nil)
}

// NetworkPrefix masks ip with mask, one octet at a time. Only byte-aligned
// masks are supported: an octet whose mask byte is neither 255 nor 0 is a
// configuration error.
func NetworkPrefix(ip net.IP, mask net.IPMask) (net.IP, error) {
	ip4 := ip.To4()
	if ip4 == nil {
		return nil, deviceapi.NewConfigurationError(fmt.Sprintf("%s is not an IPv4 address", ip), nil)
	}
	if len(mask) == net.IPv6len {
		mask = mask[12:]
	}
	if len(mask) != net.IPv4len {
		return nil, deviceapi.NewConfigurationError("subnet mask is not an IPv4 mask", nil)
	}

	prefix := make(net.IP, net.IPv4len)
	for i := 0; i < net.IPv4len; i++ {
		switch mask[i] {
		case 0xff:
			prefix[i] = ip4[i]
		case 0:
			prefix[i] = 0
		default:
			return nil, deviceapi.NewConfigurationError(
				fmt.Sprintf("subnet mask %s is not byte-aligned; only /8, /16 and /24 networks can be swept", net.IP(mask)), nil)
		}
	}
	return prefix, nil
}

// Candidates lists the addresses to sweep: host IDs first..last appended to
// the first three octets of prefix, skipping local.
func Candidates(prefix, local net.IP, first, last int) []net.IP {
	base := prefix.To4()
	if base == nil {
		return nil
	}
	if first < 1 {
		first = 1
	}
	if last > 254 {
		last = 254
	}

	var out []net.IP
	for i := first; i <= last; i++ {
		ip := net.IPv4(base[0], base[1], base[2], byte(i)).To4()
		if local != nil && ip.Equal(local) {
			continue
		}
		out = append(out, ip)
	}
	return out
}

// interfaceAddrs returns the addresses of every up, non-loopback interface
func interfaceAddrs() ([]net.Addr, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	var out []net.Addr
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		out = append(out, addrs...)
	}
	return out, nil
}
