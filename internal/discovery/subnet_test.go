package discovery

import (
	"net"
	"testing"

	"github.com/muurk/ledbench/internal/deviceapi"
)

func ipNet(cidr string) *net.IPNet {
	ip, n, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(err)
	}
	n.IP = ip
	return n
}

func TestLocalIPv4(t *testing.T) {
	addrs := []net.Addr{
		ipNet("127.0.0.1/8"),
		ipNet("fe80::1/64"),
		ipNet("192.168.1.50/24"),
		ipNet("10.0.0.2/8"),
	}

	ip, mask, err := LocalIPv4(addrs)
	if err != nil {
		t.Fatalf("LocalIPv4() error = %v", err)
	}
	if !ip.Equal(net.ParseIP("192.168.1.50")) {
		t.Errorf("ip = %v, want 192.168.1.50", ip)
	}
	if net.IP(mask).String() != "255.255.255.0" {
		t.Errorf("mask = %v, want 255.255.255.0", net.IP(mask))
	}
}

func TestLocalIPv4_None(t *testing.T) {
	_, _, err := LocalIPv4([]net.Addr{ipNet("127.0.0.1/8")})
	if !deviceapi.IsConfigurationError(err) {
		t.Fatalf("LocalIPv4() error = %v, want configuration error", err)
	}
}

func TestNetworkPrefix(t *testing.T) {
	tests := []struct {
		name    string
		ip      string
		mask    net.IPMask
		want    string
		wantErr bool
	}{
		{"class C", "192.168.1.50", net.CIDRMask(24, 32), "192.168.1.0", false},
		{"class B", "172.16.5.9", net.CIDRMask(16, 32), "172.16.0.0", false},
		{"class A", "10.1.2.3", net.CIDRMask(8, 32), "10.0.0.0", false},
		{"not byte aligned", "192.168.1.50", net.CIDRMask(22, 32), "", true},
		{"IPv6 address", "fe80::1", net.CIDRMask(24, 32), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NetworkPrefix(net.ParseIP(tt.ip), tt.mask)
			if tt.wantErr {
				if !deviceapi.IsConfigurationError(err) {
					t.Fatalf("NetworkPrefix() error = %v, want configuration error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NetworkPrefix() error = %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("NetworkPrefix() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCandidates(t *testing.T) {
	prefix := net.ParseIP("192.168.1.0")

	t.Run("local outside range", func(t *testing.T) {
		got := Candidates(prefix, net.ParseIP("192.168.1.50"), DefaultFirstHost, DefaultLastHost)
		if len(got) != 20 {
			t.Fatalf("len = %d, want 20", len(got))
		}
		if got[0].String() != "192.168.1.1" || got[19].String() != "192.168.1.20" {
			t.Errorf("range = %v..%v", got[0], got[19])
		}
	})

	t.Run("local inside range is skipped", func(t *testing.T) {
		got := Candidates(prefix, net.ParseIP("192.168.1.7"), DefaultFirstHost, DefaultLastHost)
		if len(got) != 19 {
			t.Fatalf("len = %d, want 19", len(got))
		}
		for _, ip := range got {
			if ip.String() == "192.168.1.7" {
				t.Error("local address was not skipped")
			}
		}
	})

	t.Run("class B prefix uses first three octets", func(t *testing.T) {
		got := Candidates(net.ParseIP("172.16.0.0"), nil, 1, 2)
		if len(got) != 2 || got[1].String() != "172.16.0.2" {
			t.Errorf("Candidates() = %v", got)
		}
	})
}
