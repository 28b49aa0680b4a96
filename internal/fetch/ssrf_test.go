package fetch

import (
	"context"
	"errors"
	"net/netip"
	"testing"
)

func TestIsPrivateOrReserved(t *testing.T) {
	t.Parallel()

	tests := []struct {
		addr    string
		blocked bool
	}{
		{"127.0.0.1", true},
		{"127.255.255.254", true},
		{"10.0.0.1", true},
		{"172.16.0.1", true},
		{"172.31.255.255", true},
		{"192.168.1.1", true},
		{"169.254.169.254", true},
		{"0.0.0.0", true},
		{"0.1.2.3", true},
		{"255.255.255.255", true},
		{"224.0.0.1", true},
		{"::1", true},
		{"fc00::1", true},
		{"fd12:3456::1", true},
		{"fe80::1", true},
		{"ff02::1", true},
		{"::", true},
		{"::ffff:192.168.1.1", true},
		{"::ffff:8.8.8.8", false},
		{"8.8.8.8", false},
		{"93.184.216.34", false},
		{"172.32.0.1", false},
		{"2606:4700::1111", false},
	}

	for _, tt := range tests {
		addr := netip.MustParseAddr(tt.addr)
		if got := IsPrivateOrReserved(addr); got != tt.blocked {
			t.Fatalf("IsPrivateOrReserved(%s) = %v, want %v", tt.addr, got, tt.blocked)
		}
	}
}

func TestValidateIPReturnsBlockedIPError(t *testing.T) {
	t.Parallel()

	err := ValidateIP(netip.MustParseAddr("192.168.0.10"))
	var blocked *BlockedIPError
	if !errors.As(err, &blocked) {
		t.Fatalf("ValidateIP = %v, want BlockedIPError", err)
	}
	if blocked.IP.String() != "192.168.0.10" {
		t.Fatalf("error carries wrong address: %s", blocked.IP)
	}
	if err := ValidateIP(netip.MustParseAddr("8.8.8.8")); err != nil {
		t.Fatalf("public address rejected: %v", err)
	}
}

func TestCheckSchemeDenylist(t *testing.T) {
	t.Parallel()

	for _, scheme := range []string{"file", "ftp", "data", "javascript", "chrome", "about", "blob", "ws", "wss"} {
		err := CheckScheme(scheme)
		var blocked *BlockedSchemeError
		if !errors.As(err, &blocked) {
			t.Fatalf("CheckScheme(%q) = %v, want BlockedSchemeError", scheme, err)
		}
	}
	for _, scheme := range []string{"http", "https"} {
		if err := CheckScheme(scheme); err != nil {
			t.Fatalf("CheckScheme(%q) = %v, want nil", scheme, err)
		}
	}
}

func TestGuardBlocksPrivateLiteralsBeforeDialing(t *testing.T) {
	t.Parallel()

	guard := NewGuard()
	for _, address := range []string{"127.0.0.1:80", "10.0.0.1:443", "169.254.169.254:80", "[::1]:80"} {
		_, err := guard.DialContext(context.Background(), "tcp", address)
		var blocked *BlockedIPError
		if !errors.As(err, &blocked) {
			t.Fatalf("DialContext(%s) = %v, want BlockedIPError", address, err)
		}
	}
}

func TestGuardRejectsMalformedAddress(t *testing.T) {
	t.Parallel()

	guard := NewGuard()
	_, err := guard.DialContext(context.Background(), "tcp", "no-port-here")
	var invalid *InvalidURLError
	if !errors.As(err, &invalid) {
		t.Fatalf("DialContext = %v, want InvalidURLError", err)
	}
}
