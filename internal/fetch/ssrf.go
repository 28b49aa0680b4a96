package fetch

import (
	"context"
	"net"
	"net/netip"
	"time"
)

// deniedSchemes is the SSRF denylist, checked in addition to the
// canonicalizer's http/https allowlist as a second gate.
var deniedSchemes = map[string]struct{}{
	"file":       {},
	"ftp":        {},
	"data":       {},
	"javascript": {},
	"chrome":     {},
	"about":      {},
	"blob":       {},
	"ws":         {},
	"wss":        {},
}

// CheckScheme returns BlockedSchemeError for schemes on the denylist.
func CheckScheme(scheme string) error {
	if _, denied := deniedSchemes[scheme]; denied {
		return &BlockedSchemeError{Scheme: scheme}
	}
	return nil
}

var broadcastV4 = netip.AddrFrom4([4]byte{255, 255, 255, 255})

// IsPrivateOrReserved reports whether addr must never be contacted.
//
// Covers loopback, RFC1918 private ranges, link-local, multicast, broadcast,
// unspecified and 0.0.0.0/8 for IPv4, and loopback, unique-local (fc00::/7),
// link-local, multicast and unspecified for IPv6.
func IsPrivateOrReserved(addr netip.Addr) bool {
	addr = addr.Unmap()
	if addr.Is4() {
		octets := addr.As4()
		if octets[0] == 0 || addr == broadcastV4 {
			return true
		}
	}
	return addr.IsLoopback() ||
		addr.IsPrivate() ||
		addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() ||
		addr.IsMulticast() ||
		addr.IsUnspecified()
}

// ValidateIP returns BlockedIPError when addr is private or reserved.
func ValidateIP(addr netip.Addr) error {
	if IsPrivateOrReserved(addr) {
		return &BlockedIPError{IP: addr}
	}
	return nil
}

// Guard validates resolved addresses before any connection is opened.
//
// It is wired into the transport as its DialContext so the check runs on the
// addresses actually dialed, not on the hostname literal; a DNS record
// answering with a private address is rejected even when the name looks
// public, and the connection is opened to a validated IP so a second
// resolution cannot swap the target.
type Guard struct {
	resolver *net.Resolver
	dialer   *net.Dialer
}

// NewGuard builds a Guard using the default resolver.
func NewGuard() *Guard {
	return &Guard{
		resolver: net.DefaultResolver,
		dialer: &net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		},
	}
}

// DialContext resolves the host, validates every answer, and dials the first
// validated address that accepts a connection.
func (g *Guard) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return nil, &InvalidURLError{Raw: address, Err: err}
	}

	var addrs []netip.Addr
	if literal, perr := netip.ParseAddr(host); perr == nil {
		addrs = []netip.Addr{literal}
	} else {
		addrs, err = g.resolver.LookupNetIP(ctx, "ip", host)
		if err != nil {
			return nil, &DNSError{Host: host, Err: err}
		}
	}

	for _, addr := range addrs {
		if err := ValidateIP(addr); err != nil {
			return nil, err
		}
	}

	var dialErr error
	for _, addr := range addrs {
		conn, err := g.dialer.DialContext(ctx, network, net.JoinHostPort(addr.Unmap().String(), port))
		if err == nil {
			return conn, nil
		}
		dialErr = err
	}
	return nil, dialErr
}
