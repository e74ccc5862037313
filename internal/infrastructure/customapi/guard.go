package customapi

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"syscall"
)

// ErrBlockedDestination is returned when a user supplied URL resolves to an
// address inside the service's own network
var ErrBlockedDestination = errors.New("API URL points to a private or local network address")

// carrier grade NAT range, not covered by netip.Addr.IsPrivate
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

// blockedAddress reports whether ip must not be dialled on behalf of a user
func blockedAddress(ip netip.Addr) bool {
	ip = ip.Unmap()
	return !ip.IsValid() ||
		ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() ||
		ip.IsMulticast() ||
		sharedAddressSpace.Contains(ip)
}

// guardDial runs after name resolution, so redirects and DNS answers that
// point inward are refused as well
func guardDial(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBlockedDestination, address)
	}
	ip, err := netip.ParseAddr(host)
	if err != nil || blockedAddress(ip) {
		return fmt.Errorf("%w: %s", ErrBlockedDestination, host)
	}
	return nil
}
