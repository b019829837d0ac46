// Package clientaddr resolves the address recorded for a request's client.
package clientaddr

import (
	"errors"
	"fmt"
	"net/http"
	"net/netip"
)

// RealIPHeader is the header a trusted reverse proxy sets to the client address.
const RealIPHeader = "X-Real-IP"

var (
	// ErrUnreadable is returned when the trusted header holds bytes outside
	// printable ASCII and tab.
	ErrUnreadable = errors.New("x-real-ip header empty or unreadable")

	// ErrInvalid is returned when the trusted header is not a bare IP literal.
	ErrInvalid = errors.New("x-real-ip header malformed")

	// ErrPeerAddress is returned when the transport peer address cannot be parsed.
	ErrPeerAddress = errors.New("unparseable peer address")
)

// Resolver picks the client address for a request. When TrustRealIP is set
// and the request carries X-Real-IP, that header wins; otherwise the
// transport peer address is used.
type Resolver struct {
	TrustRealIP bool
}

// New returns a Resolver. trustRealIP must only be enabled behind a reverse
// proxy that overwrites X-Real-IP.
func New(trustRealIP bool) *Resolver {
	return &Resolver{TrustRealIP: trustRealIP}
}

// Resolve returns the client address for r.
func (res *Resolver) Resolve(r *http.Request) (netip.Addr, error) {
	if res.TrustRealIP {
		if values, ok := r.Header[http.CanonicalHeaderKey(RealIPHeader)]; ok && len(values) > 0 {
			return ParseRealIP(values[0])
		}
	}
	return peerAddr(r.RemoteAddr)
}

// ParseRealIP validates an X-Real-IP value. The value must be printable
// ASCII and a single IPv4 or IPv6 literal with no zone and no port.
func ParseRealIP(value string) (netip.Addr, error) {
	for i := 0; i < len(value); i++ {
		if c := value[i]; (c < 0x20 && c != '\t') || c > 0x7e {
			return netip.Addr{}, ErrUnreadable
		}
	}

	addr, err := netip.ParseAddr(value)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if addr.Zone() != "" {
		return netip.Addr{}, fmt.Errorf("%w: zone not allowed", ErrInvalid)
	}
	return addr, nil
}

func peerAddr(remoteAddr string) (netip.Addr, error) {
	ap, err := netip.ParseAddrPort(remoteAddr)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("%w %q: %w", ErrPeerAddress, remoteAddr, err)
	}
	return ap.Addr().WithZone(""), nil
}
