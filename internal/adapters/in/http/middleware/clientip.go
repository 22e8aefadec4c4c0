package middleware

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// TrustedProxies is the set of peers whose forwarding headers are believed.
type TrustedProxies []netip.Prefix

// ParseTrustedProxies reads router.trusted_proxies. Entries are addresses
// ("10.0.0.1") or CIDR ranges ("10.0.0.0/8"); every invalid entry is
// reported.
func ParseTrustedProxies(entries []string) (TrustedProxies, error) {
	var (
		trusted TrustedProxies
		errs    []error
	)
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if prefix, err := netip.ParsePrefix(entry); err == nil {
			trusted = append(trusted, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			errs = append(errs, fmt.Errorf("trusted proxy %q is neither an address nor a CIDR range", entry))
			continue
		}
		addr = addr.Unmap()
		trusted = append(trusted, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return trusted, errors.Join(errs...)
}

// Contains reports whether ip belongs to a trusted proxy.
func (t TrustedProxies) Contains(ip string) bool {
	if len(t) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range t {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// GetClientIP returns the address of the client that sent r. Forwarding
// headers are only read when the direct peer is trusted. X-Forwarded-For
// is walked from the nearest hop and the first untrusted address wins, so a
// client cannot pick its own address by prepending entries.
func GetClientIP(r *http.Request, trusted TrustedProxies) string {
	remoteIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		remoteIP = r.RemoteAddr
	}
	if !trusted.Contains(remoteIP) {
		return remoteIP
	}

	if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
		hops := strings.Split(strings.Join(xff, ","), ",")
		client := remoteIP
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			client = hop
			if !trusted.Contains(hop) {
				break
			}
		}
		return client
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return remoteIP
}
