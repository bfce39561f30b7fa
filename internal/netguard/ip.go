// Package netguard decides which network targets an outbound tool request
// may touch. It blocks URLs whose host is, or resolves to, an address in a
// reserved, private, link-local, loopback, or documentation range, plus a
// short list of hostnames that name the local machine regardless of DNS.
//
// Known limitation: callers perform the request using the checked URL's
// hostname, so the transport re-resolves it at connect time. A resolver that
// answers differently between our check and the connect (DNS rebinding) can
// slip through that window; pinning the validated address would require a
// custom dialer and is not done here.
package netguard

import "net/netip"

// Reserved and private IPv4 ranges. Membership in any of these blocks the
// request.
var blockedV4 = mustPrefixes(
	"0.0.0.0/8",       // "this network"
	"10.0.0.0/8",      // private
	"100.64.0.0/10",   // carrier-grade NAT
	"127.0.0.0/8",     // loopback
	"169.254.0.0/16",  // link-local
	"172.16.0.0/12",   // private
	"192.168.0.0/16",  // private
	"192.0.0.0/24",    // IETF protocol assignments
	"192.0.2.0/24",    // TEST-NET-1
	"198.18.0.0/15",   // benchmarking
	"198.51.100.0/24", // TEST-NET-2
	"203.0.113.0/24",  // TEST-NET-3
	"224.0.0.0/4",     // multicast
	"240.0.0.0/4",     // reserved
)

// Reserved and private IPv6 ranges.
var blockedV6 = mustPrefixes(
	"::/128",        // unspecified
	"::1/128",       // loopback
	"fc00::/7",      // unique-local
	"fe80::/10",     // link-local
	"ff00::/8",      // multicast
	"2001:db8::/32", // documentation
)

// IsPrivateIP reports whether addr belongs to any blocked range. An
// IPv4-mapped IPv6 address is unwrapped and the embedded IPv4 address is
// checked against the IPv4 table, so ::ffff:127.0.0.1 is treated as
// 127.0.0.1. Invalid addresses are treated as private, never as allowed.
func IsPrivateIP(addr netip.Addr) bool {
	if !addr.IsValid() {
		return true
	}
	addr = addr.Unmap()
	table := blockedV6
	if addr.Is4() {
		table = blockedV4
	}
	for _, prefix := range table {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// IsPrivateIPString parses s as an IP address and checks it against the
// blocked ranges. Unparseable input counts as private.
func IsPrivateIPString(s string) bool {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return true
	}
	return IsPrivateIP(addr)
}

func mustPrefixes(cidrs ...string) []netip.Prefix {
	out := make([]netip.Prefix, 0, len(cidrs))
	for _, cidr := range cidrs {
		out = append(out, netip.MustParsePrefix(cidr))
	}
	return out
}
