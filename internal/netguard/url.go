package netguard

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strings"
)

// Codes carried by Error. They match the failure codes the tool layer
// surfaces, so conversion is a field copy.
const (
	CodeInvalidURL  = "INVALID_URL"
	CodeSSRFBlocked = "SSRF_BLOCKED"
	CodeDNSFailed   = "DNS_FAILED"
)

// Error is a classified URL policy rejection.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

func errf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Hostname suffixes that name the local machine or an internal zone. These
// are blocked before any resolution, whatever they would resolve to.
var blockedHostSuffixes = []string{".localhost", ".local", ".internal"}

// Resolver is the subset of net.Resolver the URL check needs; swapped in
// tests.
type Resolver interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

var defaultResolver Resolver = net.DefaultResolver

// CheckURL validates raw against the outbound network policy and returns the
// parsed URL on success. It is the only constructor of a policy-approved
// URL; a redirect target must go back through it before being followed.
//
// When the host is a DNS name, every resolved address is checked: a single
// private address among the answers blocks the request, because a resolver
// can return a public decoy ahead of a private address.
func CheckURL(ctx context.Context, raw string) (*url.URL, error) {
	return checkURL(ctx, raw, defaultResolver)
}

func checkURL(ctx context.Context, raw string, resolver Resolver) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errf(CodeInvalidURL, "unparseable URL: %v", err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, errf(CodeInvalidURL, "scheme %q is not allowed", u.Scheme)
	}
	if u.User != nil {
		return nil, errf(CodeInvalidURL, "credentials in URL are not allowed")
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return nil, errf(CodeInvalidURL, "URL has no host")
	}
	if host == "localhost" || hasBlockedSuffix(host) {
		return nil, errf(CodeSSRFBlocked, "host %q is blocked", host)
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		if IsPrivateIP(addr) {
			return nil, errf(CodeSSRFBlocked, "address %s is in a private range", addr)
		}
		return u, nil
	}

	addrs, err := resolver.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return nil, errf(CodeDNSFailed, "failed to resolve %q: %v", host, err)
	}
	if len(addrs) == 0 {
		return nil, errf(CodeDNSFailed, "host %q resolved to no addresses", host)
	}
	for _, addr := range addrs {
		if IsPrivateIP(addr) {
			return nil, errf(CodeSSRFBlocked,
				"host %q resolves to private address %s", host, addr)
		}
	}
	return u, nil
}

func hasBlockedSuffix(host string) bool {
	for _, suffix := range blockedHostSuffixes {
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}
	return false
}
