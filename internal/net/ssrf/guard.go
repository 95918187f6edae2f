package ssrf

import (
	"context"
	"fmt"
	"net"
)

// BlockedError is returned when a hostname or IP address is blocked by
// Guard.
type BlockedError struct {
	Reason string
}

func (e *BlockedError) Error() string { return "ssrf: " + e.Reason }

func errBlocked(reason string) error { return &BlockedError{Reason: reason} }

var blockedHostnames = map[string]bool{
	"localhost":                true,
	"metadata.google.internal": true,
}

var blockedSuffixes = []string{".localhost", ".local", ".internal"}

func isBlockedHostname(host string) bool {
	normalized := normalizeHost(host)
	if normalized == "" {
		return false
	}
	if blockedHostnames[normalized] {
		return true
	}
	for _, suffix := range blockedSuffixes {
		if len(normalized) > len(suffix) && normalized[len(normalized)-len(suffix):] == suffix {
			return true
		}
	}
	return false
}

// Resolver abstracts DNS lookup so tests can substitute a fixed answer set
// without touching the network.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Guard validates outbound HTTP targets before the tool pipeline is allowed
// to open a connection, blocking loopback, link-local, private, and cloud
// metadata addresses.
type Guard struct {
	Resolver Resolver
}

// NewGuard returns a Guard using net.DefaultResolver.
func NewGuard() *Guard {
	return &Guard{Resolver: net.DefaultResolver}
}

// CheckHost validates a bare hostname (no port), rejecting it with a
// *BlockedError if it is blocked by name, is itself a private IP literal, or
// resolves to one.
func (g *Guard) CheckHost(ctx context.Context, host string) error {
	normalized := normalizeHost(host)
	if normalized == "" {
		return fmt.Errorf("ssrf: empty host")
	}
	if isBlockedHostname(normalized) {
		return errBlocked(fmt.Sprintf("blocked hostname %q", host))
	}
	if isPrivateAddress(normalized) {
		return errBlocked("target is a private/internal IP address")
	}
	addrs, err := g.Resolver.LookupIPAddr(ctx, normalized)
	if err != nil {
		return fmt.Errorf("ssrf: resolve %q: %w", host, err)
	}
	if len(addrs) == 0 {
		return fmt.Errorf("ssrf: %q did not resolve to any address", host)
	}
	for _, a := range addrs {
		if isPrivateAddress(a.IP.String()) {
			return errBlocked(fmt.Sprintf("%q resolves to a private/internal address", host))
		}
	}
	return nil
}
