// Package ssrf guards the http_request tool against server-side request
// forgery: requests to loopback, link-local, private, and cloud metadata
// addresses are rejected before a socket is ever opened.
package ssrf

import (
	"strconv"
	"strings"
)

var privateIPv6Prefixes = []string{"fe80:", "fec0:", "fc", "fd"}

func normalizeHost(host string) string {
	h := strings.ToLower(strings.TrimSpace(host))
	h = strings.TrimSuffix(h, ".")
	if strings.HasPrefix(h, "[") && strings.HasSuffix(h, "]") {
		h = h[1 : len(h)-1]
	}
	return h
}

func parseIPv4(address string) ([4]byte, error) {
	var out [4]byte
	parts := strings.Split(address, ".")
	if len(parts) != 4 {
		return out, errBlocked("invalid IPv4 address: must have 4 octets")
	}
	for i, part := range parts {
		value, err := strconv.Atoi(part)
		if err != nil || value < 0 || value > 255 {
			return out, errBlocked("invalid IPv4 address: octet out of range")
		}
		out[i] = byte(value)
	}
	return out, nil
}

// parseIPv4Mapped extracts the embedded IPv4 address from an
// IPv4-mapped IPv6 suffix, in either dotted-decimal or hex form.
func parseIPv4Mapped(mapped string) ([4]byte, error) {
	var out [4]byte
	if strings.Contains(mapped, ".") {
		return parseIPv4(mapped)
	}
	var groups []string
	for _, p := range strings.Split(mapped, ":") {
		if p != "" {
			groups = append(groups, p)
		}
	}
	switch len(groups) {
	case 1:
		v, err := strconv.ParseUint(groups[0], 16, 32)
		if err != nil {
			return out, errBlocked("invalid IPv4-mapped IPv6 address")
		}
		out[0], out[1], out[2], out[3] = byte(v>>24), byte(v>>16), byte(v>>8), byte(v)
		return out, nil
	case 2:
		high, err1 := strconv.ParseUint(groups[0], 16, 16)
		low, err2 := strconv.ParseUint(groups[1], 16, 16)
		if err1 != nil || err2 != nil {
			return out, errBlocked("invalid IPv4-mapped IPv6 address")
		}
		v := (high << 16) + low
		out[0], out[1], out[2], out[3] = byte(v>>24), byte(v>>16), byte(v>>8), byte(v)
		return out, nil
	default:
		return out, errBlocked("invalid IPv4-mapped IPv6 address")
	}
}

// isPrivateIPv4 reports whether the given octets fall in a loopback,
// link-local, private, or carrier-NAT range.
func isPrivateIPv4(o [4]byte) bool {
	switch {
	case o[0] == 0: // current network
		return true
	case o[0] == 10: // RFC1918
		return true
	case o[0] == 127: // loopback
		return true
	case o[0] == 169 && o[1] == 254: // link-local / cloud metadata (169.254.169.254)
		return true
	case o[0] == 172 && o[1] >= 16 && o[1] <= 31: // RFC1918
		return true
	case o[0] == 192 && o[1] == 168: // RFC1918
		return true
	case o[0] == 100 && o[1] >= 64 && o[1] <= 127: // carrier-grade NAT
		return true
	default:
		return false
	}
}

// isPrivateAddress reports whether address (IPv4 or IPv6, textual) names a
// loopback, link-local, or private-range address.
func isPrivateAddress(address string) bool {
	normalized := normalizeHost(address)
	if normalized == "" {
		return false
	}
	if strings.HasPrefix(normalized, "::ffff:") {
		if ipv4, err := parseIPv4Mapped(normalized[len("::ffff:"):]); err == nil {
			return isPrivateIPv4(ipv4)
		}
	}
	if strings.Contains(normalized, ":") {
		if normalized == "::" || normalized == "::1" {
			return true
		}
		for _, prefix := range privateIPv6Prefixes {
			if strings.HasPrefix(normalized, prefix) {
				return true
			}
		}
		return false
	}
	ipv4, err := parseIPv4(normalized)
	if err != nil {
		return false
	}
	return isPrivateIPv4(ipv4)
}
