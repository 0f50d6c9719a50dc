package http

import (
	"net"
	"net/http"
	"strings"
)

// IPConfig holds the proxy ranges whose forwarding headers are believed
type IPConfig struct {
	trusted []*net.IPNet
}

// NewIPConfig parses CIDR ranges; invalid entries are skipped
func NewIPConfig(trustedProxies []string) *IPConfig {
	cfg := &IPConfig{}
	for _, cidr := range trustedProxies {
		if _, ipNet, err := net.ParseCIDR(strings.TrimSpace(cidr)); err == nil {
			cfg.trusted = append(cfg.trusted, ipNet)
		}
	}
	return cfg
}

func (c *IPConfig) trusts(ip net.IP) bool {
	if c == nil || ip == nil {
		return false
	}
	for _, ipNet := range c.trusted {
		if ipNet.Contains(ip) {
			return true
		}
	}
	return false
}

// ExtractClientIP returns the caller's address. X-Forwarded-For and X-Real-IP
// are only honoured when the direct peer is a trusted proxy.
func ExtractClientIP(r *http.Request, cfg *IPConfig) string {
	peer := remoteHost(r.RemoteAddr)

	if !cfg.trusts(net.ParseIP(peer)) {
		return peer
	}

	for _, candidate := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
		candidate = strings.TrimSpace(candidate)
		if net.ParseIP(candidate) != nil {
			return candidate
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}

	return peer
}

func remoteHost(addr string) string {
	if addr == "" {
		return "unknown"
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
