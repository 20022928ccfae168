package api

import (
	"net"
	"strings"
)

// SecureOrigin reports whether a UI served from addr runs in a trusted
// context: over TLS, or bound only to loopback. An empty or wildcard host
// listens on every interface and is not trusted without TLS.
func SecureOrigin(addr string, tlsEnabled bool) bool {
	if tlsEnabled {
		return true
	}
	host := addr
	if h, _, err := net.SplitHostPort(addr); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
