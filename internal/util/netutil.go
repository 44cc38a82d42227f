package util

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// DefaultHTTPSPort is the port used when the target does not name one.
const DefaultHTTPSPort = 443

// ParseTarget resolves a user-supplied target into a hostname and port.
//
// Accepted forms are a full https URL ("https://example.com:8443/ignored"),
// a bare "host:port" pair, or a bare hostname which defaults to port 443.
// The plaintext "http" scheme is rejected: the client only speaks HTTP/2
// over TLS and does not implement the h2c upgrade.
func ParseTarget(raw string) (host string, port int, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", 0, fmt.Errorf("target must not be empty")
	}

	if strings.Contains(raw, "://") {
		u, errParse := url.Parse(raw)
		if errParse != nil {
			return "", 0, fmt.Errorf("invalid target URL %q: %w", raw, errParse)
		}
		if u.Scheme != "https" {
			return "", 0, fmt.Errorf("unsupported scheme %q: only https targets are supported (h2c is not implemented)", u.Scheme)
		}
		if u.Hostname() == "" {
			return "", 0, fmt.Errorf("target URL %q has no hostname", raw)
		}
		host = u.Hostname()
		if p := u.Port(); p != "" {
			port, err = parsePort(p)
			if err != nil {
				return "", 0, fmt.Errorf("invalid port in target URL %q: %w", raw, err)
			}
			return host, port, nil
		}
		return host, DefaultHTTPSPort, nil
	}

	// host:port, [v6]:port or a bare hostname.
	if h, p, errSplit := net.SplitHostPort(raw); errSplit == nil {
		port, err = parsePort(p)
		if err != nil {
			return "", 0, fmt.Errorf("invalid port in target %q: %w", raw, err)
		}
		if h == "" {
			return "", 0, fmt.Errorf("target %q has no hostname", raw)
		}
		return h, port, nil
	}

	return raw, DefaultHTTPSPort, nil
}

// JoinHostPort formats host and port for dialing, bracketing IPv6 literals.
func JoinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func parsePort(s string) (int, error) {
	p, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("port %q is not a number", s)
	}
	if p < 1 || p > 65535 {
		return 0, fmt.Errorf("port %d is out of range [1, 65535]", p)
	}
	return p, nil
}
