package channel

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// BackendDevPort is used when the origin is a frontend development server.
const BackendDevPort = "8000"

var devFrontendPorts = map[string]bool{"3000": true, "5173": true}

// ResolveEndpoint builds the WebSocket URL for path. An absolute ws:// or
// wss:// path is returned unchanged; a configured base wins over the origin.
// Without a base the origin's scheme is mapped to ws/wss, and a frontend dev
// port is replaced by the backend dev port.
func ResolveEndpoint(base, origin, path string) (string, error) {
	if strings.HasPrefix(path, "ws://") || strings.HasPrefix(path, "wss://") {
		return path, nil
	}

	if base != "" {
		return strings.TrimRight(base, "/") + path, nil
	}

	if origin == "" {
		return "", fmt.Errorf("no base address or origin to resolve %q", path)
	}

	u, err := url.Parse(origin)
	if err != nil {
		return "", fmt.Errorf("parse origin: %w", err)
	}

	scheme := "ws"
	if u.Scheme == "https" || u.Scheme == "wss" {
		scheme = "wss"
	}

	host := u.Host
	if devFrontendPorts[u.Port()] {
		host = net.JoinHostPort(u.Hostname(), BackendDevPort)
	}

	return fmt.Sprintf("%s://%s%s", scheme, host, path), nil
}
