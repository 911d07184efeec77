package session

import (
	"net"
	"net/http"
	"strings"
)

// Environment describes the execution context a toggle request originates
// from. Capture is only allowed from secure, top-level contexts.
type Environment interface {
	// SecureContext reports whether the context is transport-secured or a
	// local loopback host.
	SecureContext() bool

	// EmbeddedFrame reports whether the context is a nested embedded frame.
	EmbeddedFrame() bool
}

// LocalEnvironment is the trusted in-process context used by the tray and
// CLI. It always passes the preconditions.
type LocalEnvironment struct{}

func (LocalEnvironment) SecureContext() bool { return true }
func (LocalEnvironment) EmbeddedFrame() bool { return false }

// RequestEnvironment derives an Environment from an HTTP request: TLS or a
// loopback host counts as secure, and a Sec-Fetch-Dest of "iframe" marks an
// embedded frame.
func RequestEnvironment(r *http.Request) Environment {
	return requestEnv{
		secure:   r.TLS != nil || isLoopbackHost(r.Host),
		embedded: strings.EqualFold(r.Header.Get("Sec-Fetch-Dest"), "iframe"),
	}
}

type requestEnv struct {
	secure   bool
	embedded bool
}

func (e requestEnv) SecureContext() bool { return e.secure }
func (e requestEnv) EmbeddedFrame() bool { return e.embedded }

func isLoopbackHost(hostport string) bool {
	host := hostport
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		host = h
	}

	if strings.EqualFold(host, "localhost") {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}
