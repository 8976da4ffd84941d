package transport

import (
	"fmt"
	"time"
)

// Select picks the transport backend once at startup. "native" and
// "curl" force a specific backend; "auto" probes in preference order.
// The native client is always available in-process, so auto resolves to
// it and curl serves environments that explicitly opt in.
func Select(backend, token string, timeout time.Duration) (Transport, error) {
	switch backend {
	case "native", "auto", "":
		return NewNative(token, timeout), nil
	case "curl":
		return NewCurl(token)
	default:
		return nil, fmt.Errorf("unknown transport backend %q", backend)
	}
}
