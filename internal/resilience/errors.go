package resilience

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/sells-group/panels/internal/remote"
)

// ShouldTrip reports whether err says the service itself is unhealthy:
// network failures, timeouts and transient HTTP statuses. Rejected input,
// structured business errors and caller cancellation do not count.
func ShouldTrip(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var re *remote.Error
	if errors.As(err, &re) {
		if re.StatusCode != 0 {
			return IsTransientHTTPStatus(re.StatusCode)
		}
		if re.Body != nil {
			return false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsTransientHTTPStatus reports whether statusCode is a server-side or
// throttling failure.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
