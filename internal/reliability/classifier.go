package reliability

import (
	"strings"
	"time"
)

// CaptureFaultKind classifies speech-capture error codes into recovery policies.
type CaptureFaultKind int

const (
	// CaptureFaultTransient faults (no speech, network hiccup, abort) are
	// recovered by restarting capture.
	CaptureFaultTransient CaptureFaultKind = iota
	// CaptureFaultPermission means microphone access was refused; the user
	// must act before capture can start again.
	CaptureFaultPermission
	// CaptureFaultUnavailable means the runtime has no usable recognizer;
	// restarting would loop forever.
	CaptureFaultUnavailable
)

// ClassifyCaptureFault maps recognizer error codes (browser SpeechRecognition
// vocabulary) to a recovery policy. Unknown codes are treated as transient.
func ClassifyCaptureFault(code string) CaptureFaultKind {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "not-allowed", "permission-denied":
		return CaptureFaultPermission
	case "service-not-allowed", "unsupported", "audio-capture":
		return CaptureFaultUnavailable
	default:
		return CaptureFaultTransient
	}
}

// IsRetryableHTTPStatus classifies retryable HTTP status codes.
func IsRetryableHTTPStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// ExponentialBackoff computes a deterministic capped backoff duration.
func ExponentialBackoff(attempt int, base, cap time.Duration) time.Duration {
	if attempt <= 0 {
		return base
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= cap {
			return cap
		}
	}
	return d
}
