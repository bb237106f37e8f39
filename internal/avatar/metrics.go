package avatar

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ReasonNotConfigured     = "not_configured"
	ReasonMalformedTemplate = "malformed_template"
	ReasonEncoding          = "encoding_failure"
	ReasonUnknown           = "unknown"
)

var resolutionFailures = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "avatar_resolution_failures_total",
		Help: "Total number of avatar URLs that could not be resolved",
	},
	[]string{"reason"},
)

// Reason maps a resolver error to its metric and log label.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrNotConfigured):
		return ReasonNotConfigured
	case errors.Is(err, ErrMalformedTemplate):
		return ReasonMalformedTemplate
	case errors.Is(err, ErrEncoding):
		return ReasonEncoding
	default:
		return ReasonUnknown
	}
}
