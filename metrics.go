package noteauth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters exposed on the default prometheus registry.
var (
	authAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "noteauth_attempts_total",
		Help: "Authentication attempts by flow and outcome.",
	}, []string{"flow", "outcome"})

	otpIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "noteauth_otp_issued_total",
		Help: "One-time passcodes issued.",
	})
)

func recordAttempt(flow string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	authAttempts.WithLabelValues(flow, outcome).Inc()
}
