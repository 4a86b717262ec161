package signon

import "sync/atomic"

// MetricID identifies one engine counter.
type MetricID uint16

const (
	// MetricSignupInitiated counts successful InitiateSignup calls.
	MetricSignupInitiated MetricID = iota
	// MetricSignupInitiateFailure counts InitiateSignup failures of any kind.
	MetricSignupInitiateFailure
	// MetricSignupVerified counts sessions moved to COMPLETED.
	MetricSignupVerified
	// MetricSignupVerifyFailure counts failed OTP verifications.
	MetricSignupVerifyFailure
	// MetricSignupCompleted counts accounts created.
	MetricSignupCompleted
	// MetricSignupCompleteFailure counts failed completions, including lost
	// completion races.
	MetricSignupCompleteFailure
	// MetricOTPResent counts OTP resends.
	MetricOTPResent
	// MetricLoginSuccess counts successful logins.
	MetricLoginSuccess
	// MetricLoginFailure counts failed logins.
	MetricLoginFailure
	// MetricResetRequested counts reset tokens minted and mailed.
	MetricResetRequested
	// MetricResetCompleted counts password hashes overwritten via reset.
	MetricResetCompleted
	// MetricResetFailure counts failed reset requests and confirmations.
	MetricResetFailure
	// MetricDeliveryFailure counts notifier failures across all operations.
	MetricDeliveryFailure
	// MetricRateLimited counts sends refused by the mail rate limiter.
	MetricRateLimited
	metricIDCount
)

var metricNames = [metricIDCount]string{
	MetricSignupInitiated:       "signup_initiated",
	MetricSignupInitiateFailure: "signup_initiate_failure",
	MetricSignupVerified:        "signup_verified",
	MetricSignupVerifyFailure:   "signup_verify_failure",
	MetricSignupCompleted:       "signup_completed",
	MetricSignupCompleteFailure: "signup_complete_failure",
	MetricOTPResent:             "otp_resent",
	MetricLoginSuccess:          "login_success",
	MetricLoginFailure:          "login_failure",
	MetricResetRequested:        "reset_requested",
	MetricResetCompleted:        "reset_completed",
	MetricResetFailure:          "reset_failure",
	MetricDeliveryFailure:       "delivery_failure",
	MetricRateLimited:           "rate_limited",
}

// Name returns the stable snake_case name of the metric.
func (id MetricID) Name() string {
	if id >= metricIDCount {
		return "unknown"
	}
	return metricNames[id]
}

// Metrics is a fixed-size atomic counter registry. All methods are safe for
// concurrent use; Inc is a single atomic add on the hot path.
type Metrics struct {
	counters [metricIDCount]atomic.Uint64
}

// NewMetrics returns an empty registry.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// Inc increments one counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || id >= metricIDCount {
		return
	}
	m.counters[id].Add(1)
}

// Value returns the current value of one counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.counters[id].Load()
}

// MetricsSnapshot is a point-in-time copy of every counter.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// Snapshot copies all counters. Reads are not atomic with respect to each
// other; the snapshot is a consistent-enough view for dashboards, not an
// accounting ledger.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		Counters: make(map[MetricID]uint64, metricIDCount),
	}
	if m == nil {
		return snap
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		snap.Counters[id] = m.counters[id].Load()
	}
	return snap
}
