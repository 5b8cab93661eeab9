package internaldefs

import (
	"github.com/w22116972/tokenauth"
)

type CounterDef struct {
	ID   tokenauth.MetricID
	Name string
	Help string
}

type HistogramDef struct {
	ID   tokenauth.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported authority counter.
var CounterDefs = []CounterDef{
	{ID: tokenauth.MetricLoginSuccess, Name: "tokenauth_login_success_total", Help: "Successful logins."},
	{ID: tokenauth.MetricLoginFailure, Name: "tokenauth_login_failure_total", Help: "Logins rejected for bad credentials."},
	{ID: tokenauth.MetricLoginRateLimited, Name: "tokenauth_login_rate_limited_total", Help: "Logins rejected by the failed-attempt limiter."},
	{ID: tokenauth.MetricRefreshSuccess, Name: "tokenauth_refresh_success_total", Help: "Successful refreshes."},
	{ID: tokenauth.MetricRefreshMissing, Name: "tokenauth_refresh_missing_total", Help: "Refreshes with no stored credential."},
	{ID: tokenauth.MetricRefreshMismatch, Name: "tokenauth_refresh_mismatch_total", Help: "Refreshes presenting a stale or wrong credential."},
	{ID: tokenauth.MetricRefreshUserNotFound, Name: "tokenauth_refresh_user_not_found_total", Help: "Refreshes for deleted principals."},
	{ID: tokenauth.MetricLogout, Name: "tokenauth_logout_total", Help: "Logout calls."},
	{ID: tokenauth.MetricRevocationWritten, Name: "tokenauth_revocation_written_total", Help: "Logouts that revoked a live token."},
	{ID: tokenauth.MetricRegisterSuccess, Name: "tokenauth_register_success_total", Help: "Accounts created."},
	{ID: tokenauth.MetricRegisterDuplicate, Name: "tokenauth_register_duplicate_total", Help: "Registrations rejected as duplicate."},
	{ID: tokenauth.MetricRegisterRejected, Name: "tokenauth_register_rejected_total", Help: "Registrations rejected by input or password policy."},
	{ID: tokenauth.MetricValidateValid, Name: "tokenauth_validate_valid_total", Help: "Tokens accepted by local validation."},
	{ID: tokenauth.MetricValidateInvalid, Name: "tokenauth_validate_invalid_total", Help: "Tokens rejected as malformed, forged or expired."},
	{ID: tokenauth.MetricValidateRevoked, Name: "tokenauth_validate_revoked_total", Help: "Tokens rejected as revoked."},
	{ID: tokenauth.MetricUserStoreError, Name: "tokenauth_user_store_error_total", Help: "User store failures."},
}

var HistogramDefs = []HistogramDef{
	{ID: tokenauth.MetricValidateLatency, Name: "tokenauth_validate_latency_seconds", Help: "Local validation latency."},
}

// HistogramUpperBounds are the bucket bounds in seconds, excluding +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, +Inf last, for exporters that
// cannot carry an le label.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed-size array, zero-padding.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
