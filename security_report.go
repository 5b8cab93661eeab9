package tokenauth

import "time"

// SecurityReport summarizes the effective security posture for startup logs.
// SharedStore is false for the in-process backend, whose revocations are
// invisible to other instances.
type SecurityReport struct {
	SigningAlgorithm    string
	Issuer              string
	AccessTTL           time.Duration
	RefreshTTL          time.Duration
	Argon2              PasswordConfigReport
	MaxLoginAttempts    int
	LoginWindow         time.Duration
	SharedStore         bool
	RevocationFailsOpen bool
	RateLimitFailsOpen  bool
	RefreshFailsClosed  bool
	RefreshRotation     bool
	RefreshDigestAtRest bool
	MetricsEnabled      bool
	AuditSinkConfigured bool
}

type PasswordConfigReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

func (a *Authority) SecurityReport() SecurityReport {
	if a == nil {
		return SecurityReport{}
	}

	_, noAudit := a.audit.(NoOpSink)

	return SecurityReport{
		SigningAlgorithm: "HS256",
		Issuer:           a.config.JWT.Issuer,
		AccessTTL:        a.config.JWT.AccessTTL,
		RefreshTTL:       a.config.Refresh.TTL,
		Argon2: PasswordConfigReport{
			Memory:      a.config.Password.Memory,
			Time:        a.config.Password.Time,
			Parallelism: a.config.Password.Parallelism,
			SaltLength:  a.config.Password.SaltLength,
			KeyLength:   a.config.Password.KeyLength,
		},
		MaxLoginAttempts:    a.config.RateLimit.MaxLoginAttempts,
		LoginWindow:         a.config.RateLimit.LoginWindow,
		SharedStore:         a.sharedStore,
		RevocationFailsOpen: true,
		RateLimitFailsOpen:  true,
		RefreshFailsClosed:  true,
		RefreshRotation:     true,
		RefreshDigestAtRest: true,
		MetricsEnabled:      a.metrics.Enabled(),
		AuditSinkConfigured: !noAudit,
	}
}
