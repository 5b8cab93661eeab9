package tokenauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/w22116972/tokenauth/internal/flows"
	"github.com/w22116972/tokenauth/internal/rate"
	"github.com/w22116972/tokenauth/internal/ttlstore"
	"github.com/w22116972/tokenauth/jwt"
	"github.com/w22116972/tokenauth/password"
	"github.com/w22116972/tokenauth/session"
	"go.uber.org/zap"
)

// dummyPassword is hashed once at Build so logins for unknown accounts cost
// the same as a wrong password.
const dummyPassword = "tokenauth-timing-equalizer"

// Builder assembles an [Authority]. A Builder is single-use.
type Builder struct {
	config Config
	store  ttlstore.Store

	revocations RevocationStore
	refresh     RefreshStore
	limiter     RateLimiter

	userProvider UserProvider
	hasher       PasswordHasher
	auditSink    AuditSink
	logger       *zap.Logger
	now          func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore sets the backing store shared by the revocation list, the
// refresh store and the login rate limiter. Capabilities set individually
// take precedence.
func (b *Builder) WithStore(store ttlstore.Store) *Builder {
	b.store = store
	return b
}

func (b *Builder) WithRevocationStore(r RevocationStore) *Builder {
	b.revocations = r
	return b
}

func (b *Builder) WithRefreshStore(r RefreshStore) *Builder {
	b.refresh = r
	return b
}

func (b *Builder) WithRateLimiter(l RateLimiter) *Builder {
	b.limiter = l
	return b
}

func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

// WithPasswordHasher replaces the argon2id hasher built from Config.Password.
func (b *Builder) WithPasswordHasher(h PasswordHasher) *Builder {
	b.hasher = h
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the time source for token issuance and revocation
// TTLs.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and wires every collaborator.
func (b *Builder) Build() (*Authority, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.userProvider == nil {
		return nil, errors.New("user provider required")
	}
	if b.store == nil && (b.revocations == nil || b.refresh == nil || b.limiter == nil) {
		return nil, errors.New("store required")
	}

	log := b.logger
	if log == nil {
		log = zap.NewNop()
	}
	now := b.now
	if now == nil {
		now = time.Now
	}

	a := &Authority{
		config:      cfg,
		users:       b.userProvider,
		revocations: b.revocations,
		refresh:     b.refresh,
		limiter:     b.limiter,
		hasher:      b.hasher,
		audit:       b.auditSink,
		metrics:     NewMetrics(cfg.Metrics),
		log:         log,
		now:         now,
	}
	if a.audit == nil {
		a.audit = NoOpSink{}
	}

	// -------- BACKING STORE --------
	if b.store != nil {
		a.pinger = b.store
		_, inProcess := b.store.(*ttlstore.Memory)
		a.sharedStore = !inProcess
		if a.revocations == nil {
			a.revocations = session.NewRevocationList(b.store, log.Named("revocation"))
		}
		if a.refresh == nil {
			a.refresh = session.NewRefreshStore(b.store, log.Named("refresh"))
		}
		if a.limiter == nil {
			a.limiter = rate.New(b.store, log.Named("ratelimit"))
		}
	}

	// -------- PASSWORDS --------
	if a.hasher == nil {
		ph, err := password.NewArgon2(cfg.Password)
		if err != nil {
			return nil, err
		}
		a.hasher = ph
	}
	dummy, err := a.hasher.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("hash timing equalizer: %w", err)
	}
	a.dummyHash = dummy

	// -------- CODEC --------
	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL: cfg.JWT.AccessTTL,
		Secret:    cloneBytes(cfg.JWT.Secret),
		Issuer:    cfg.JWT.Issuer,
		Leeway:    cfg.JWT.Leeway,
		Now:       now,
	})
	if err != nil {
		return nil, err
	}
	a.codec = jm

	a.flows = flows.New(a.buildFlowDeps())

	b.built = true

	return a, nil
}
