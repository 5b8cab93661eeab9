package otel

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/w22116972/tokenauth"
	"github.com/w22116972/tokenauth/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// MetricsSource is satisfied by *tokenauth.Authority.
type MetricsSource interface {
	MetricsSnapshot() tokenauth.MetricsSnapshot
	AuditDropped() uint64
}

// outcome maps one authority counter onto an attribute value of its family.
// An empty value observes the counter without attributes.
type outcome struct {
	id    tokenauth.MetricID
	value string
}

// family is one OTel instrument covering a lifecycle stage.
type family struct {
	name     string
	help     string
	outcomes []outcome
}

const outcomeKey = "outcome"

var families = []family{
	{
		name: "tokenauth.login",
		help: "Login attempts by outcome.",
		outcomes: []outcome{
			{tokenauth.MetricLoginSuccess, "success"},
			{tokenauth.MetricLoginFailure, "bad_credentials"},
			{tokenauth.MetricLoginRateLimited, "rate_limited"},
		},
	},
	{
		name: "tokenauth.refresh",
		help: "Refresh credential presentations by outcome.",
		outcomes: []outcome{
			{tokenauth.MetricRefreshSuccess, "rotated"},
			{tokenauth.MetricRefreshMissing, "missing"},
			{tokenauth.MetricRefreshMismatch, "mismatch"},
			{tokenauth.MetricRefreshUserNotFound, "user_not_found"},
		},
	},
	{
		name:     "tokenauth.logout",
		help:     "Logout calls, including ones with unusable tokens.",
		outcomes: []outcome{{tokenauth.MetricLogout, ""}},
	},
	{
		name:     "tokenauth.revocation.written",
		help:     "Revocation entries written to the shared store.",
		outcomes: []outcome{{tokenauth.MetricRevocationWritten, ""}},
	},
	{
		name: "tokenauth.register",
		help: "Registrations by outcome.",
		outcomes: []outcome{
			{tokenauth.MetricRegisterSuccess, "created"},
			{tokenauth.MetricRegisterDuplicate, "duplicate"},
			{tokenauth.MetricRegisterRejected, "rejected"},
		},
	},
	{
		name: "tokenauth.validate",
		help: "Local token validations by outcome.",
		outcomes: []outcome{
			{tokenauth.MetricValidateValid, "valid"},
			{tokenauth.MetricValidateInvalid, "invalid"},
			{tokenauth.MetricValidateRevoked, "revoked"},
		},
	},
	{
		name:     "tokenauth.user_store.errors",
		help:     "User store lookups or inserts that failed.",
		outcomes: []outcome{{tokenauth.MetricUserStoreError, ""}},
	},
}

type observedOutcome struct {
	id    tokenauth.MetricID
	attrs metric.MeasurementOption
}

type observedFamily struct {
	instrument metric.Int64ObservableCounter
	outcomes   []observedOutcome
}

// Exporter observes a MetricsSource through OTel instruments.
type Exporter struct {
	source       MetricsSource
	registration metric.Registration

	families       []observedFamily
	latencyBuckets metric.Int64ObservableGauge
	latencyCount   metric.Int64ObservableGauge
	bucketAttrs    [8]metric.MeasurementOption
	auditDropped   metric.Int64ObservableCounter
}

// NewExporter registers one counter per lifecycle stage, split by an
// "outcome" attribute, plus the validation latency buckets keyed by "le".
func NewExporter(meter metric.Meter, source MetricsSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &Exporter{source: source, families: make([]observedFamily, 0, len(families))}
	observables := make([]metric.Observable, 0, len(families)+3)

	for _, f := range families {
		ins, err := meter.Int64ObservableCounter(f.name, metric.WithDescription(f.help))
		if err != nil {
			return nil, fmt.Errorf("create counter %s: %w", f.name, err)
		}
		of := observedFamily{instrument: ins}
		for _, o := range f.outcomes {
			set := attribute.NewSet()
			if o.value != "" {
				set = attribute.NewSet(attribute.String(outcomeKey, o.value))
			}
			of.outcomes = append(of.outcomes, observedOutcome{id: o.id, attrs: metric.WithAttributeSet(set)})
		}
		e.families = append(e.families, of)
		observables = append(observables, ins)
	}

	var err error
	e.latencyBuckets, err = meter.Int64ObservableGauge(
		"tokenauth.validate.latency.bucket",
		metric.WithDescription("Cumulative count of local validations at or under the le bound, in seconds."),
	)
	if err != nil {
		return nil, fmt.Errorf("create latency buckets: %w", err)
	}
	e.latencyCount, err = meter.Int64ObservableGauge(
		"tokenauth.validate.latency.count",
		metric.WithDescription("Local validations timed."),
	)
	if err != nil {
		return nil, fmt.Errorf("create latency count: %w", err)
	}
	for i := range e.bucketAttrs {
		le := "+Inf"
		if i < len(internaldefs.HistogramUpperBounds) {
			le = strconv.FormatFloat(internaldefs.HistogramUpperBounds[i], 'g', -1, 64)
		}
		e.bucketAttrs[i] = metric.WithAttributeSet(attribute.NewSet(attribute.String("le", le)))
	}

	e.auditDropped, err = meter.Int64ObservableCounter(
		"tokenauth.audit.dropped",
		metric.WithDescription("Audit events dropped because the sink was full."),
	)
	if err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	observables = append(observables, e.latencyBuckets, e.latencyCount, e.auditDropped)

	e.registration, err = meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return e, nil
}

func (e *Exporter) observe(_ context.Context, o metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()
	for _, f := range e.families {
		for _, oc := range f.outcomes {
			o.ObserveInt64(f.instrument, int64(snapshot.Counters[oc.id]), oc.attrs)
		}
	}

	cumulative := internaldefs.CumulativeBuckets(
		internaldefs.NormalizeBuckets(snapshot.Histograms[tokenauth.MetricValidateLatency]),
	)
	for i, n := range cumulative {
		o.ObserveInt64(e.latencyBuckets, int64(n), e.bucketAttrs[i])
	}
	o.ObserveInt64(e.latencyCount, int64(cumulative[len(cumulative)-1]))

	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	return nil
}

// Close unregisters the collection callback.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
