package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// Verdict is a check's admission decision.
type Verdict int

const (
	Defer Verdict = iota
	Allow
	Deny
)

func (v Verdict) String() string {
	switch v {
	case Defer:
		return "defer"
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	default:
		return "unknown"
	}
}

// Result is what a check returns. Status and Message apply to Deny; Context,
// when set, replaces the request context for the checks that follow.
type Result struct {
	Verdict Verdict
	Status  int
	Message string
	Context context.Context
}

// Deferred hands the request to the next check.
func Deferred() Result { return Result{Verdict: Defer} }

// DeferredWith hands the request on with an enriched context.
func DeferredWith(ctx context.Context) Result { return Result{Verdict: Defer, Context: ctx} }

// Allowed admits the request without running further checks.
func Allowed() Result { return Result{Verdict: Allow} }

// Denied rejects the request with status and a client-facing message.
func Denied(status int, message string) Result {
	return Result{Verdict: Deny, Status: status, Message: message}
}

// Check decides admission for one request.
type Check interface {
	Check(r *http.Request) Result
}

// CheckFunc adapts a function to [Check].
type CheckFunc func(r *http.Request) Result

func (f CheckFunc) Check(r *http.Request) Result { return f(r) }

// Pipeline runs checks in order before the protected handler.
type Pipeline struct {
	checks []Check
	log    *zap.Logger
}

// NewPipeline returns a pipeline running checks in the given order.
func NewPipeline(logger *zap.Logger, checks ...Check) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{checks: checks, log: logger}
}

// Middleware wraps next with the pipeline. Its signature fits chi's Use.
func (p *Pipeline) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, c := range p.checks {
			res := c.Check(r)
			if res.Context != nil {
				r = r.WithContext(res.Context)
			}
			switch res.Verdict {
			case Allow:
				next.ServeHTTP(w, r)
				return
			case Deny:
				p.log.Debug("request denied",
					zap.String("path", r.URL.Path),
					zap.Int("status", res.Status),
					zap.String("reason", res.Message),
				)
				WriteError(w, res.Status, res.Message)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// WriteError writes {"error": message} with status.
func WriteError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
