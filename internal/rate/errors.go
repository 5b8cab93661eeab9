package rate

import "errors"

// ErrRateLimited is returned by callers that surface a limiter rejection.
var ErrRateLimited = errors.New("rate limited")
