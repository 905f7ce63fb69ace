package rating

import "errors"

var (
	// ErrNonConvergentVolatility is returned when the volatility solver runs
	// out of iterations. Update falls back to the prior volatility.
	ErrNonConvergentVolatility = errors.New("volatility solver did not converge")
	// ErrNonFinite is returned when an update produces NaN or Inf values.
	ErrNonFinite = errors.New("rating update produced a non-finite value")
	// ErrInvalidParams is returned by Params.Validate.
	ErrInvalidParams = errors.New("invalid rating parameters")
	// ErrUnknownGranularity is returned for an unsupported period size.
	ErrUnknownGranularity = errors.New("unknown rating period granularity")
)
