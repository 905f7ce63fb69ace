// Package rating implements Glicko-2 batch updates over rating periods.
package rating

import (
	"fmt"
	"math"
)

// scale converts between the public rating scale and the Glicko-2 scale.
const scale = 173.7178

// Default Glicko-2 constants.
const (
	DefaultRating        = 1500.0
	DefaultDeviation     = 350.0
	DefaultVolatility    = 0.06
	DefaultTau           = 0.5
	DefaultTolerance     = 1e-6
	DefaultMaxIterations = 100
	DefaultMaxDeviation  = 350.0
)

// State is a wrestler's rating triple on the public scale.
type State struct {
	Rating     float64 `json:"rating" yaml:"rating"`
	Deviation  float64 `json:"deviation" yaml:"deviation"`
	Volatility float64 `json:"volatility" yaml:"volatility"`
}

func (s State) mu() float64  { return (s.Rating - DefaultRating) / scale }
func (s State) phi() float64 { return s.Deviation / scale }

func fromScaled(mu, phi, sigma float64) State {
	return State{Rating: mu*scale + DefaultRating, Deviation: phi * scale, Volatility: sigma}
}

func (s State) finite() bool {
	for _, f := range []float64{s.Rating, s.Deviation, s.Volatility} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// Params holds the system constants.
type Params struct {
	InitialRating     float64
	InitialDeviation  float64
	InitialVolatility float64
	Tau               float64
	Tolerance         float64
	MaxIterations     int
	MaxDeviation      float64
}

// DefaultParams returns the standard Glicko-2 constants.
func DefaultParams() Params {
	return Params{
		InitialRating:     DefaultRating,
		InitialDeviation:  DefaultDeviation,
		InitialVolatility: DefaultVolatility,
		Tau:               DefaultTau,
		Tolerance:         DefaultTolerance,
		MaxIterations:     DefaultMaxIterations,
		MaxDeviation:      DefaultMaxDeviation,
	}
}

// Initial is the state of a wrestler with no prior period.
func (p Params) Initial() State {
	return State{Rating: p.InitialRating, Deviation: p.InitialDeviation, Volatility: p.InitialVolatility}
}

// Validate checks that every constant is usable.
func (p Params) Validate() error {
	switch {
	case p.InitialDeviation <= 0:
		return fmt.Errorf("%w: initial deviation must be positive", ErrInvalidParams)
	case p.InitialVolatility <= 0:
		return fmt.Errorf("%w: initial volatility must be positive", ErrInvalidParams)
	case p.Tau <= 0:
		return fmt.Errorf("%w: tau must be positive", ErrInvalidParams)
	case p.Tolerance <= 0:
		return fmt.Errorf("%w: tolerance must be positive", ErrInvalidParams)
	case p.MaxIterations <= 0:
		return fmt.Errorf("%w: max iterations must be positive", ErrInvalidParams)
	case p.MaxDeviation < p.InitialDeviation:
		return fmt.Errorf("%w: max deviation below initial deviation", ErrInvalidParams)
	}
	return nil
}

// Opponent is one decomposed result in a rating period. State is the
// opponent's start-of-period state.
type Opponent struct {
	State State
	Score float64
}

func g(phi float64) float64 {
	return 1 / math.Sqrt(1+3*phi*phi/(math.Pi*math.Pi))
}

func expected(mu, muj, phij float64) float64 {
	return 1 / (1 + math.Exp(-g(phij)*(mu-muj)))
}

// VolatilityInput carries the period quantities the volatility solver needs,
// all on the Glicko-2 scale.
type VolatilityInput struct {
	Sigma    float64 // prior volatility
	Phi      float64 // prior deviation
	Variance float64 // estimated variance v
	Delta    float64 // estimated improvement
}

// SolveVolatility finds the new volatility with the Illinois variant of
// regula falsi. It returns the number of iterations spent and
// ErrNonConvergentVolatility when maxIterations is exhausted, in which case the
// returned volatility is in.Sigma.
func SolveVolatility(in VolatilityInput, tau, tolerance float64, maxIterations int) (float64, int, error) {
	a := math.Log(in.Sigma * in.Sigma)
	phi2 := in.Phi * in.Phi
	delta2 := in.Delta * in.Delta
	f := func(x float64) float64 {
		ex := math.Exp(x)
		d := phi2 + in.Variance + ex
		return ex*(delta2-phi2-in.Variance-ex)/(2*d*d) - (x-a)/(tau*tau)
	}

	iterations := 0
	A := a
	var B float64
	if delta2 > phi2+in.Variance {
		B = math.Log(delta2 - phi2 - in.Variance)
	} else {
		k := 1.0
		for f(a-k*tau) < 0 {
			iterations++
			if iterations >= maxIterations {
				return in.Sigma, iterations, ErrNonConvergentVolatility
			}
			k++
		}
		B = a - k*tau
	}

	fA, fB := f(A), f(B)
	for math.Abs(B-A) > tolerance {
		iterations++
		if iterations > maxIterations {
			return in.Sigma, iterations, ErrNonConvergentVolatility
		}
		C := A + (A-B)*fA/(fB-fA)
		fC := f(C)
		if fC*fB <= 0 {
			A, fA = B, fB
		} else {
			fA /= 2
		}
		B, fB = C, fC
	}
	return math.Exp(A / 2), iterations, nil
}

// Update applies one rating period of results to s. With no results it
// decays the deviation instead. On ErrNonConvergentVolatility the returned
// state is still usable and keeps s.Volatility; on ErrNonFinite the returned
// state is s unchanged.
func Update(s State, results []Opponent, p Params) (State, int, error) {
	if len(results) == 0 {
		return Decay(s, p), 0, nil
	}

	mu, phi := s.mu(), s.phi()
	var invV, sum float64
	for _, r := range results {
		muj, phij := r.State.mu(), r.State.phi()
		gj := g(phij)
		e := expected(mu, muj, phij)
		invV += gj * gj * e * (1 - e)
		sum += gj * (r.Score - e)
	}
	v := 1 / invV

	sigma, iterations, err := SolveVolatility(VolatilityInput{
		Sigma:    s.Volatility,
		Phi:      phi,
		Variance: v,
		Delta:    v * sum,
	}, p.Tau, p.Tolerance, p.MaxIterations)

	phiStar := math.Sqrt(phi*phi + sigma*sigma)
	phiNew := 1 / math.Sqrt(1/(phiStar*phiStar)+1/v)
	muNew := mu + phiNew*phiNew*sum

	next := fromScaled(muNew, phiNew, sigma)
	if next.Deviation > p.MaxDeviation {
		next.Deviation = p.MaxDeviation
	}
	if !next.finite() {
		return s, iterations, ErrNonFinite
	}
	return next, iterations, err
}

// Decay widens the deviation of a wrestler who did not compete in a period.
// The rating and volatility are unchanged and the deviation is capped at
// p.MaxDeviation.
func Decay(s State, p Params) State {
	phi := s.phi()
	phiStar := math.Sqrt(phi*phi + s.Volatility*s.Volatility)
	out := s
	out.Deviation = math.Min(phiStar*scale, p.MaxDeviation)
	return out
}
