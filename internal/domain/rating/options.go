package rating

// Option configures an Engine.
type Option func(*Engine)

// WithParams sets the Glicko-2 constants.
func WithParams(p Params) Option {
	return func(e *Engine) {
		e.params = p
	}
}

// WithGranularity sets the rating period size.
func WithGranularity(g Granularity) Option {
	return func(e *Engine) {
		if g != "" {
			e.granularity = g
		}
	}
}

// WithSeed starts the run from known states, typically the previous year's
// end-of-period values. Wrestlers absent from seed start at Params.Initial.
func WithSeed(seed map[string]State) Option {
	return func(e *Engine) {
		e.seed = make(map[string]State, len(seed))
		for id, s := range seed {
			e.seed[id] = s
		}
	}
}
