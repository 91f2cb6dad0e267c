package executor

// ============================================================================
// EXECUTOR OPTIONS — Functional options for Execute()
// ============================================================================

// Option configures execution via the functional options pattern.
type Option func(*config)

type config struct {
	forecaster Forecaster
}

// WithForecaster wires the external forecasting collaborator consumed by
// the forecast intent. Without it, forecast queries degrade to an
// explanatory answer.
func WithForecaster(f Forecaster) Option {
	return func(c *config) { c.forecaster = f }
}

func applyOptions(opts []Option) *config {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
