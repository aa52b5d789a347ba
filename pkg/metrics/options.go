package metrics

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithMaxSamples bounds the samples retained per latency series.
func WithMaxSamples(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.maxSamples = n
		}
	}
}

// WithNamespace sets the prefix of every exported Prometheus metric name.
func WithNamespace(namespace string) Option {
	return func(a *Aggregator) {
		if namespace != "" {
			a.namespace = namespace
		}
	}
}
