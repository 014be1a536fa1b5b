package agent

import (
	"log/slog"
	"time"
)

// defaultCallTimeout bounds a single model invocation.
const defaultCallTimeout = 60 * time.Second

type settings struct {
	timeout time.Duration
	config  any
	logger  *slog.Logger
}

// Option configures a model-backed component.
type Option func(*settings)

// WithCallTimeout sets the per-invocation timeout.
func WithCallTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithModelConfig sets the provider-specific generation config passed
// through to the model (temperature and the like).
func WithModelConfig(cfg any) Option {
	return func(s *settings) { s.config = cfg }
}

// WithLogger sets the component logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func newSettings(opts ...Option) settings {
	s := settings{
		timeout: defaultCallTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
