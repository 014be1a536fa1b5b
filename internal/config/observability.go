package config

// TracingConfig configures OTLP trace export.
// Spans are exported over OTLP HTTP to a local collector/agent, which handles
// authentication, buffering, and forwarding to the backend.
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled" json:"enabled"`
	Endpoint    string `mapstructure:"endpoint" json:"endpoint"` // host:port of the OTLP HTTP receiver
	ServiceName string `mapstructure:"service_name" json:"service_name"`
	Environment string `mapstructure:"environment" json:"environment"`
}
