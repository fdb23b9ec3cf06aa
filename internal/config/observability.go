package config

// TracingConfig holds OTLP trace exporter configuration.
//
// Traces are exported over OTLP/HTTP to a local collector or agent.
// Disabled by default; see internal/observability for the exporter setup.
type TracingConfig struct {
	// Enabled turns trace export on (default: false)
	Enabled bool `mapstructure:"enabled" json:"enabled"`
	// Endpoint is the OTLP/HTTP collector endpoint (default: localhost:4318)
	Endpoint string `mapstructure:"endpoint" json:"endpoint"`
	// Insecure disables TLS towards the collector (default: true, local agent)
	Insecure bool `mapstructure:"insecure" json:"insecure"`
	// Environment is the deployment environment tag (default: dev)
	Environment string `mapstructure:"environment" json:"environment"`
	// ServiceName is the service name on exported spans (default: haku)
	ServiceName string `mapstructure:"service_name" json:"service_name"`
}
