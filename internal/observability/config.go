package observability

import (
	"atslens/internal/config"
)

// DefaultServiceName names telemetry when the config leaves it empty
const DefaultServiceName = "atslens"

// GetObservabilityConfig derives the manager settings from the app config.
// A nil config yields a disabled manager.
func GetObservabilityConfig(cfg *config.Config, version string) ObservabilityConfig {
	if cfg == nil {
		return ObservabilityConfig{
			ServiceName:    DefaultServiceName,
			ServiceVersion: version,
			SampleRate:     1.0,
			Prometheus:     GetPrometheusConfig(nil),
		}
	}

	obs := cfg.Observability
	oc := ObservabilityConfig{
		ServiceName:    obs.ServiceName,
		ServiceVersion: obs.ServiceVersion,
		Enabled:        obs.Enabled,
		ConsoleOutput:  obs.ConsoleOutput,
		PrettyPrint:    obs.Console.PrettyPrint,
		SampleRate:     obs.SampleRate,
		Prometheus:     GetPrometheusConfig(cfg),
	}
	if oc.ServiceName == "" {
		oc.ServiceName = DefaultServiceName
	}
	if oc.ServiceVersion == "" {
		oc.ServiceVersion = version
	}
	return oc
}
