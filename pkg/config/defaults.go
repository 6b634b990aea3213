package config

import "strings"

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and
// environment variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - Backend-specific defaults are handled by the backend implementations
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)

	// Add a default in-memory backend if none configured
	if len(cfg.Backends) == 0 {
		cfg.Backends = []BackendConfig{
			{
				Type: "memory",
				URI:  "mem:///",
			},
		}
	}

	applyBackendDefaults(cfg.Backends)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyBackendDefaults sets per-backend defaults.
func applyBackendDefaults(backends []BackendConfig) {
	for i := range backends {
		if backends[i].Options == nil {
			backends[i].Options = make(map[string]any)
		}
		if backends[i].Type == "badger" {
			if _, ok := backends[i].Options["db_path"]; !ok {
				backends[i].Options["db_path"] = "/tmp/driftfs-metadata"
			}
		}
	}
}
