package config

import (
	"context"
	"fmt"

	"github.com/driftfs/driftfs/internal/logger"
	"github.com/driftfs/driftfs/pkg/fs"
)

// InitializeRegistry builds the backend registry from configuration.
//
// Each configured backend contributes one factory, registered under the
// scheme its type serves. The configured base URI is resolved eagerly so
// misconfiguration (unreachable database path, bad credentials shape)
// surfaces at startup rather than on first use.
//
// Parameters:
//   - ctx: Context for backend construction
//   - cfg: Loaded configuration
//   - stats: Statistics registry shared by all backends
//
// Returns:
//   - *fs.Registry: Registry with every configured backend registered
//   - error: Factory creation, registration, or resolution error
func InitializeRegistry(ctx context.Context, cfg *Config, stats *fs.StatsRegistry) (*fs.Registry, error) {
	registry := fs.NewRegistry(stats)

	for i := range cfg.Backends {
		backendCfg := &cfg.Backends[i]

		factory, err := CreateBackendFactory(ctx, backendCfg)
		if err != nil {
			return nil, fmt.Errorf("backends[%d]: %w", i, err)
		}

		scheme := schemeForType[backendCfg.Type]
		if err := registry.Register(scheme, factory); err != nil {
			return nil, fmt.Errorf("backends[%d]: %w", i, err)
		}

		if _, err := registry.Resolve(ctx, backendCfg.URI); err != nil {
			return nil, fmt.Errorf("backends[%d]: failed to initialize %s: %w", i, backendCfg.URI, err)
		}

		logger.Info("Registered %s backend: %s", backendCfg.Type, backendCfg.URI)
	}

	return registry, nil
}
