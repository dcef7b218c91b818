package factory

import (
	"log/slog"

	"oidcconfig/internal/client"
	"oidcconfig/internal/config"
	"oidcconfig/internal/profile"
	"oidcconfig/internal/registry"
)

// staticSource hides the Watch method of a source so it is only loaded once
type staticSource struct {
	profile.Source
}

// CreateProfileSources creates the persisted profile sources enabled in cfg.
// Sources are watched only when cfg.Watch is set.
func CreateProfileSources(cfg config.Profiles, logger *slog.Logger) ([]profile.Source, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var sources []profile.Source
	if cfg.Directory != "" {
		sources = append(sources, profile.NewDirSource(cfg.Directory, logger).WithDebounce(cfg.Debounce))
	}
	if k := cfg.Kubernetes; k != nil && k.Enabled {
		src, err := profile.NewConfigMapSource(profile.KubernetesConfig{
			Kubeconfig:    k.Kubeconfig,
			Namespace:     k.Namespace,
			LabelSelector: k.LabelSelector,
		}, logger)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src.WithDebounce(cfg.Debounce))
	}

	if !cfg.Watch {
		for i, src := range sources {
			sources[i] = staticSource{src}
		}
	}
	for _, src := range sources {
		logger.Info("Profile source enabled", "source", src.Name(), "watch", cfg.Watch)
	}
	return sources, nil
}

// CreateProfileSyncer creates the syncer that keeps reg in line with the
// persisted profiles of sources
func CreateProfileSyncer(cfg config.Profiles, reg *registry.Memory, sources []profile.Source, deps client.Deps, logger *slog.Logger, opts ...profile.SyncerOption) *profile.Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	authz := profile.NewTrustedAuthors(cfg.TrustedAuthors...)
	if len(cfg.TrustedAuthors) == 0 {
		logger.Warn("No trusted profile authors configured, persisted profiles will be rejected")
	}
	builder := profile.NewBuilder(authz, deps)
	return profile.NewSyncer(reg, builder, sources, logger, opts...)
}
