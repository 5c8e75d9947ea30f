package config

import (
	"context"
	"fmt"

	"github.com/marmos91/dittoiod/internal/logger"
	"github.com/marmos91/dittoiod/pkg/engine"
	"github.com/marmos91/dittoiod/pkg/group"
	"github.com/marmos91/dittoiod/pkg/registry"
	"github.com/marmos91/dittoiod/pkg/store/object"
)

// Runtime bundles everything built from a Config.
type Runtime struct {
	Registry *registry.Registry
	Handler  *group.Handler
	Engine   *engine.Engine
	Metrics  *MetricsResult

	// Container is the registered container entry named by the config
	Container *registry.Entry

	// ChecksumScope is the scope requests should carry
	ChecksumScope group.ChecksumScope
}

// InitializeRuntime creates the container, registers it, and builds the
// request handler and engine.
//
// The container's root group is bootstrapped as part of registration.
//
// Example:
//
//	cfg, _ := config.Load("config.yaml")
//	rt, err := config.InitializeRuntime(ctx, cfg)
//	if err != nil {
//	    log.Fatalf("Failed to initialize: %v", err)
//	}
//	defer rt.Close(ctx)
func InitializeRuntime(ctx context.Context, cfg *Config) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is nil")
	}

	m := InitializeMetrics(cfg)
	handler := group.NewHandler(group.HandlerConfig{
		DefaultCreateProps: group.PropertyList(cfg.Groups.DefaultCreateProps),
		Metrics:            m.Group,
	})

	c, err := CreateContainer(ctx, &cfg.Container)
	if err != nil {
		return nil, fmt.Errorf("failed to create container %q: %w", cfg.Container.Name, err)
	}
	logger.Debug("Created %s container %q", cfg.Container.Type, cfg.Container.Name)

	reg := registry.NewRegistry()
	entry, err := reg.AddContainer(ctx, &registry.ContainerConfig{
		Name:           cfg.Container.Name,
		Container:      c,
		Handler:        handler,
		BootstrapTrans: object.TransID(cfg.Container.BootstrapTrans),
		ChecksumScope:  cfg.Integrity.Scope(),
	})
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	logger.Info("Container %q ready (session %s)", entry.Name, entry.SessionID)

	return &Runtime{
		Registry:      reg,
		Handler:       handler,
		Engine:        engine.New(cfg.Engine, m.Engine),
		Metrics:       m,
		Container:     entry,
		ChecksumScope: cfg.Integrity.Scope(),
	}, nil
}

// Close releases every registered container.
func (r *Runtime) Close(ctx context.Context) error {
	return r.Registry.CloseAll(ctx)
}
