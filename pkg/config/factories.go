package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"syscall"
	"time"

	"github.com/marmos91/dittoiod/internal/logger"
	"github.com/marmos91/dittoiod/pkg/store/object"
	"github.com/marmos91/dittoiod/pkg/store/object/badger"
	"github.com/marmos91/dittoiod/pkg/store/object/memory"
	"github.com/mitchellh/mapstructure"
	retry "github.com/sethvargo/go-retry"
)

// openRetryBase is the first backoff step when a badger directory is locked
var openRetryBase = 100 * time.Millisecond

// CreateContainer creates the object container described by cfg.
//
// The Type field selects the backend; its type-specific map is decoded
// into the backend's own configuration struct and passed to its
// constructor.
//
// Supported types:
//   - "memory": pkg/store/object/memory
//   - "badger": pkg/store/object/badger
func CreateContainer(ctx context.Context, cfg *ContainerConfig) (object.Container, error) {
	switch cfg.Type {
	case "memory":
		return createMemoryContainer(cfg)
	case "badger":
		return createBadgerContainer(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown container type: %q", cfg.Type)
	}
}

func createMemoryContainer(cfg *ContainerConfig) (object.Container, error) {
	var memCfg memory.MemoryContainerConfig
	if err := mapstructure.Decode(cfg.Memory, &memCfg); err != nil {
		return nil, fmt.Errorf("invalid memory config: %w", err)
	}
	if memCfg.Name == "" {
		memCfg.Name = cfg.Name
	}
	return memory.NewMemoryContainer(memCfg), nil
}

// createBadgerContainer opens a BadgerDB container, retrying with
// Fibonacci backoff while the directory lock is held elsewhere.
func createBadgerContainer(ctx context.Context, cfg *ContainerConfig) (object.Container, error) {
	var badgerCfg badger.BadgerContainerConfig
	if err := mapstructure.Decode(cfg.Badger, &badgerCfg); err != nil {
		return nil, fmt.Errorf("invalid badger config: %w", err)
	}
	if badgerCfg.Name == "" {
		badgerCfg.Name = cfg.Name
	}

	var store *badger.BadgerContainer
	b := retry.WithMaxRetries(cfg.OpenRetries, retry.NewFibonacci(openRetryBase))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		var err error
		store, err = badger.NewBadgerContainer(ctx, badgerCfg)
		if isLockContention(err) {
			logger.Warn("Badger directory %q is locked, retrying", badgerCfg.DBPath)
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open badger container: %w", err)
	}
	return store, nil
}

func isLockContention(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, syscall.EAGAIN) || strings.Contains(err.Error(), "directory lock")
}
