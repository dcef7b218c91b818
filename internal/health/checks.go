package health

import (
	"context"
	"fmt"

	"oidcconfig/internal/registry"
)

// RegistryCheck reports the registry unhealthy while it has no default
// configuration, requests could not be served without one
func RegistryCheck(reg registry.Registry) Check {
	return func(ctx context.Context) error {
		if _, err := reg.Default(); err != nil {
			return fmt.Errorf("default configuration: %w", err)
		}
		return nil
	}
}

// DatabaseCheck creates a health check for a store connection
func DatabaseCheck(pingFunc func(context.Context) error) Check {
	return func(ctx context.Context) error {
		return pingFunc(ctx)
	}
}

// CustomCheck runs checkFunc and gives up when ctx is done
func CustomCheck(checkFunc func() error) Check {
	return func(ctx context.Context) error {
		done := make(chan error, 1)
		go func() {
			done <- checkFunc()
		}()

		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			return fmt.Errorf("check timeout: %w", ctx.Err())
		}
	}
}
