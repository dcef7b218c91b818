// Package instance identifies the running installation
package instance

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"oidcconfig/internal/core"
)

// Identity is a stable instance id, used as the client id when none is configured
type Identity struct {
	id string
}

var _ core.InstanceIdentity = (*Identity)(nil)

// New returns an identity with a fixed id
func New(id string) *Identity {
	return &Identity{id: id}
}

// Load reads the instance id stored at path, generating and storing a new
// one when the file does not exist. An empty path gives a random id that
// changes on every start.
func Load(path string, logger *slog.Logger) (*Identity, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "instance")

	if path == "" {
		id := uuid.NewString()
		logger.Warn("No instance id file configured, using an ephemeral id", "id", id)
		return New(id), nil
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		id := strings.TrimSpace(string(data))
		if _, err := uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("invalid instance id in %s: %w", path, err)
		}
		logger.Debug("Instance id loaded", "id", id, "file", path)
		return New(id), nil
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("failed to read instance id: %w", err)
	}

	id := uuid.NewString()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create instance id directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write instance id: %w", err)
	}
	logger.Info("Instance id generated", "id", id, "file", path)
	return New(id), nil
}

// ID implements core.InstanceIdentity
func (i *Identity) ID() string {
	return i.id
}
