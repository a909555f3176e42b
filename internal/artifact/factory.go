package artifact

import (
	"context"
	"fmt"
)

// BackendType selects which Store implementation New constructs, mirroring
// spec.md §6's storage.type config field.
type BackendType string

const (
	BackendLocal        BackendType = "local"
	BackendRemoteObject BackendType = "remote_object"
)

// Config is the subset of config.Storage needed to build a Store.
type Config struct {
	Type BackendType

	// Local
	DataDir string

	// RemoteObject
	S3 S3Config
}

// New builds the Store selected by cfg.Type.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Type {
	case "", BackendLocal:
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("artifact store: local backend requires a data directory")
		}
		return NewLocalStore(cfg.DataDir)
	case BackendRemoteObject:
		if cfg.S3.Bucket == "" {
			return nil, fmt.Errorf("artifact store: remote_object backend requires storage.bucket")
		}
		return NewS3Store(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("artifact store: unsupported backend type %q", cfg.Type)
	}
}
