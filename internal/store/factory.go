package store

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Options selects and configures a storage backend.
type Options struct {
	// RedisDSN selects the Redis backend when non-empty.
	RedisDSN string

	// FilePath selects the file backend when non-empty and no Redis DSN
	// is configured.
	FilePath string

	// Secret, when non-empty, wraps the chosen backend in a SecureStore
	// so values are encrypted at rest.
	Secret string
}

// NewStore creates a storage backend based on the options: Redis when a
// DSN is configured, otherwise a file store when a path is configured,
// otherwise an in-memory store.
func NewStore(opts Options) (Store, error) {
	var (
		base Store
		err  error
	)

	switch {
	case opts.RedisDSN != "":
		logrus.Debug("Using Redis store")
		base, err = NewRedisStore(opts.RedisDSN)
		if err != nil {
			return nil, fmt.Errorf("create redis store: %w", err)
		}
	case opts.FilePath != "":
		logrus.Debug("Using file store")
		base, err = NewFileStore(opts.FilePath)
		if err != nil {
			return nil, fmt.Errorf("create file store: %w", err)
		}
	default:
		logrus.Debug("Using memory store")
		base = NewMemoryStore()
	}

	if opts.Secret != "" {
		secure, err := NewSecureStore(base, opts.Secret)
		if err != nil {
			base.Close()
			return nil, err
		}
		return secure, nil
	}

	return base, nil
}
