package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/otec"
	"github.com/aretw0/otec/internal/config"
	"github.com/aretw0/otec/internal/logging"
	"github.com/aretw0/otec/pkg/adapters/file"
	"github.com/aretw0/otec/pkg/adapters/memory"
	"github.com/aretw0/otec/pkg/adapters/redis"
	"github.com/aretw0/otec/pkg/domain"
	"github.com/aretw0/otec/pkg/persistence/middleware"
	"github.com/aretw0/otec/pkg/ports"
)

// NewLogger builds the application logger from the log configuration.
// JSON logs go to w; text logs always go to stderr.
func NewLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if cfg.Format == "json" {
		if w == nil {
			w = os.Stderr
		}
		return logging.NewJSON(w, level), nil
	}
	return logging.New(level), nil
}

// Backend is a configured store plus the resources to release on exit.
type Backend struct {
	Store  ports.LogStore
	Locker ports.DistributedLocker
	close  func() error
}

// Close releases backend connections.
func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// OpenBackend creates the log store (and optional locker) selected by cfg.
// With encryption configured the store is wrapped in the encryption middleware.
func OpenBackend(cfg config.Config) (*Backend, error) {
	b, err := openBackend(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Store.Encryption.Enabled() {
		active, fallback, err := cfg.Store.Encryption.Keys()
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		b.Store = middleware.Chain(b.Store, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: fallback,
		}))
	}
	return b, nil
}

func openBackend(cfg config.Config) (*Backend, error) {
	switch cfg.Store.Backend {
	case config.StoreMemory:
		return &Backend{Store: memory.NewStore()}, nil
	case config.StoreFile:
		return &Backend{Store: file.New(cfg.Store.Dir)}, nil
	case config.StoreRedis:
		store := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redis.WithPrefix(cfg.Redis.Prefix),
			redis.WithTTL(cfg.Redis.TTL),
		)
		b := &Backend{Store: store, close: store.Close}
		if cfg.Redis.Lock {
			b.Locker = redis.NewLocker(store.Client(), cfg.Redis.Prefix)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// NewEngine creates an engine on top of backend.
func NewEngine(name string, backend *Backend, cfg config.Config, logger *slog.Logger, hooks domain.LifecycleHooks) (*otec.Engine, error) {
	opts := []otec.Option{
		otec.WithStore(backend.Store),
		otec.WithLogger(logger),
		otec.WithLifecycleHooks(hooks),
		otec.WithLockTTL(cfg.LockTTL),
	}
	if name != "" {
		opts = append(opts, otec.WithName(name))
	}
	if backend.Locker != nil {
		opts = append(opts, otec.WithLocker(backend.Locker))
	}

	engine, err := otec.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	return engine, nil
}
