// Package app is the process-wide entry point for loading adapters from the
// conf dir. A Context reads the config files once, resolves sections to
// adapters on demand, and caches every outcome until Reload.
package app

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/grandtrade/gta/internal/adapter"
	"github.com/grandtrade/gta/internal/broker"
	"github.com/grandtrade/gta/internal/config"
	"github.com/grandtrade/gta/internal/database"
	gtaerrors "github.com/grandtrade/gta/internal/errors"
	"github.com/grandtrade/gta/internal/logging"
	"github.com/grandtrade/gta/internal/metrics"
	"github.com/grandtrade/gta/internal/secrets"
)

// Kinds lists the adapter kinds in load order.
var Kinds = []string{adapter.KindBroker, adapter.KindDatabase}

// Option configures New.
type Option func(*Context)

// WithBrokers replaces the built-in broker registry.
func WithBrokers(r *adapter.Registry[broker.Broker]) Option {
	return func(c *Context) { c.brokers = r }
}

// WithDatabases replaces the built-in database registry.
func WithDatabases(r *adapter.Registry[database.Database]) Option {
	return func(c *Context) { c.databases = r }
}

// WithMetrics records load outcomes on m. Without it nothing is recorded.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Context) { c.metrics = m }
}

// WithKeyring resolves keyring:// secrets through lookup.
func WithKeyring(lookup secrets.KeyringLookup) Option {
	return func(c *Context) { c.keyring = lookup }
}

// Context owns the loaded config snapshot and the adapter cache.
type Context struct {
	settings config.Settings
	logger   *logging.Logger

	brokers   *adapter.Registry[broker.Broker]
	databases *adapter.Registry[database.Database]
	metrics   *metrics.Metrics
	keyring   secrets.KeyringLookup

	loadMu sync.Mutex
	snap   atomic.Pointer[snapshot]

	retiredMu sync.Mutex
	retired   []*snapshot
}

// New creates a Context. Nothing is read until the first adapter request.
func New(cfg *config.Config, opts ...Option) *Context {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	c := &Context{
		settings: cfg.Settings,
		logger:   logger.Named("app"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.brokers == nil {
		c.brokers = broker.NewRegistry()
	}
	if c.databases == nil {
		c.databases = database.NewRegistry()
	}
	return c
}

// Settings returns the settings the context was created with.
func (c *Context) Settings() config.Settings {
	return c.settings
}

// Brokers returns the broker registry.
func (c *Context) Brokers() *adapter.Registry[broker.Broker] {
	return c.brokers
}

// Databases returns the database registry.
func (c *Context) Databases() *adapter.Registry[database.Database] {
	return c.databases
}

// TypeNames returns the registered aliases of kind.
func (c *Context) TypeNames(kind string) ([]string, error) {
	switch kind {
	case adapter.KindBroker:
		return c.brokers.TypeNames(), nil
	case adapter.KindDatabase:
		return c.databases.TypeNames(), nil
	}
	return nil, unknownKind(kind)
}

// Reload reads the config files again and swaps them in with an empty
// cache. Instances already handed out keep working until Retire or Close.
// On error the current snapshot stays in place.
func (c *Context) Reload() error {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()

	next, err := c.readSnapshot()
	if err != nil {
		return err
	}

	if old := c.snap.Swap(next); old != nil {
		c.retiredMu.Lock()
		c.retired = append(c.retired, old)
		c.retiredMu.Unlock()
	}
	c.metrics.RecordReload()
	c.logger.Debug("Reloaded configuration from %s", c.settings.ConfDir)
	return nil
}

// Retire closes the instances of every snapshot replaced by Reload. Callers
// that reload periodically must call it once nothing uses the old instances.
func (c *Context) Retire() error {
	c.retiredMu.Lock()
	snaps := c.retired
	c.retired = nil
	c.retiredMu.Unlock()

	if len(snaps) > 0 {
		c.logger.Debug("Closing %d retired snapshot(s)", len(snaps))
	}
	return closeAll(snaps)
}

// Retired reports how many replaced snapshots are waiting for Retire.
func (c *Context) Retired() int {
	c.retiredMu.Lock()
	defer c.retiredMu.Unlock()
	return len(c.retired)
}

// Close closes every instance loaded so far and wipes their credentials.
func (c *Context) Close() error {
	err := c.Retire()
	if cur := c.snap.Swap(nil); cur != nil {
		err = errors.Join(err, closeAll([]*snapshot{cur}))
	}
	return err
}

func closeAll(snaps []*snapshot) error {
	var errs []error
	for _, s := range snaps {
		errs = append(errs, s.close()...)
	}
	return errors.Join(errs...)
}

func unknownKind(kind string) error {
	return fmt.Errorf("%w: unknown adapter kind %q (want %s or %s)",
		gtaerrors.ErrUnknownAdapterType, kind, adapter.KindBroker, adapter.KindDatabase)
}
