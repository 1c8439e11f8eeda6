package app

import (
	"fmt"
	"slices"
	"time"

	"github.com/grandtrade/gta/internal/adapter"
	"github.com/grandtrade/gta/internal/broker"
	"github.com/grandtrade/gta/internal/confstore"
	"github.com/grandtrade/gta/internal/convert"
	"github.com/grandtrade/gta/internal/database"
	gtaerrors "github.com/grandtrade/gta/internal/errors"
	"github.com/grandtrade/gta/internal/metrics"
)

// GetAdapterFromConfig returns the adapter of kind for env whose section
// type resolves to the same adapter as typeName. The first such section in
// file order wins. The outcome, success or failure, is cached until Reload.
func (c *Context) GetAdapterFromConfig(kind, env, typeName string) (adapter.Instance, error) {
	switch kind {
	case adapter.KindBroker:
		return c.Broker(env, typeName)
	case adapter.KindDatabase:
		return c.Database(env, typeName)
	}
	return nil, unknownKind(kind)
}

// Broker is GetAdapterFromConfig for brokers.
func (c *Context) Broker(env, typeName string) (broker.Broker, error) {
	return byType(c, c.brokers, env, typeName)
}

// Database is GetAdapterFromConfig for databases.
func (c *Context) Database(env, typeName string) (database.Database, error) {
	return byType(c, c.databases, env, typeName)
}

// ByID loads the section named crit.ID and checks it against crit. An empty
// crit.Env means the configured environment.
func (c *Context) ByID(kind string, crit adapter.Criteria) (adapter.Instance, error) {
	switch kind {
	case adapter.KindBroker:
		return byID(c, c.brokers, crit)
	case adapter.KindDatabase:
		return byID(c, c.databases, crit)
	}
	return nil, unknownKind(kind)
}

// LoadResult is the outcome of loading one section.
type LoadResult struct {
	Kind     string
	Section  string
	Type     string
	Instance adapter.Instance
	Err      error
}

// LoadAll loads every section of kind that serves env, in file order.
func (c *Context) LoadAll(kind, env string) ([]LoadResult, error) {
	switch kind {
	case adapter.KindBroker:
		return loadAll(c, c.brokers, env)
	case adapter.KindDatabase:
		return loadAll(c, c.databases, env)
	}
	return nil, unknownKind(kind)
}

// ServesEnv reports whether sec's env list includes env. A section without
// an env list serves every environment.
func ServesEnv(sec *confstore.Section, env string) bool {
	envs := convert.SectionStrings(sec, adapter.EnvKey)
	return len(envs) == 0 || slices.Contains(envs, env)
}

func byType[T adapter.Instance](c *Context, r *adapter.Registry[T], env, typeName string) (T, error) {
	var zero T

	want, err := r.Resolve(typeName)
	if err != nil {
		return zero, err
	}

	snap, err := c.snapshot()
	if err != nil {
		return zero, err
	}
	file, err := snap.file(r.Kind())
	if err != nil {
		return zero, err
	}

	for _, sec := range file.Sections() {
		d, err := r.ResolveSection(sec)
		if err != nil {
			c.logger.Debug("Skipping %s [%s]: %v", r.Kind(), sec.ID(), err)
			continue
		}
		if d != want || !ServesEnv(sec, env) {
			continue
		}
		return load(c, r, snap, file, sec, env)
	}

	return zero, fmt.Errorf("%w: no %s section of type %q for env %q in %s",
		gtaerrors.ErrNoMatchingSection, r.Kind(), typeName, env, file.Path())
}

func byID[T adapter.Instance](c *Context, r *adapter.Registry[T], crit adapter.Criteria) (T, error) {
	var zero T

	if crit.ID == "" {
		return zero, fmt.Errorf("%w: id is required (%s)", gtaerrors.ErrInvalidCriteria, crit)
	}
	env := crit.Env
	if env == "" {
		env = c.settings.Env
	}

	snap, err := c.snapshot()
	if err != nil {
		return zero, err
	}
	file, err := snap.file(r.Kind())
	if err != nil {
		return zero, err
	}

	sec, ok := file.Section(crit.ID)
	if !ok || !ServesEnv(sec, env) {
		return zero, fmt.Errorf("%w: no %s section [%s] for env %q in %s",
			gtaerrors.ErrNoMatchingSection, r.Kind(), crit.ID, env, file.Path())
	}

	inst, err := load(c, r, snap, file, sec, env)
	if err != nil {
		return zero, err
	}

	match, err := inst.MatchesIDCriteria(crit)
	if err != nil {
		return zero, err
	}
	if !match {
		return zero, fmt.Errorf("%w: %s [%s] does not match %s",
			gtaerrors.ErrNoMatchingSection, r.Kind(), crit.ID, crit)
	}
	return inst, nil
}

func loadAll[T adapter.Instance](c *Context, r *adapter.Registry[T], env string) ([]LoadResult, error) {
	snap, err := c.snapshot()
	if err != nil {
		return nil, err
	}
	file, err := snap.file(r.Kind())
	if err != nil {
		return nil, err
	}

	var results []LoadResult
	for _, sec := range file.Sections() {
		if !ServesEnv(sec, env) {
			continue
		}
		declared, _ := sec.Get(adapter.TypeKey)
		res := LoadResult{Kind: r.Kind(), Section: sec.ID(), Type: declared}

		inst, err := load(c, r, snap, file, sec, env)
		if err != nil {
			res.Err = err
		} else {
			res.Instance = inst
			res.Type = inst.TypeName()
		}
		results = append(results, res)
	}
	return results, nil
}

// load returns the cached outcome for sec, loading it if this is the first
// request. Concurrent requests for the same section wait for one load.
func load[T adapter.Instance](c *Context, r *adapter.Registry[T], snap *snapshot, file *confstore.File, sec *confstore.Section, env string) (T, error) {
	var zero T

	key := cacheKey{kind: r.Kind(), env: env, section: sec.ID()}
	declared, _ := sec.Get(adapter.TypeKey)

	e, owner := snap.claim(key)
	if !owner {
		<-e.done
		c.metrics.RecordLoad(r.Kind(), declared, metrics.ResultCached, 0)
		return cached[T](e)
	}

	// A panicking LoadFunc still has to release the waiters.
	finished := false
	defer func() {
		if !finished {
			snap.finish(e, nil, fmt.Errorf("loading %s [%s] panicked", r.Kind(), sec.ID()))
		}
	}()

	start := time.Now()
	inst, err := r.Load(adapter.LoadRequest{
		Env:     env,
		Section: sec,
		File:    file.Path(),
		Secrets: snap.secrets,
		Keyring: c.keyring,
		Logger:  c.logger,
	})
	elapsed := time.Since(start)

	finished = true
	if err != nil {
		snap.finish(e, nil, err)
		c.metrics.RecordLoad(r.Kind(), declared, metrics.ResultFailed, elapsed)
		c.logger.Debug("Failed to load %s [%s] for env %q: %v", r.Kind(), sec.ID(), env, err)
		return zero, err
	}

	snap.finish(e, inst, nil)
	c.metrics.RecordLoad(r.Kind(), declared, metrics.ResultLoaded, elapsed)
	return inst, nil
}

func cached[T adapter.Instance](e *entry) (T, error) {
	var zero T
	if e.err != nil {
		return zero, e.err
	}
	inst, ok := e.inst.(T)
	if !ok {
		return zero, fmt.Errorf("cached adapter has unexpected type %T", e.inst)
	}
	return inst, nil
}

// State reports the cache state of one section for env.
func (c *Context) State(kind, env, sectionID string) adapter.State {
	s := c.snap.Load()
	if s == nil {
		return adapter.Unloaded
	}
	return s.state(cacheKey{kind: kind, env: env, section: sectionID})
}
