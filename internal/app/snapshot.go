package app

import (
	"fmt"
	"sync"

	"github.com/grandtrade/gta/internal/adapter"
	"github.com/grandtrade/gta/internal/confstore"
)

type cacheKey struct {
	kind    string
	env     string
	section string
}

// entry is one cached load. done is closed once state is terminal.
type entry struct {
	state adapter.State
	inst  adapter.Instance
	err   error
	done  chan struct{}
}

// snapshot is the set of config files read together, plus every load made
// from them. Files are never modified after reading.
type snapshot struct {
	brokers   *confstore.File
	databases *confstore.File
	secrets   *confstore.File

	mu    sync.Mutex
	cache map[cacheKey]*entry
}

func (c *Context) readSnapshot() (*snapshot, error) {
	s := c.settings

	brokers, err := confstore.Read(s.ConfDir, s.BrokersFile)
	if err != nil {
		return nil, err
	}
	databases, err := confstore.Read(s.ConfDir, s.DatabasesFile)
	if err != nil {
		return nil, err
	}
	secretsFile, err := confstore.Read(s.ConfDir, s.SecretsFile)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Read %d broker, %d database and %d secrets sections from %s",
		brokers.Len(), databases.Len(), secretsFile.Len(), s.ConfDir)

	return &snapshot{
		brokers:   brokers,
		databases: databases,
		secrets:   secretsFile,
		cache:     make(map[cacheKey]*entry),
	}, nil
}

// snapshot returns the current snapshot, reading it on first use.
func (c *Context) snapshot() (*snapshot, error) {
	if s := c.snap.Load(); s != nil {
		return s, nil
	}

	c.loadMu.Lock()
	defer c.loadMu.Unlock()

	if s := c.snap.Load(); s != nil {
		return s, nil
	}
	s, err := c.readSnapshot()
	if err != nil {
		return nil, err
	}
	c.snap.Store(s)
	return s, nil
}

func (s *snapshot) file(kind string) (*confstore.File, error) {
	switch kind {
	case adapter.KindBroker:
		return s.brokers, nil
	case adapter.KindDatabase:
		return s.databases, nil
	}
	return nil, unknownKind(kind)
}

// claim returns the entry for key and whether the caller must load it.
func (s *snapshot) claim(key cacheKey) (*entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.cache[key]; ok {
		return e, false
	}
	e := &entry{state: adapter.Loading, done: make(chan struct{})}
	s.cache[key] = e
	return e, true
}

func (s *snapshot) finish(e *entry, inst adapter.Instance, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.inst, e.err = inst, err
	if err != nil {
		e.state = adapter.Failed
	} else {
		e.state = adapter.Loaded
	}
	close(e.done)
}

// State reports the cache state for one section.
func (s *snapshot) state(key cacheKey) adapter.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.cache[key]; ok {
		return e.state
	}
	return adapter.Unloaded
}

func (s *snapshot) close() []error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for key, e := range s.cache {
		if e.state != adapter.Loaded || e.inst == nil {
			continue
		}
		if err := e.inst.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s [%s]: %w", key.kind, key.section, err))
		}
	}
	return errs
}
