// Package adapter binds named config sections to concrete adapter
// implementations chosen by their declared `type`.
package adapter

import (
	"fmt"
	"slices"

	gtaerrors "github.com/grandtrade/gta/internal/errors"
)

// Kinds of adapter. A kind is also the subsystem part of a secrets section id.
const (
	KindBroker   = "broker"
	KindDatabase = "database"
)

// Instance is a loaded adapter.
type Instance interface {
	Kind() string
	ConfigID() string
	Env() string
	SecretsID() string
	TypeName() string
	TypeNames() []string
	MatchesIDCriteria(c Criteria) (bool, error)
	Close() error
}

// Identity is the part every adapter shares: which config section it came
// from, for which environment, and which type aliases name it. Concrete
// adapters embed it.
type Identity struct {
	kind      string
	configID  string
	env       string
	secretsID string
	typeName  string
	typeNames []string
}

// NewIdentity builds an Identity. typeNames is copied.
func NewIdentity(kind, configID, env, secretsID, typeName string, typeNames []string) Identity {
	return Identity{
		kind:      kind,
		configID:  configID,
		env:       env,
		secretsID: secretsID,
		typeName:  typeName,
		typeNames: slices.Clone(typeNames),
	}
}

func (i Identity) Kind() string { return i.kind }

// ConfigID is the section id in the main config file.
func (i Identity) ConfigID() string { return i.configID }

func (i Identity) Env() string { return i.env }

// SecretsID is the secrets section id used to look up credentials.
func (i Identity) SecretsID() string { return i.secretsID }

// TypeName is the canonical name of the adapter type.
func (i Identity) TypeName() string { return i.typeName }

// TypeNames returns every alias accepted as `type` for this adapter.
func (i Identity) TypeNames() []string { return slices.Clone(i.typeNames) }

// Criteria selects an instance. ID is required; an empty Env or Type matches
// anything.
type Criteria struct {
	ID   string
	Env  string
	Type string
}

func (c Criteria) String() string {
	return fmt.Sprintf("id=%q env=%q type=%q", c.ID, c.Env, c.Type)
}

// MatchesIDCriteria reports whether every non-empty field of c matches.
// Type matches when it is any of the instance's aliases.
func (i Identity) MatchesIDCriteria(c Criteria) (bool, error) {
	if c.ID == "" {
		return false, fmt.Errorf("%w: id is required (%s)", gtaerrors.ErrInvalidCriteria, c)
	}
	if c.ID != i.configID {
		return false, nil
	}
	if c.Env != "" && c.Env != i.env {
		return false, nil
	}
	if c.Type != "" && !slices.Contains(i.typeNames, c.Type) {
		return false, nil
	}
	return true, nil
}

// State tracks one cached load.
type State int

const (
	Unloaded State = iota
	Loading
	Loaded
	Failed
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether no further transition happens without a reload.
func (s State) Terminal() bool {
	return s == Loaded || s == Failed
}
