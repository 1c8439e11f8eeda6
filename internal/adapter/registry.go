package adapter

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/grandtrade/gta/internal/confstore"
	"github.com/grandtrade/gta/internal/convert"
	gtaerrors "github.com/grandtrade/gta/internal/errors"
	"github.com/grandtrade/gta/internal/logging"
	"github.com/grandtrade/gta/internal/secrets"
)

// TypeKey is the section key naming the adapter type.
const TypeKey = "type"

// EnvKey lists the environments a section serves.
const EnvKey = "env"

// Input is what a LoadFunc gets to build an instance.
type Input struct {
	Identity Identity
	Section  *confstore.Section
	// Credentials is nil when the descriptor declares no CredentialKeys.
	// The returned instance owns it.
	Credentials *secrets.Credentials
	Logger      *logging.Logger
}

// LoadFunc builds an adapter from its config section.
type LoadFunc[T Instance] func(in Input) (T, error)

// Descriptor describes one adapter type.
type Descriptor[T Instance] struct {
	// Name is the canonical type name.
	Name string
	// TypeNames are the case-sensitive aliases accepted as `type`.
	TypeNames []string
	// CredentialKeys must be present in the secrets section. Empty means the
	// adapter needs no credentials.
	CredentialKeys []string
	// Schema is an optional JSON schema for the section's keys.
	Schema      string
	Description string
	Load        LoadFunc[T]
}

// NeedsCredentials reports whether loading requires a secrets section.
func (d *Descriptor[T]) NeedsCredentials() bool {
	return len(d.CredentialKeys) > 0
}

// LoadRequest asks a registry to load one section.
type LoadRequest struct {
	Env     string
	Section *confstore.Section
	// File is the path of the file Section came from, for error messages.
	File    string
	Secrets *confstore.File
	Keyring secrets.KeyringLookup
	Logger  *logging.Logger
}

// Registry maps declared type aliases to descriptors for one adapter kind.
type Registry[T Instance] struct {
	kind string

	mu          sync.RWMutex
	descriptors []*Descriptor[T]
	byAlias     map[string]*Descriptor[T]
}

// NewRegistry creates an empty registry for kind.
func NewRegistry[T Instance](kind string) *Registry[T] {
	return &Registry[T]{
		kind:    kind,
		byAlias: make(map[string]*Descriptor[T]),
	}
}

// Kind returns the adapter kind this registry serves.
func (r *Registry[T]) Kind() string {
	return r.kind
}

// Register adds d. Every alias must be unclaimed; a clash fails with
// ErrAmbiguousAdapterType and leaves the registry unchanged.
func (r *Registry[T]) Register(d Descriptor[T]) error {
	if d.Name == "" {
		return gtaerrors.ConfigError{Field: "name", Message: "adapter descriptor needs a name"}
	}
	if len(d.TypeNames) == 0 {
		return gtaerrors.ConfigError{Field: "type_names", Value: d.Name, Message: "adapter descriptor needs at least one type name"}
	}
	if d.Load == nil {
		return gtaerrors.ConfigError{Field: "load", Value: d.Name, Message: "adapter descriptor needs a load function"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool, len(d.TypeNames))
	for _, alias := range d.TypeNames {
		if alias == "" {
			return gtaerrors.ConfigError{Field: "type_names", Value: d.Name, Message: "type names must not be empty"}
		}
		if other, ok := r.byAlias[alias]; ok {
			return fmt.Errorf("%w: %s type %q claimed by both %s and %s",
				gtaerrors.ErrAmbiguousAdapterType, r.kind, alias, other.Name, d.Name)
		}
		if seen[alias] {
			return fmt.Errorf("%w: %s type %q listed twice by %s",
				gtaerrors.ErrAmbiguousAdapterType, r.kind, alias, d.Name)
		}
		seen[alias] = true
	}

	stored := d
	stored.TypeNames = slices.Clone(d.TypeNames)
	stored.CredentialKeys = slices.Clone(d.CredentialKeys)
	r.descriptors = append(r.descriptors, &stored)
	for _, alias := range stored.TypeNames {
		r.byAlias[alias] = &stored
	}
	return nil
}

// MustRegister is Register for built-in adapters; it panics on error.
func (r *Registry[T]) MustRegister(d Descriptor[T]) {
	if err := r.Register(d); err != nil {
		panic(err)
	}
}

// Resolve returns the descriptor claiming declared.
func (r *Registry[T]) Resolve(declared string) (*Descriptor[T], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.byAlias[declared]
	if !ok {
		return nil, fmt.Errorf("%w: %s type %q (known: %s)",
			gtaerrors.ErrUnknownAdapterType, r.kind, declared, strings.Join(r.typeNamesLocked(), ", "))
	}
	return d, nil
}

// ResolveSection resolves the section's declared type.
func (r *Registry[T]) ResolveSection(sec *confstore.Section) (*Descriptor[T], error) {
	declared, err := convert.SectionString(sec, TypeKey)
	if err != nil {
		return nil, err
	}
	return r.Resolve(declared)
}

// Descriptors returns the registered descriptors in registration order.
func (r *Registry[T]) Descriptors() []*Descriptor[T] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.descriptors)
}

// TypeNames returns every registered alias, sorted.
func (r *Registry[T]) TypeNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.typeNamesLocked()
}

func (r *Registry[T]) typeNamesLocked() []string {
	names := make([]string, 0, len(r.byAlias))
	for alias := range r.byAlias {
		names = append(names, alias)
	}
	sort.Strings(names)
	return names
}

// Load builds an instance from req.Section. Failures are SectionErrors
// naming the kind, file and section.
func (r *Registry[T]) Load(req LoadRequest) (T, error) {
	var zero T

	d, err := r.ResolveSection(req.Section)
	if err != nil {
		return zero, r.annotate(err, req)
	}

	configID := req.Section.ID()

	logger := req.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	logger = logger.With("section", configID)
	secretsID := secrets.CompositeID(r.kind, configID)

	var creds *secrets.Credentials
	if d.NeedsCredentials() {
		secretsFile := req.Secrets
		if secretsFile == nil {
			secretsFile = confstore.Empty("")
		}
		creds, err = secrets.Load(secretsFile, r.kind, configID, secrets.LoadOptions{
			Required: d.CredentialKeys,
			Keyring:  req.Keyring,
		})
		if err != nil {
			return zero, r.annotate(err, req)
		}
		secretsID = creds.SectionID()
	}

	in := Input{
		Identity:    NewIdentity(r.kind, configID, req.Env, secretsID, d.Name, d.TypeNames),
		Section:     req.Section,
		Credentials: creds,
		Logger:      logger,
	}

	inst, err := d.Load(in)
	if err != nil {
		// Hide any credential the LoadFunc quoted back.
		err = logging.RedactError(r.annotate(err, req), creds.Values()...)
		creds.Destroy()
		return zero, err
	}

	logger.Debug("Loaded %s %q as %s for env %q", r.kind, configID, d.Name, req.Env)
	return inst, nil
}

// annotate fills in kind and location on err, wrapping it in a SectionError
// unless it already is one.
func (r *Registry[T]) annotate(err error, req LoadRequest) error {
	if se, ok := err.(gtaerrors.SectionError); ok {
		if se.Kind == "" {
			se.Kind = r.kind
		}
		if se.File == "" {
			se.File = req.File
		}
		return se
	}
	return gtaerrors.SectionError{Kind: r.kind, File: req.File, Section: req.Section.ID(), Err: err}
}
