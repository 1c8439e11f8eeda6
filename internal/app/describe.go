package app

import (
	"errors"

	"github.com/grandtrade/gta/internal/adapter"
	"github.com/grandtrade/gta/internal/convert"
	gtaerrors "github.com/grandtrade/gta/internal/errors"
	"github.com/grandtrade/gta/internal/secrets"
)

// Credential status values reported by Describe.
const (
	CredsOK        = "ok"
	CredsMissing   = "missing"
	CredsAmbiguous = "ambiguous"
	CredsNotNeeded = "not needed"
	CredsUnknown   = "-"
)

// SectionInfo describes one configured section without loading it.
type SectionInfo struct {
	Kind         string   `json:"kind" yaml:"kind"`
	Section      string   `json:"section" yaml:"section"`
	DeclaredType string   `json:"declared_type" yaml:"declared_type"`
	Type         string   `json:"type,omitempty" yaml:"type,omitempty"`
	Envs         []string `json:"envs,omitempty" yaml:"envs,omitempty"`
	SecretsID    string   `json:"secrets_id,omitempty" yaml:"secrets_id,omitempty"`
	Credentials  string   `json:"credentials" yaml:"credentials"`
	Error        string   `json:"error,omitempty" yaml:"error,omitempty"`
}

// Describe lists the sections of kind with their resolution and credential
// status.
func (c *Context) Describe(kind string) ([]SectionInfo, error) {
	switch kind {
	case adapter.KindBroker:
		return describe(c, c.brokers)
	case adapter.KindDatabase:
		return describe(c, c.databases)
	}
	return nil, unknownKind(kind)
}

func describe[T adapter.Instance](c *Context, r *adapter.Registry[T]) ([]SectionInfo, error) {
	snap, err := c.snapshot()
	if err != nil {
		return nil, err
	}
	file, err := snap.file(r.Kind())
	if err != nil {
		return nil, err
	}

	infos := make([]SectionInfo, 0, file.Len())
	for _, sec := range file.Sections() {
		declared, _ := sec.Get(adapter.TypeKey)
		info := SectionInfo{
			Kind:         r.Kind(),
			Section:      sec.ID(),
			DeclaredType: declared,
			Envs:         convert.SectionStrings(sec, adapter.EnvKey),
			Credentials:  CredsUnknown,
		}

		d, err := r.ResolveSection(sec)
		if err != nil {
			info.Error = err.Error()
			infos = append(infos, info)
			continue
		}
		info.Type = d.Name

		if !d.NeedsCredentials() {
			info.Credentials = CredsNotNeeded
			infos = append(infos, info)
			continue
		}

		id, err := secrets.FindUniqueSecretsID(snap.secrets, r.Kind(), sec.ID())
		switch {
		case err == nil:
			info.SecretsID = id
			info.Credentials = CredsOK
		case errors.Is(err, gtaerrors.ErrAmbiguousSecrets):
			info.Credentials = CredsAmbiguous
		default:
			info.Credentials = CredsMissing
		}
		infos = append(infos, info)
	}
	return infos, nil
}
