package secrets

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/zalando/go-keyring"

	"github.com/grandtrade/gta/internal/confstore"
	gtaerrors "github.com/grandtrade/gta/internal/errors"
	"github.com/grandtrade/gta/internal/logging"
	"github.com/grandtrade/gta/internal/secure"
)

// KeyringScheme prefixes values stored in the OS keyring instead of the
// secrets file: keyring://<service>/<account>.
const KeyringScheme = "keyring://"

// ErrKeyringRef is returned for a malformed keyring:// value.
var ErrKeyringRef = errors.New("invalid keyring reference")

// KeyringLookup fetches a secret from the OS keyring.
type KeyringLookup func(service, account string) (string, error)

// SystemKeyring reads from the platform keyring (Secret Service, Keychain,
// Windows Credential Manager).
func SystemKeyring(service, account string) (string, error) {
	return keyring.Get(service, account)
}

// LoadOptions tunes Load.
type LoadOptions struct {
	// Required keys must be present and non-empty.
	Required []string
	// Keyring resolves keyring:// values. nil means SystemKeyring.
	Keyring KeyringLookup
}

// Credentials holds the sealed values of one secrets section. Values stay
// encrypted in memory until revealed.
type Credentials struct {
	sectionID string
	values    map[string]*secure.Value
}

// Load finds the unique secrets section for (subsystem, mainID) in file and
// seals its values.
func Load(file *confstore.File, subsystem, mainID string, opts LoadOptions) (*Credentials, error) {
	id, err := FindUniqueSecretsID(file, subsystem, mainID)
	if err != nil {
		return nil, gtaerrors.SectionError{File: file.Path(), Section: mainID, Err: err}
	}
	sec, _ := file.Section(id)

	for _, key := range opts.Required {
		if v, ok := sec.Get(key); !ok || strings.TrimSpace(v) == "" {
			return nil, gtaerrors.SectionError{File: file.Path(), Section: id, Key: key, Err: gtaerrors.ErrMissingRequiredKey}
		}
	}

	lookup := opts.Keyring
	if lookup == nil {
		lookup = SystemKeyring
	}

	creds := &Credentials{sectionID: id, values: make(map[string]*secure.Value, sec.Len())}
	for k, raw := range sec.Map() {
		val, err := resolveValue(raw, lookup)
		if err != nil {
			err = logging.RedactError(err, append(creds.Values(), plainValues(sec)...)...)
			creds.Destroy()
			return nil, gtaerrors.SectionError{File: file.Path(), Section: id, Key: k, Err: err}
		}
		creds.values[k] = secure.SealString(val)
	}
	return creds, nil
}

// plainValues returns the section's values that are not keyring references.
func plainValues(sec *confstore.Section) []string {
	var out []string
	for _, raw := range sec.Map() {
		if v := strings.TrimSpace(raw); v != "" && !strings.HasPrefix(v, KeyringScheme) {
			out = append(out, v)
		}
	}
	return out
}

func resolveValue(raw string, lookup KeyringLookup) (string, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, KeyringScheme) {
		return raw, nil
	}

	ref := strings.TrimPrefix(raw, KeyringScheme)
	service, account, ok := strings.Cut(ref, "/")
	if !ok || service == "" || account == "" {
		return "", fmt.Errorf("%w: %q (want keyring://service/account)", ErrKeyringRef, raw)
	}

	secret, err := lookup(service, account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("%w: keyring item %s/%s", gtaerrors.ErrCredentialsNotFound, service, account)
		}
		return "", fmt.Errorf("keyring lookup %s/%s: %w", service, account, err)
	}
	return secret, nil
}

// SectionID returns the id of the secrets section the values came from.
func (c *Credentials) SectionID() string {
	return c.sectionID
}

// Keys returns the credential keys, sorted.
func (c *Credentials) Keys() []string {
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Has reports whether key is present.
func (c *Credentials) Has(key string) bool {
	_, ok := c.values[strings.ToLower(key)]
	return ok
}

// Reveal decrypts one value. An absent key returns "" and false.
func (c *Credentials) Reveal(key string) (string, bool, error) {
	if c == nil {
		return "", false, nil
	}
	v, ok := c.values[strings.ToLower(key)]
	if !ok {
		return "", false, nil
	}
	plain, err := v.Reveal()
	if err != nil {
		return "", true, err
	}
	return plain, true, nil
}

// Values reveals every value, for scrubbing them out of error text. Values
// that fail to decrypt are skipped.
func (c *Credentials) Values() []string {
	if c == nil {
		return nil
	}
	out := make([]string, 0, len(c.values))
	for _, v := range c.values {
		if plain, err := v.Reveal(); err == nil && plain != "" {
			out = append(out, plain)
		}
	}
	return out
}

// Destroy wipes every sealed value.
func (c *Credentials) Destroy() {
	if c == nil {
		return
	}
	for _, v := range c.values {
		v.Destroy()
	}
}

// String never prints credential values.
func (c *Credentials) String() string {
	return fmt.Sprintf("Credentials[%s]{%s}", c.sectionID, strings.Join(c.Keys(), ", "))
}
