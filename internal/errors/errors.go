package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds raised while loading configuration and adapters. Callers match
// them with errors.Is; the wrapping error carries the offending section.
var (
	ErrParse                = errors.New("malformed config file")
	ErrCast                 = errors.New("value cast failed")
	ErrUnsupportedKind      = errors.New("unsupported cast kind")
	ErrUnknownAdapterType   = errors.New("unknown adapter type")
	ErrAmbiguousAdapterType = errors.New("ambiguous adapter type")
	ErrMissingRequiredKey   = errors.New("missing required key")
	ErrCredentialsNotFound  = errors.New("credentials not found")
	ErrAmbiguousSecrets     = errors.New("ambiguous secrets section")
	ErrInvalidCriteria      = errors.New("invalid match criteria")
	ErrNoMatchingSection    = errors.New("no matching config section")
)

// UserError is a failure worth showing as is: a one-line message, optional
// details and a hint. Err keeps the cause for errors.Is.
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var b strings.Builder
	switch {
	case e.Message != "":
		b.WriteString(e.Message)
	case e.Err != nil:
		b.WriteString(e.Err.Error())
	}
	if e.Details != "" {
		b.WriteString("\n  Details: ")
		b.WriteString(e.Details)
	}
	if e.Suggestion != "" {
		b.WriteString("\n  💡 Try: ")
		b.WriteString(e.Suggestion)
	}
	return b.String()
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError rejects one settings or descriptor field. A nil Value is left
// out of the message.
type ConfigError struct {
	Field      string
	Value      any
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("invalid config")
	if e.Field != "" {
		fmt.Fprintf(&b, " %s", e.Field)
	}
	if e.Value != nil {
		fmt.Fprintf(&b, "=%q", fmt.Sprint(e.Value))
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Suggestion != "" {
		b.WriteString("\n  💡 ")
		b.WriteString(e.Suggestion)
	}
	return b.String()
}

// SectionError ties a load failure to the config section that caused it.
// Err is normally one of the Err* kinds above, possibly wrapped.
type SectionError struct {
	Kind    string // adapter kind, e.g. "broker"
	File    string
	Section string
	Key     string
	Err     error
}

func (e SectionError) Error() string {
	var b strings.Builder
	if e.Kind != "" {
		b.WriteString(e.Kind)
		b.WriteString(" ")
	}
	fmt.Fprintf(&b, "section [%s]", e.Section)
	if e.File != "" {
		fmt.Fprintf(&b, " in %s", e.File)
	}
	if e.Key != "" {
		fmt.Fprintf(&b, " (key %q)", e.Key)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e SectionError) Unwrap() error {
	return e.Err
}

// MissingKey builds the error for an absent mandatory key.
func MissingKey(section, key string) error {
	return SectionError{Section: section, Key: key, Err: ErrMissingRequiredKey}
}

// Kind returns the first error kind found in err's chain, or nil.
func Kind(err error) error {
	for _, kind := range []error{
		ErrParse,
		ErrCast,
		ErrUnsupportedKind,
		ErrUnknownAdapterType,
		ErrAmbiguousAdapterType,
		ErrMissingRequiredKey,
		ErrCredentialsNotFound,
		ErrAmbiguousSecrets,
		ErrInvalidCriteria,
		ErrNoMatchingSection,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// Suggestion returns a hint for fixing a load failure, or "" when none applies.
func Suggestion(err error) string {
	switch Kind(err) {
	case ErrParse:
		return "Every key must live under a [section] header and use 'key = value'"
	case ErrUnknownAdapterType:
		return "Run 'gta types' to list the supported type names"
	case ErrAmbiguousAdapterType:
		return "Two adapters claim the same type name; rename one alias"
	case ErrMissingRequiredKey:
		return "Add the missing key to the section"
	case ErrCredentialsNotFound:
		return "Add a [<kind>::<id>] section to the secrets file"
	case ErrAmbiguousSecrets:
		return "Remove duplicate [<kind>::<id>] sections from the secrets file"
	case ErrCast:
		return "Check the value format (integers must be base 10)"
	}
	return ""
}

// Simplify converts a load failure into a UserError carrying a suggestion.
// Errors that are already user-facing are returned unchanged.
func Simplify(err error) error {
	if err == nil {
		return nil
	}

	var userErr UserError
	if errors.As(err, &userErr) {
		return err
	}
	var cfgErr ConfigError
	if errors.As(err, &cfgErr) {
		return err
	}

	suggestion := Suggestion(err)
	if suggestion == "" {
		return err
	}
	return UserError{
		Message:    err.Error(),
		Suggestion: suggestion,
		Err:        err,
	}
}
