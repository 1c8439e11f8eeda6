// Package convert turns raw config strings into typed values.
package convert

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cast"

	gtaerrors "github.com/grandtrade/gta/internal/errors"
)

// Kind is a cast target.
type Kind int

const (
	// Invalid is the zero Kind and is never a valid target.
	Invalid Kind = iota
	Integer
	Float
	String
)

func (k Kind) String() string {
	switch k {
	case Integer:
		return "int"
	case Float:
		return "float"
	case String:
		return "string"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Cast converts raw to kind. A failed conversion returns an ErrCast error,
// or raw itself when fallbackToOriginal is set. An unsupported kind always
// fails with ErrUnsupportedKind.
func Cast(raw string, kind Kind, fallbackToOriginal bool) (any, error) {
	var (
		v   any
		err error
	)

	switch kind {
	case Integer:
		v, err = toInt(raw)
	case Float:
		v, err = toFloat(raw)
	case String:
		v, err = cast.ToStringE(raw)
	default:
		return nil, fmt.Errorf("%w: %s", gtaerrors.ErrUnsupportedKind, kind)
	}

	if err != nil {
		if fallbackToOriginal {
			return raw, nil
		}
		return nil, fmt.Errorf("%w: %q as %s: %v", gtaerrors.ErrCast, raw, kind, err)
	}
	return v, nil
}

// Int casts raw to an int.
func Int(raw string) (int, error) {
	v, err := Cast(raw, Integer, false)
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

// toInt accepts base-10 integers only; "010" is ten, not eight.
func toInt(raw string) (int, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 0)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func toFloat(raw string) (float64, error) {
	return cast.ToFloat64E(strings.TrimSpace(raw))
}

// ListOptions controls ParseDelimitedList. The zero value splits on commas.
type ListOptions struct {
	Delimiter   string
	StripQuotes bool
}

// ParseDelimitedList splits raw on the delimiter and casts each trimmed
// token to kind. Tokens that fail to cast, such as the empty token left by a
// trailing delimiter, are dropped. Empty input yields an empty list. The only
// error is an unsupported kind.
func ParseDelimitedList(raw string, kind Kind, opts ListOptions) ([]any, error) {
	if kind != Integer && kind != Float && kind != String {
		return nil, fmt.Errorf("%w: %s", gtaerrors.ErrUnsupportedKind, kind)
	}

	out := []any{}
	if raw == "" {
		return out, nil
	}

	delim := opts.Delimiter
	if delim == "" {
		delim = ","
	}

	for _, tok := range strings.Split(raw, delim) {
		tok = strings.TrimSpace(tok)
		if opts.StripQuotes {
			tok = strings.TrimSpace(stripQuotes(tok))
		}
		v, err := Cast(tok, kind, false)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// stripQuotes removes one layer of matching ' or " quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' || first == '\'') && first == last {
			return s[1 : len(s)-1]
		}
	}
	return s
}
