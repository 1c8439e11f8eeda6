package convert

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/grandtrade/gta/internal/confstore"
	gtaerrors "github.com/grandtrade/gta/internal/errors"
)

// SectionString returns a required key. A missing or blank value is an
// ErrMissingRequiredKey error naming the section.
func SectionString(sec *confstore.Section, key string) (string, error) {
	raw, ok := sec.Get(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return "", gtaerrors.MissingKey(sec.ID(), key)
	}
	return strings.TrimSpace(raw), nil
}

// SectionStringOr returns key's value, or def when the key is absent.
func SectionStringOr(sec *confstore.Section, key, def string) string {
	raw, ok := sec.Get(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return def
	}
	return strings.TrimSpace(raw)
}

// SectionInt returns a required integer key.
func SectionInt(sec *confstore.Section, key string) (int, error) {
	raw, err := SectionString(sec, key)
	if err != nil {
		return 0, err
	}
	n, err := Int(raw)
	if err != nil {
		return 0, gtaerrors.SectionError{Section: sec.ID(), Key: key, Err: err}
	}
	return n, nil
}

// SectionIntOr returns an optional integer key, def when absent.
func SectionIntOr(sec *confstore.Section, key string, def int) (int, error) {
	if !sec.Has(key) {
		return def, nil
	}
	return SectionInt(sec, key)
}

// SectionDecimalOr returns an optional decimal key, def when absent. The
// value is parsed from its text so no digits are lost.
func SectionDecimalOr(sec *confstore.Section, key string, def decimal.Decimal) (decimal.Decimal, error) {
	raw, ok := sec.Get(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return def, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, gtaerrors.SectionError{
			Section: sec.ID(),
			Key:     key,
			Err:     fmt.Errorf("%w: %q as decimal: %v", gtaerrors.ErrCast, raw, err),
		}
	}
	return d, nil
}

// SectionStrings parses key as a quoted, comma-separated list of non-empty
// strings. An absent key is an empty list.
func SectionStrings(sec *confstore.Section, key string) []string {
	raw, _ := sec.Get(key)
	vals, _ := ParseDelimitedList(raw, String, ListOptions{StripQuotes: true})

	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if s := v.(string); s != "" {
			out = append(out, s)
		}
	}
	return out
}
