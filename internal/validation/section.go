// Package validation lints config sections against the JSON schema their
// adapter type declares. Unlike loading, which stops at the first problem,
// linting reports every violation in a section.
package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/grandtrade/gta/internal/adapter"
	"github.com/grandtrade/gta/internal/confstore"
)

// Result is the lint outcome for one section.
type Result struct {
	File     string   `json:"file" yaml:"file"`
	Section  string   `json:"section" yaml:"section"`
	Type     string   `json:"type,omitempty" yaml:"type,omitempty"`
	Valid    bool     `json:"valid" yaml:"valid"`
	Errors   []string `json:"errors,omitempty" yaml:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// ValidateSection checks sec against schema. An empty schema only yields a
// warning.
func ValidateSection(schema string, sec *confstore.Section) (*Result, error) {
	result := &Result{Section: sec.ID(), Valid: true}

	if strings.TrimSpace(schema) == "" {
		result.Warnings = append(result.Warnings, "adapter declares no schema, keys not checked")
		return result, nil
	}

	res, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewGoLoader(sec.Map()),
	)
	if err != nil {
		return nil, fmt.Errorf("schema validation error: %w", err)
	}

	if !res.Valid() {
		result.Valid = false
		for _, desc := range res.Errors() {
			result.Errors = append(result.Errors, desc.String())
		}
	}
	return result, nil
}

// ValidateFile lints every section of file. A section whose type does not
// resolve is reported invalid without a schema check.
func ValidateFile[T adapter.Instance](r *adapter.Registry[T], file *confstore.File) ([]*Result, error) {
	results := make([]*Result, 0, file.Len())

	for _, sec := range file.Sections() {
		declared, _ := sec.Get(adapter.TypeKey)

		d, err := r.ResolveSection(sec)
		if err != nil {
			results = append(results, &Result{
				File:    file.Path(),
				Section: sec.ID(),
				Type:    strings.TrimSpace(declared),
				Errors:  []string{err.Error()},
			})
			continue
		}

		res, err := ValidateSection(d.Schema, sec)
		if err != nil {
			return nil, fmt.Errorf("%s [%s]: %w", file.Path(), sec.ID(), err)
		}
		res.File = file.Path()
		res.Type = d.Name
		results = append(results, res)
	}
	return results, nil
}

// AllValid reports whether every result is valid.
func AllValid(results []*Result) bool {
	for _, r := range results {
		if !r.Valid {
			return false
		}
	}
	return true
}
