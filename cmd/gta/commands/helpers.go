package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/grandtrade/gta/internal/app"
	"github.com/grandtrade/gta/internal/config"
	"github.com/grandtrade/gta/internal/metrics"
)

// Output formats accepted by --format.
const (
	formatTable = "table"
	formatYAML  = "yaml"
	formatJSON  = "json"
)

// newContext builds the adapter context for one command run. Loads are
// recorded on the process-wide metrics.
func newContext(cfg *config.Config, opts ...app.Option) *app.Context {
	base := []app.Option{app.WithMetrics(metrics.Default())}
	return app.New(cfg, append(base, opts...)...)
}

func checkFormat(format string) error {
	switch format {
	case formatTable, formatYAML, formatJSON:
		return nil
	}
	return fmt.Errorf("unknown output format %q (want table, yaml or json)", format)
}

// writeStructured encodes v as yaml or json.
func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return checkFormat(format)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// joinOr joins vals with commas, or returns none when vals is empty.
func joinOr(vals []string, none string) string {
	if len(vals) == 0 {
		return none
	}
	return strings.Join(vals, ",")
}

// kindsFor expands the --kind flag. An empty kind means every kind.
func kindsFor(kind string) []string {
	if kind == "" {
		return app.Kinds
	}
	return []string{kind}
}
