// Package testutil provides test helpers shared by gta packages.
//
// ConfDirBuilder writes a throwaway conf dir holding brokers.conf,
// databases.conf and .secrets.conf, and TestLogger captures log output.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grandtrade/gta/internal/config"
	"github.com/grandtrade/gta/internal/logging"
)

// ConfDirBuilder provides a fluent API for building test conf dirs.
//
// Example usage:
//
//	dir := testutil.NewConfDir(t).
//	    WithDatabase("mydb", "postgres", "host", "localhost", "port", "5432", "database", "trading").
//	    WithSecrets("database", "mydb", "username", "trader").
//	    Write()
type ConfDirBuilder struct {
	t     *testing.T
	dir   string
	files map[string]*strings.Builder
	order []string
}

// NewConfDir creates a builder over a fresh temporary directory.
func NewConfDir(t *testing.T) *ConfDirBuilder {
	t.Helper()

	return &ConfDirBuilder{
		t:     t,
		dir:   t.TempDir(),
		files: make(map[string]*strings.Builder),
	}
}

func (b *ConfDirBuilder) file(name string) *strings.Builder {
	f, ok := b.files[name]
	if !ok {
		f = &strings.Builder{}
		b.files[name] = f
		b.order = append(b.order, name)
	}
	return f
}

// WithSection appends a section to the named file. pairs alternates key and
// value.
func (b *ConfDirBuilder) WithSection(fileName, id string, pairs ...string) *ConfDirBuilder {
	b.t.Helper()

	if len(pairs)%2 != 0 {
		b.t.Fatalf("WithSection %s [%s]: odd number of key/value arguments", fileName, id)
	}

	f := b.file(fileName)
	if f.Len() > 0 {
		f.WriteString("\n")
	}
	fmt.Fprintf(f, "[%s]\n", id)
	for i := 0; i < len(pairs); i += 2 {
		fmt.Fprintf(f, "%s = %s\n", pairs[i], pairs[i+1])
	}
	return b
}

// WithBroker appends a brokers.conf section declaring typeName.
func (b *ConfDirBuilder) WithBroker(id, typeName string, pairs ...string) *ConfDirBuilder {
	b.t.Helper()
	return b.WithSection("brokers.conf", id, append([]string{"type", typeName}, pairs...)...)
}

// WithDatabase appends a databases.conf section declaring typeName.
func (b *ConfDirBuilder) WithDatabase(id, typeName string, pairs ...string) *ConfDirBuilder {
	b.t.Helper()
	return b.WithSection("databases.conf", id, append([]string{"type", typeName}, pairs...)...)
}

// WithSecrets appends a [kind::id] section to .secrets.conf.
func (b *ConfDirBuilder) WithSecrets(kind, id string, pairs ...string) *ConfDirBuilder {
	b.t.Helper()
	return b.WithSection(config.DefaultSecretsFile, kind+"::"+id, pairs...)
}

// WithRaw appends text verbatim to the named file.
func (b *ConfDirBuilder) WithRaw(fileName, text string) *ConfDirBuilder {
	b.t.Helper()
	b.file(fileName).WriteString(text)
	return b
}

// Write writes every file and returns the directory.
func (b *ConfDirBuilder) Write() string {
	b.t.Helper()

	for _, name := range b.order {
		path := filepath.Join(b.dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			b.t.Fatalf("Failed to create %s: %v", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, []byte(b.files[name].String()), 0600); err != nil {
			b.t.Fatalf("Failed to write %s: %v", path, err)
		}
	}
	return b.dir
}

// Dir returns the directory without writing.
func (b *ConfDirBuilder) Dir() string {
	return b.dir
}

// Config writes the files and returns a Config pointing at them for env.
func (b *ConfDirBuilder) Config(env string) *config.Config {
	b.t.Helper()

	return &config.Config{
		Logger: logging.Nop(),
		Settings: config.Settings{
			ConfDir:       b.Write(),
			Env:           env,
			LogLevel:      "info",
			LogFormat:     "console",
			BrokersFile:   "brokers.conf",
			DatabasesFile: "databases.conf",
			SecretsFile:   config.DefaultSecretsFile,
		},
	}
}
