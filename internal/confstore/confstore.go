// Package confstore reads the INI-style configuration files that declare
// adapters and their secrets.
//
// Files use `[section]` headers followed by `key = value` (or `key: value`)
// lines. Keys are case-insensitive and stored lower-case; section ids keep
// their case. Lines starting with '#' or ';' are comments, indented lines
// continue the previous value, and keys of a `[DEFAULT]` section are visible
// from every other section.
//
// A missing file is not an error: it reads as a file with no sections.
package confstore

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"

	gtaerrors "github.com/grandtrade/gta/internal/errors"
)

const (
	// DefaultSection holds keys inherited by every section. It is the name
	// ini.v1 gives keys above the first header.
	DefaultSection = "DEFAULT"

	// DefaultFakeSection is the header synthesized by ReadWithSyntheticHeader
	// when the caller does not name one.
	DefaultFakeSection = "fake"

	// ConfDirEnv overrides the default configuration directory.
	ConfDirEnv = "GTA_CONF_DIR"
)

var loadOptions = ini.LoadOptions{
	InsensitiveKeys:            true,
	IgnoreInlineComment:        true,
	IgnoreContinuation:         true,
	AllowPythonMultilineValues: true,
	PreserveSurroundedQuote:    true,
	KeyValueDelimiters:         "=:",
}

// DefaultConfDir returns $GTA_CONF_DIR, or ./conf when unset.
func DefaultConfDir() string {
	if dir := os.Getenv(ConfDirEnv); dir != "" {
		return dir
	}
	return "conf"
}

// Read loads relPath from baseDir. An empty baseDir means DefaultConfDir().
func Read(baseDir, relPath string) (*File, error) {
	path := resolvePath(baseDir, relPath)

	data, err := readFile(path)
	if err != nil || data == nil {
		return emptyFile(path), err
	}
	return Parse(path, data)
}

// ReadWithSyntheticHeader is Read for files whose first section has no
// header line: `[fakeSection]` is inserted before the first line. If the file
// also declares fakeSection, the two merge and later keys win.
func ReadWithSyntheticHeader(baseDir, relPath, fakeSection string) (*File, error) {
	if fakeSection == "" {
		fakeSection = DefaultFakeSection
	}
	path := resolvePath(baseDir, relPath)

	data, err := readFile(path)
	if err != nil || data == nil {
		return emptyFile(path), err
	}

	header := []byte("[" + fakeSection + "]\n")
	return Parse(path, append(header, stripBOM(data)...))
}

// Parse parses INI text. name is used in error messages and File.Path.
func Parse(name string, data []byte) (*File, error) {
	data = stripBOM(data)

	if line, ok := firstContentLine(data); ok && !strings.HasPrefix(line, "[") {
		return nil, fmt.Errorf("%w: %s: missing section header before %q", gtaerrors.ErrParse, name, line)
	}

	raw, err := ini.LoadSources(loadOptions, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", gtaerrors.ErrParse, name, err)
	}

	return fromINI(name, raw), nil
}

func resolvePath(baseDir, relPath string) string {
	if filepath.IsAbs(relPath) {
		return relPath
	}
	if baseDir == "" {
		baseDir = DefaultConfDir()
	}
	return filepath.Join(baseDir, relPath)
}

// readFile returns nil data and no error when the file does not exist.
func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return data, nil
}

func stripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
}

func firstContentLine(data []byte) (string, bool) {
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		return line, true
	}
	return "", false
}

func fromINI(name string, raw *ini.File) *File {
	f := emptyFile(name)

	if def, err := raw.GetSection(DefaultSection); err == nil {
		f.defaults = newSection(DefaultSection, def, nil)
	}

	for _, sec := range raw.Sections() {
		if sec.Name() == DefaultSection {
			continue
		}
		s := newSection(sec.Name(), sec, f.defaults)
		f.sections = append(f.sections, s)
		f.index[s.id] = s
	}
	return f
}

// Empty returns a file with no sections.
func Empty(path string) *File {
	return emptyFile(path)
}

func emptyFile(path string) *File {
	return &File{
		path:     path,
		index:    make(map[string]*Section),
		defaults: &Section{id: DefaultSection, values: map[string]string{}},
	}
}
