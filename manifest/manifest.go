// Package manifest handles conform.toml run configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the manifest file.
const FileName = "conform.toml"

// Manifest represents a conform.toml run configuration.
type Manifest struct {
	Suite   Suite   `toml:"suite"`
	VM      VM      `toml:"vm"`
	Log     Log     `toml:"log"`
	Results Results `toml:"results"`

	// Dir is the directory containing the conform.toml file (set at load time).
	Dir string `toml:"-"`
}

// Suite selects the conformance units to run.
type Suite struct {
	Name    string   `toml:"name"`
	Images  []string `toml:"images"`
	Builtin *bool    `toml:"builtin"`
	Entry   string   `toml:"entry"`
	Skip    []string `toml:"skip"`
}

// VM configures the interpreter.
type VM struct {
	MaxDepth int `toml:"max-depth"`
}

// Log configures the commonlog backend.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Results configures the run history store.
type Results struct {
	Database string `toml:"database"`
}

// Defaults
const (
	DefaultName     = "jcore"
	DefaultEntry    = "vmTest"
	DefaultMaxDepth = 512
	DefaultDatabase = ".jcore/results.db"
)

// Default returns the manifest used when no conform.toml exists.
func Default(dir string) *Manifest {
	m := &Manifest{Dir: dir}
	m.applyDefaults()
	return m
}

func (m *Manifest) applyDefaults() {
	if m.Suite.Name == "" {
		m.Suite.Name = DefaultName
	}
	if m.Suite.Entry == "" {
		m.Suite.Entry = DefaultEntry
	}
	if m.Suite.Builtin == nil {
		builtin := true
		m.Suite.Builtin = &builtin
	}
	if m.VM.MaxDepth <= 0 {
		m.VM.MaxDepth = DefaultMaxDepth
	}
	if m.Results.Database == "" {
		m.Results.Database = DefaultDatabase
	}
}

// Load parses a conform.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %s", path, undecoded[0])
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	m.applyDefaults()
	return &m, nil
}

// FindAndLoad walks up from startDir to find a conform.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Write encodes m as dir/conform.toml.
func Write(dir string, m *Manifest) error {
	path := filepath.Join(dir, FileName)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create %s: %w", path, err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(m); err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	return nil
}

// BuiltinEnabled reports whether the built-in units run.
func (m *Manifest) BuiltinEnabled() bool {
	return m.Suite.Builtin == nil || *m.Suite.Builtin
}

// Skipped reports whether the unit named name is listed in skip.
func (m *Manifest) Skipped(name string) bool {
	for _, s := range m.Suite.Skip {
		if s == name {
			return true
		}
	}
	return false
}

// ImagePaths expands the configured images against Dir. Entries may be
// glob patterns; a pattern that matches nothing is an error.
func (m *Manifest) ImagePaths() ([]string, error) {
	var paths []string
	for _, img := range m.Suite.Images {
		p := m.resolve(img)
		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, fmt.Errorf("bad image pattern %q: %w", img, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("image %s: %w", p, os.ErrNotExist)
		}
		sort.Strings(matches)
		paths = append(paths, matches...)
	}
	return paths, nil
}

// DatabasePath returns the absolute path of the results database.
func (m *Manifest) DatabasePath() string {
	return m.resolve(m.Results.Database)
}

// LogPath returns the absolute log file path, or "" for stderr.
func (m *Manifest) LogPath() string {
	if m.Log.File == "" {
		return ""
	}
	return m.resolve(m.Log.File)
}

func (m *Manifest) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}
