package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[suite]
name = "nightly"
images = ["build/suite.cbor"]
builtin = false
entry = "check"
skip = ["ConstantValue", "Throw"]

[vm]
max-depth = 64

[log]
verbosity = 2
file = "conform.log"

[results]
database = "/var/lib/jcore/results.db"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Suite.Name != "nightly" {
		t.Errorf("suite name = %q, want nightly", m.Suite.Name)
	}
	if m.Suite.Entry != "check" {
		t.Errorf("suite entry = %q, want check", m.Suite.Entry)
	}
	if m.BuiltinEnabled() {
		t.Error("builtin = true, want false")
	}
	if !m.Skipped("Throw") || m.Skipped("Array") {
		t.Errorf("skip = %v", m.Suite.Skip)
	}
	if m.VM.MaxDepth != 64 {
		t.Errorf("max-depth = %d, want 64", m.VM.MaxDepth)
	}
	if m.Log.Verbosity != 2 {
		t.Errorf("log verbosity = %d, want 2", m.Log.Verbosity)
	}
	if m.LogPath() != filepath.Join(m.Dir, "conform.log") {
		t.Errorf("log path = %q", m.LogPath())
	}
	if m.DatabasePath() != "/var/lib/jcore/results.db" {
		t.Errorf("database path = %q", m.DatabasePath())
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "[suite]\nimages = []\n")

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m.Suite.Name != DefaultName || m.Suite.Entry != DefaultEntry {
		t.Errorf("suite = %+v, want defaults", m.Suite)
	}
	if !m.BuiltinEnabled() {
		t.Error("builtin should default to true")
	}
	if m.VM.MaxDepth != DefaultMaxDepth {
		t.Errorf("max-depth = %d, want %d", m.VM.MaxDepth, DefaultMaxDepth)
	}
	if m.DatabasePath() != filepath.Join(m.Dir, ".jcore", "results.db") {
		t.Errorf("database path = %q", m.DatabasePath())
	}
	if m.LogPath() != "" {
		t.Errorf("log path = %q, want stderr", m.LogPath())
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "[vm]\nmaxdepth = 10\n")
	if _, err := Load(dir); err == nil {
		t.Error("Load should reject vm.maxdepth")
	}

	writeManifest(t, dir, "[suite\n")
	if _, err := Load(dir); err == nil {
		t.Error("Load should reject malformed TOML")
	}
}

func TestFindAndLoad(t *testing.T) {
	dir := t.TempDir()
	subDir := filepath.Join(dir, "a", "b", "c")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}
	writeManifest(t, dir, "[suite]\nname = \"found\"\n")

	m, err := FindAndLoad(subDir)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil {
		t.Fatal("FindAndLoad returned nil")
	}
	if m.Suite.Name != "found" {
		t.Errorf("suite name = %q, want found", m.Suite.Name)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	m, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatalf("FindAndLoad error: %v", err)
	}
	if m != nil {
		t.Error("expected nil manifest when no conform.toml exists")
	}
}

func TestImagePaths(t *testing.T) {
	dir := t.TempDir()
	build := filepath.Join(dir, "build")
	if err := os.MkdirAll(build, 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"b.cbor", "a.cbor", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(build, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}

	m := Default(dir)
	m.Suite.Images = []string{"build/*.cbor"}
	paths, err := m.ImagePaths()
	if err != nil {
		t.Fatalf("ImagePaths: %v", err)
	}
	if len(paths) != 2 || paths[0] != filepath.Join(build, "a.cbor") {
		t.Errorf("paths = %v", paths)
	}

	m.Suite.Images = []string{"missing.cbor"}
	if _, err := m.ImagePaths(); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want os.ErrNotExist", err)
	}
}

func TestWriteThenLoad(t *testing.T) {
	dir := t.TempDir()
	m := Default(dir)
	m.Suite.Skip = []string{"ConstantValue"}
	m.VM.MaxDepth = 100
	if err := Write(dir, m); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.VM.MaxDepth != 100 || !got.Skipped("ConstantValue") || !got.BuiltinEnabled() {
		t.Errorf("loaded = %+v", got)
	}
}
