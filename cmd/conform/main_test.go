package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/jcore/classset"
	"github.com/chazu/jcore/harness"
	"github.com/chazu/jcore/manifest"
	"github.com/chazu/jcore/suite"
)

func writeImage(t *testing.T, dir, file string) {
	t.Helper()
	if err := classset.WriteFile(filepath.Join(dir, file), suite.Unit(suite.Array)); err != nil {
		t.Fatal(err)
	}
}

func TestLoadUnitsBuiltinAndImages(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, dir, "extra.cbor")
	m := manifest.Default(dir)
	m.Suite.Images = []string{"*.cbor"}

	units, err := loadUnits(m, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := len(units), len(suite.Units())+1; got != want {
		t.Fatalf("len(units) = %d, want %d", got, want)
	}
	if last := units[len(units)-1]; last.Name != suite.Array {
		t.Errorf("image unit = %s, want %s", last.Name, suite.Array)
	}
}

func TestLoadUnitsSelection(t *testing.T) {
	m := manifest.Default(t.TempDir())
	units, err := loadUnits(m, []string{suite.Throw, suite.Array})
	if err != nil {
		t.Fatal(err)
	}
	if len(units) != 2 || units[0].Name != suite.Throw || units[1].Name != suite.Array {
		t.Errorf("selected %v, want [Throw Array]", units)
	}

	if _, err := loadUnits(m, []string{"Nope"}); err == nil {
		t.Error("expected error for unknown unit")
	}
}

func TestLoadUnitsMissingImage(t *testing.T) {
	m := manifest.Default(t.TempDir())
	m.Suite.Images = []string{"missing.cbor"}
	if _, err := loadUnits(m, nil); err == nil {
		t.Error("expected error for missing image")
	}
}

func TestRunnerFromManifest(t *testing.T) {
	m := manifest.Default(t.TempDir())
	m.Suite.Skip = []string{suite.Throw}
	m.VM.MaxDepth = 64

	r := newRunner(m)
	if r.MaxDepth != 64 {
		t.Errorf("MaxDepth = %d, want 64", r.MaxDepth)
	}
	if _, ok := r.Skip[suite.ConstantValue]; !ok {
		t.Error("ConstantValue should be skipped")
	}
	if reason := r.Skip[suite.Throw]; reason != "skipped by conform.toml" {
		t.Errorf("Skip[Throw] = %q", reason)
	}

	rep := r.Run(m.Suite.Name, suite.Units())
	if !rep.OK() {
		t.Errorf("OK() = false: %s", rep.Summary())
	}
	if n := rep.Count(harness.Skipped); n != 2 {
		t.Errorf("skipped = %d, want 2", n)
	}
}

func TestStoreAndHistory(t *testing.T) {
	db := filepath.Join(t.TempDir(), "results.db")
	var out bytes.Buffer
	if err := showHistory(&out, db, 5); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "No recorded runs") {
		t.Errorf("history = %q", out.String())
	}

	m := manifest.Default(t.TempDir())
	rep := newRunner(m).Run("jcore", []*classset.Set{suite.Unit(suite.Array)})
	if err := store(db, rep); err != nil {
		t.Fatal(err)
	}
	out.Reset()
	if err := showHistory(&out, db, 5); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), rep.RunID) || !strings.Contains(out.String(), "1/1 passed") {
		t.Errorf("history = %q", out.String())
	}
}

func TestDumpUnit(t *testing.T) {
	var out bytes.Buffer
	dumpUnit(&out, suite.Unit(suite.Throw), suite.Natives())
	s := out.String()
	for _, want := range []string{"== Throw", "Throw.finally_()I", "<native>", "finally ->"} {
		if !strings.Contains(s, want) {
			t.Errorf("dump missing %q", want)
		}
	}

	out.Reset()
	dumpUnit(&out, suite.Unit(suite.Throw), nil)
	if !strings.Contains(out.String(), "failed: ") {
		t.Errorf("dump without natives = %q", out.String())
	}
}

func TestWriteBuiltin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "suite.cbor")
	var out bytes.Buffer
	if err := writeBuiltin(&out, path, "jcore"); err != nil {
		t.Fatal(err)
	}
	set, err := classset.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	digest, err := set.Digest()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "sha256 "+digest) {
		t.Errorf("output = %q, want digest %s", out.String(), digest)
	}

	bad := filepath.Join(t.TempDir(), "missing", "suite.cbor")
	if err := writeBuiltin(&out, bad, "jcore"); err == nil {
		t.Error("expected error writing into a missing directory")
	}
}
