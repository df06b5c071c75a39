// conform runs the jcore conformance suite: the built-in units plus any
// class-set images named by conform.toml.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/chazu/jcore/classset"
	"github.com/chazu/jcore/harness"
	"github.com/chazu/jcore/manifest"
	"github.com/chazu/jcore/results"
	"github.com/chazu/jcore/suite"
	"github.com/chazu/jcore/vm"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("jcore.conform")

func main() {
	dir := flag.String("C", ".", "Directory to search upward from for conform.toml")
	noBuiltin := flag.Bool("no-builtin", false, "Skip the built-in units")
	verbosity := flag.Int("v", 0, "Log verbosity, overriding the manifest (-1 warning, 1 info, 2 debug)")
	format := flag.String("format", "text", "Report format: text or yaml")
	noStore := flag.Bool("no-store", false, "Do not record the run in the results database")
	dbPath := flag.String("db", "", "Results database (overrides the manifest)")
	history := flag.Int("history", 0, "List the N most recent runs and exit")
	dump := flag.Bool("dump", false, "Disassemble the units instead of running them")
	writeImage := flag.String("write", "", "Write the built-in units to a class-set image and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: conform [options] [units...]\n\n")
		fmt.Fprintf(os.Stderr, "Runs the conformance units and reports each entry point's outcome.\n")
		fmt.Fprintf(os.Stderr, "Naming units restricts the run to them.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  conform                       # Run everything conform.toml names\n")
		fmt.Fprintf(os.Stderr, "  conform Throw Array           # Run two units\n")
		fmt.Fprintf(os.Stderr, "  conform -format yaml -no-store\n")
		fmt.Fprintf(os.Stderr, "  conform -dump Throw           # Disassemble a unit\n")
		fmt.Fprintf(os.Stderr, "  conform -write suite.cbor     # Write the built-in units as an image\n")
		fmt.Fprintf(os.Stderr, "  conform -history 10           # Show recent runs\n")
	}
	flag.Parse()

	m, err := manifest.FindAndLoad(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	if m == nil {
		m = manifest.Default(*dir)
	}
	if *noBuiltin {
		builtin := false
		m.Suite.Builtin = &builtin
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "v" {
			m.Log.Verbosity = *verbosity
		}
	})
	if *dbPath != "" {
		m.Results.Database = *dbPath
	}
	configureLogging(m)

	if *writeImage != "" {
		if err := writeBuiltin(os.Stdout, *writeImage, m.Suite.Name); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(2)
		}
		os.Exit(0)
	}

	if *history > 0 {
		if err := showHistory(os.Stdout, m.DatabasePath(), *history); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(2)
		}
		os.Exit(0)
	}

	units, err := loadUnits(m, flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if *dump {
		for _, u := range units {
			dumpUnit(os.Stdout, u, suite.Natives())
		}
		os.Exit(0)
	}

	rep := newRunner(m).Run(m.Suite.Name, units)
	if err := rep.Write(os.Stdout, *format); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if !*noStore {
		if err := store(m.DatabasePath(), rep); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: run not recorded: %v\n", err)
		}
	}

	if !rep.OK() {
		os.Exit(1)
	}
}

func configureLogging(m *manifest.Manifest) {
	var path *string
	if p := m.LogPath(); p != "" {
		path = &p
	}
	commonlog.Configure(m.Log.Verbosity, path)
}

// loadUnits collects the built-in units and the manifest's images, keeping
// only the named units when names is non-empty.
func loadUnits(m *manifest.Manifest, names []string) ([]*classset.Set, error) {
	var units []*classset.Set
	if m.BuiltinEnabled() {
		units = append(units, suite.Units()...)
	}

	paths, err := m.ImagePaths()
	if err != nil {
		return nil, err
	}
	for _, p := range paths {
		set, err := classset.ReadFile(p)
		if err != nil {
			return nil, err
		}
		log.Infof("loaded %s: %d classes", p, len(set.Classes))
		units = append(units, set)
	}

	if len(names) == 0 {
		return units, nil
	}
	byName := make(map[string]*classset.Set, len(units))
	for _, u := range units {
		byName[u.Name] = u
	}
	selected := make([]*classset.Set, 0, len(names))
	for _, name := range names {
		u, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("no unit named %q", name)
		}
		selected = append(selected, u)
	}
	return selected, nil
}

// newRunner configures a runner from m. Units the manifest skips, and
// built-in units that are not modelled, are reported as skipped.
func newRunner(m *manifest.Manifest) *harness.Runner {
	r := harness.NewRunner(m.Suite.Entry)
	r.MaxDepth = m.VM.MaxDepth
	r.Natives = suite.Natives()
	if m.BuiltinEnabled() {
		for name, reason := range suite.Skipped {
			r.Skip[name] = reason
		}
	}
	for _, name := range m.Suite.Skip {
		r.Skip[name] = "skipped by " + manifest.FileName
	}
	return r
}

// writeBuiltin writes the built-in units as one image named name.
func writeBuiltin(w io.Writer, path, name string) error {
	set := classset.Merge(name, suite.Units()...)
	digest, err := set.Digest()
	if err != nil {
		return err
	}
	if err := classset.WriteFile(path, set); err != nil {
		return err
	}
	fmt.Fprintf(w, "Wrote %d classes to %s (sha256 %s)\n", len(set.Classes), path, digest)
	return nil
}

func store(path string, rep *harness.Report) error {
	s, err := results.Open(path)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.Save(rep)
}

func showHistory(w io.Writer, path string, limit int) error {
	s, err := results.Open(path)
	if err != nil {
		return err
	}
	defer s.Close()

	runs, err := s.Recent(limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No recorded runs")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, run := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d passed\t%s\n",
			run.Started.Local().Format(time.DateTime), run.RunID, run.Suite,
			run.Passed, run.Total, run.Duration.Round(time.Microsecond))
	}
	return tw.Flush()
}

// dumpUnit disassembles every method of u. Units that fail to link are
// dumped from their raw code.
func dumpUnit(w io.Writer, u *classset.Set, natives map[string]vm.NativeFunc) {
	fmt.Fprintf(w, "== %s\n", u.Name)
	machine, err := vm.Load(u.Classes, vm.WithNatives(natives))
	if err != nil {
		var le *vm.LinkError
		if errors.As(err, &le) {
			fmt.Fprintf(w, "link failed: %v\n", le)
		} else {
			fmt.Fprintf(w, "load failed: %v\n", err)
		}
		for _, c := range u.Classes {
			for _, md := range c.Methods {
				fmt.Fprintf(w, "%s.%s%s\n", c.Name, md.Name, md.Descriptor)
				fmt.Fprintln(w, vm.Disassemble(md.Code))
			}
		}
		return
	}
	for _, c := range u.Classes {
		for _, meth := range machine.Classes.Lookup(c.Name).Methods() {
			fmt.Fprint(w, meth.Disassemble())
		}
	}
}
