// Package harness runs conformance units. A unit is a class set; every class
// in it that declares the static entry point is invoked once with a fresh
// interpreter, and the outcome is classified.
package harness

import (
	"errors"
	"time"

	"github.com/chazu/jcore/classset"
	"github.com/chazu/jcore/vm"
	"github.com/google/uuid"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("jcore.harness")

// EntryDescriptor is the descriptor every entry point must have.
const EntryDescriptor = "()I"

// Runner links and runs units.
type Runner struct {
	// Entry is the name of the static entry point.
	Entry string
	// MaxDepth bounds each invocation's call stack; 0 keeps the VM default.
	MaxDepth int
	// Skip maps unit names to the reason they are not run.
	Skip map[string]string
	// Natives are bound in addition to the system library.
	Natives map[string]vm.NativeFunc

	now func() time.Time
}

// NewRunner returns a runner for entry point entry.
func NewRunner(entry string) *Runner {
	return &Runner{Entry: entry, Skip: map[string]string{}, now: time.Now}
}

func (r *Runner) clock() time.Time {
	if r.now == nil {
		return time.Now()
	}
	return r.now()
}

// Run runs each unit in order and returns the report.
func (r *Runner) Run(suite string, units []*classset.Set) *Report {
	rep := &Report{
		RunID:   uuid.New().String(),
		Suite:   suite,
		Started: r.clock().UTC(),
	}
	log.Infof("run %s: %d units", rep.RunID, len(units))
	for _, u := range units {
		rep.Results = append(rep.Results, r.RunUnit(u)...)
	}
	rep.Duration = r.clock().Sub(rep.Started)
	log.Info("run finished", "run", rep.RunID, "summary", rep.Summary())
	return rep
}

// RunUnit links u and invokes each of its entry points.
func (r *Runner) RunUnit(u *classset.Set) []Result {
	if reason, ok := r.Skip[u.Name]; ok {
		log.Infof("%s: skipped (%s)", u.Name, reason)
		return []Result{{Unit: u.Name, Outcome: Skipped, Detail: reason}}
	}

	var opts []vm.Option
	if r.MaxDepth > 0 {
		opts = append(opts, vm.WithMaxDepth(r.MaxDepth))
	}
	if len(r.Natives) > 0 {
		opts = append(opts, vm.WithNatives(r.Natives))
	}
	start := r.clock()
	machine, err := vm.Load(u.Classes, opts...)
	if err != nil {
		log.Warningf("%s: %v", u.Name, err)
		return []Result{{Unit: u.Name, Outcome: Malformed, Detail: err.Error(), Duration: r.clock().Sub(start)}}
	}

	entries := machine.Classes.EntryPoints(r.Entry, EntryDescriptor)
	if len(entries) == 0 {
		log.Warningf("%s: no class declares %s%s", u.Name, r.Entry, EntryDescriptor)
		return []Result{{
			Unit:    u.Name,
			Outcome: Malformed,
			Detail:  vm.ErrNoEntryPoint.Error() + ": " + r.Entry + EntryDescriptor,
		}}
	}

	results := make([]Result, 0, len(entries))
	for _, c := range entries {
		res := r.invoke(machine, u.Name, c.Name)
		if res.Passed() {
			log.Infof("%s %s: %s", u.Name, c.Name, res.Outcome)
		} else {
			log.Warningf("%s %s: %s %s", u.Name, c.Name, res.Outcome, res.describe())
		}
		results = append(results, res)
	}
	return results
}

func (r *Runner) invoke(machine *vm.VM, unit, class string) Result {
	res := Result{Unit: unit, Class: class}
	start := r.clock()
	status, err := machine.RunEntry(class, r.Entry)
	res.Duration = r.clock().Sub(start)

	var uncaught *vm.UncaughtFault
	switch {
	case err == nil && status == 0:
		res.Outcome = Pass
	case err == nil:
		res.Outcome = Fail
		res.Status = status
	case errors.As(err, &uncaught):
		res.Outcome = Uncaught
		res.Fault = uncaught.Type
		res.Message = uncaught.Message
		res.Origin = uncaught.Origin.String()
		if uncaught.Cause != nil {
			res.Detail = "caused by " + uncaught.Cause.Type
		}
	default:
		res.Outcome = Malformed
		res.Detail = err.Error()
	}
	return res
}
