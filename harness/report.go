package harness

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"
)

// Outcome classifies one entry-point invocation.
type Outcome uint8

const (
	Pass Outcome = iota
	Fail
	Uncaught
	Malformed
	Skipped
)

var outcomeNames = [...]string{
	Pass:      "pass",
	Fail:      "fail",
	Uncaught:  "uncaught",
	Malformed: "malformed",
	Skipped:   "skipped",
}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return fmt.Sprintf("outcome(%d)", uint8(o))
}

// ParseOutcome is the inverse of Outcome.String.
func ParseOutcome(s string) (Outcome, error) {
	for i, name := range outcomeNames {
		if name == s {
			return Outcome(i), nil
		}
	}
	return 0, fmt.Errorf("unknown outcome %q", s)
}

// MarshalYAML implements yaml.Marshaler.
func (o Outcome) MarshalYAML() (interface{}, error) {
	return o.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (o *Outcome) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := ParseOutcome(node.Value)
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// Result is the outcome of one class's entry point, or of a whole unit
// when the unit was skipped or failed to link.
type Result struct {
	Unit     string        `yaml:"unit"`
	Class    string        `yaml:"class,omitempty"`
	Outcome  Outcome       `yaml:"outcome"`
	Status   int32         `yaml:"status,omitempty"`
	Fault    string        `yaml:"fault,omitempty"`
	Message  string        `yaml:"message,omitempty"`
	Origin   string        `yaml:"origin,omitempty"`
	Detail   string        `yaml:"detail,omitempty"`
	Duration time.Duration `yaml:"duration"`
}

// Passed reports whether the result counts as success. Skipped units do.
func (r Result) Passed() bool {
	return r.Outcome == Pass || r.Outcome == Skipped
}

// Report is the record of one run.
type Report struct {
	RunID    string        `yaml:"run-id"`
	Suite    string        `yaml:"suite"`
	Started  time.Time     `yaml:"started"`
	Duration time.Duration `yaml:"duration"`
	Results  []Result      `yaml:"results"`
}

// Count returns the number of results with outcome o.
func (r *Report) Count(o Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// OK reports whether every result passed or was skipped.
func (r *Report) OK() bool {
	for _, res := range r.Results {
		if !res.Passed() {
			return false
		}
	}
	return true
}

// Summary returns the one-line outcome tally.
func (r *Report) Summary() string {
	parts := make([]string, 0, len(outcomeNames))
	for i := range outcomeNames {
		o := Outcome(i)
		parts = append(parts, fmt.Sprintf("%d %s", r.Count(o), o))
	}
	return strings.Join(parts, ", ")
}

// WriteText renders the report as aligned columns followed by the tally.
func (r *Report) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "run %s (%s)\n", r.RunID, r.Suite)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, res := range r.Results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", strings.ToUpper(res.Outcome.String()), res.Unit, res.Class, res.describe())
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, r.Summary())
	return err
}

func (res Result) describe() string {
	switch res.Outcome {
	case Fail:
		return fmt.Sprintf("status %d", res.Status)
	case Uncaught:
		s := res.Fault
		if res.Message != "" {
			s += ": " + res.Message
		}
		s += " at " + res.Origin
		if res.Detail != "" {
			s += "; " + res.Detail
		}
		return s
	}
	return res.Detail
}

// WriteYAML renders the report as a YAML document.
func (r *Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return enc.Close()
}

// ReadYAML parses a report written by WriteYAML.
func ReadYAML(rd io.Reader) (*Report, error) {
	var r Report
	if err := yaml.NewDecoder(rd).Decode(&r); err != nil {
		return nil, fmt.Errorf("decoding report: %w", err)
	}
	return &r, nil
}

// Write renders the report in format "text" or "yaml".
func (r *Report) Write(w io.Writer, format string) error {
	switch format {
	case "", "text":
		return r.WriteText(w)
	case "yaml":
		return r.WriteYAML(w)
	}
	return fmt.Errorf("unknown report format %q", format)
}
