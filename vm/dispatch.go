package vm

import (
	"fmt"
	"sort"
	"unicode/utf16"
)

// SwitchTable is a linked multi-way branch. Lookups return an absolute
// target offset, or false when neither a case nor a default applies and
// execution continues with the next instruction.
type SwitchTable struct {
	Kind    SwitchKind
	Default int

	low     int32
	dense   []int
	keys    []int32
	targets []int
	buckets map[int32][]stringCase
}

type stringCase struct {
	key    string
	target int
}

func newSwitchTable(def SwitchDef) (*SwitchTable, error) {
	st := &SwitchTable{Kind: def.Kind, Default: def.Default}
	switch def.Kind {
	case SwitchDense:
		st.low = def.Low
		st.dense = def.Targets
	case SwitchSparse:
		if len(def.Keys) != len(def.Targets) {
			return nil, fmt.Errorf("%d keys for %d targets", len(def.Keys), len(def.Targets))
		}
		for i := 1; i < len(def.Keys); i++ {
			if def.Keys[i-1] >= def.Keys[i] {
				return nil, fmt.Errorf("keys not strictly ascending at %d", i)
			}
		}
		st.keys = def.Keys
		st.targets = def.Targets
	case SwitchString:
		if len(def.Strings) != len(def.Targets) {
			return nil, fmt.Errorf("%d strings for %d targets", len(def.Strings), len(def.Targets))
		}
		st.buckets = make(map[int32][]stringCase)
		for i, s := range def.Strings {
			h := StringHash(s)
			st.buckets[h] = append(st.buckets[h], stringCase{key: s, target: def.Targets[i]})
		}
	default:
		return nil, fmt.Errorf("unknown switch kind %d", def.Kind)
	}
	return st, nil
}

// allTargets lists every target, for validation.
func (st *SwitchTable) allTargets() []int {
	out := []int{}
	if st.Default >= 0 {
		out = append(out, st.Default)
	}
	for _, t := range st.dense {
		if t >= 0 {
			out = append(out, t)
		}
	}
	out = append(out, st.targets...)
	for _, cases := range st.buckets {
		for _, c := range cases {
			out = append(out, c.target)
		}
	}
	return out
}

func (st *SwitchTable) fallback() (int, bool) {
	if st.Default >= 0 {
		return st.Default, true
	}
	return 0, false
}

// LookupInt dispatches an integer key through a dense or sparse table.
func (st *SwitchTable) LookupInt(key int32) (int, bool) {
	switch st.Kind {
	case SwitchDense:
		idx := int64(key) - int64(st.low)
		if idx >= 0 && idx < int64(len(st.dense)) && st.dense[idx] >= 0 {
			return st.dense[idx], true
		}
	case SwitchSparse:
		i := sort.Search(len(st.keys), func(i int) bool { return st.keys[i] >= key })
		if i < len(st.keys) && st.keys[i] == key {
			return st.targets[i], true
		}
	}
	return st.fallback()
}

// LookupString dispatches a string key: hash to a bucket, then compare by
// content in declaration order.
func (st *SwitchTable) LookupString(key string) (int, bool) {
	for _, c := range st.buckets[StringHash(key)] {
		if c.key == key {
			return c.target, true
		}
	}
	return st.fallback()
}

// StringHash is the platform string hash: s[0]*31^(n-1) + ... + s[n-1]
// over UTF-16 code units with 32-bit wraparound.
func StringHash(s string) int32 {
	var h int32
	for _, u := range utf16.Encode([]rune(s)) {
		h = 31*h + int32(u)
	}
	return h
}
