/*
Package irqstats tracks per-CPU deltas of the kernel's hardware and soft
interrupt counter tables across collection cycles.

A [Monitor] owns all mutable state: one [Table] per counter source, the
running tracked totals and the online-CPU count discovered from the hardware
source header. It is intended to be driven by exactly one goroutine; there is
no internal locking.
*/
package irqstats

import (
	"sort"
	"strings"
)

// Row is the state of one counter line: the most recently sampled per-CPU
// counters, the per-CPU deltas of the last cycle, and the trailing
// description tokens kept verbatim from the source line.
type Row struct {
	Name    string
	Current []uint64
	Delta   []int64
	Detail  []string

	// EverChanged records that some per-CPU delta of this row was non-zero
	// on a cycle after warm-up, unless the row's line matched an exclusion
	// pattern. Once set it stays set for the process lifetime.
	EverChanged bool
}

// Table maps row names to their counter state. Rows are created the first
// time a name shows up in the source and are never removed.
type Table map[string]*Row

// Names returns the row names in lexicographic order.
func (t Table) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Matcher is a single substring predicate evaluated against a raw counter
// source line. Exclusion and tracked-total patterns are plain ordered lists
// of Matchers; any match triggers.
type Matcher string

// Match reports whether the raw source line contains this pattern.
func (m Matcher) Match(line string) bool {
	return strings.Contains(line, string(m))
}

// Matchers converts plain pattern strings into Matchers, dropping empties.
func Matchers(patterns []string) []Matcher {
	ms := make([]Matcher, 0, len(patterns))
	for _, p := range patterns {
		if p == "" {
			continue
		}
		ms = append(ms, Matcher(p))
	}
	return ms
}

func matchAny(ms []Matcher, line string) bool {
	for _, m := range ms {
		if m.Match(line) {
			return true
		}
	}
	return false
}

// IsVector reports whether a row name is a purely numeric hardware interrupt
// vector number. Only such rows carry per-vector affinity files.
func IsVector(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
