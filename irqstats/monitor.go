package irqstats

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Default kernel counter source locations.
const (
	DefaultInterruptsPath = "/proc/interrupts"
	DefaultSoftirqsPath   = "/proc/softirqs"
	DefaultIrqDir         = "/proc/irq"
)

// Options configures a Monitor. The zero value selects the host procfs and
// empty pattern lists.
type Options struct {
	Fs             afero.Fs
	InterruptsPath string
	SoftirqsPath   string
	IrqDir         string

	// Exclude lists patterns whose rows never count as “ever changed”.
	Exclude []Matcher
	// Track lists patterns whose rows' deltas are summed into running
	// totals, one total per pattern.
	Track []Matcher
}

// Monitor is the owned state of one monitoring run: both counter tables,
// the tracked running totals and the online-CPU count. Create one per run
// with New, drive it with Collect once per cycle from a single goroutine.
type Monitor struct {
	fs             afero.Fs
	interruptsPath string
	softirqsPath   string
	irqDir         string
	exclude        []Matcher
	track          []Matcher

	// Hard and Soft are the hardware and soft interrupt tables.
	Hard Table
	Soft Table

	// OnlineCPUs is the column count of the hardware source header,
	// discovered on the first collection and fixed for the process
	// lifetime. The soft source may carry more columns; extras are ignored.
	OnlineCPUs int

	totals map[Matcher]int64
}

// New returns a Monitor for the given options, filling in the host procfs
// defaults as required.
func New(opts Options) *Monitor {
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	interruptsPath := opts.InterruptsPath
	if interruptsPath == "" {
		interruptsPath = DefaultInterruptsPath
	}
	softirqsPath := opts.SoftirqsPath
	if softirqsPath == "" {
		softirqsPath = DefaultSoftirqsPath
	}
	irqDir := opts.IrqDir
	if irqDir == "" {
		irqDir = DefaultIrqDir
	}
	return &Monitor{
		fs:             fs,
		interruptsPath: interruptsPath,
		softirqsPath:   softirqsPath,
		irqDir:         irqDir,
		exclude:        opts.Exclude,
		track:          opts.Track,
		Hard:           Table{},
		Soft:           Table{},
		totals:         map[Matcher]int64{},
	}
}

// Collect re-reads both counter sources, updating per-CPU deltas, change
// flags and tracked totals. The first (warm-up) collection only establishes
// baselines: its deltas never mark rows as changed, but they do feed the
// tracked totals. Any unreadable source or malformed counter line is an
// error; the monitor cannot continue without its primary data.
func (m *Monitor) Collect(first bool) error {
	if err := m.collectTable(m.interruptsPath, m.Hard, first, true); err != nil {
		return err
	}
	return m.collectTable(m.softirqsPath, m.Soft, first, false)
}

func (m *Monitor) collectTable(path string, t Table, first, primary bool) error {
	log.Debugf("reading counter source %s", path)
	b, err := afero.ReadFile(m.fs, path)
	if err != nil {
		return fmt.Errorf("cannot read counter source: %w", err)
	}
	lines := strings.Split(string(b), "\n")
	if primary && m.OnlineCPUs == 0 {
		m.OnlineCPUs = len(strings.Fields(lines[0]))
	}
	n := m.OnlineCPUs
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		name, rest, found := strings.Cut(line, ":")
		if !found {
			return fmt.Errorf("malformed counter line %q in %s", line, path)
		}
		name = strings.TrimSpace(name)
		fields := strings.Fields(rest)
		if len(fields) < n {
			return fmt.Errorf("counter line %q in %s has %d of %d expected counters",
				name, path, len(fields), n)
		}
		counts := make([]uint64, n)
		for i := range counts {
			v, err := strconv.ParseUint(fields[i], 10, 64)
			if err != nil {
				return fmt.Errorf("counter line %q in %s: bad counter %q: %w",
					name, path, fields[i], err)
			}
			counts[i] = v
		}
		detail := fields[n:]
		if !primary {
			// The soft source may expose columns for offline CPUs beyond
			// the online count; such extra counters are not description
			// tokens and get dropped.
			for len(detail) > 0 {
				if _, err := strconv.ParseUint(detail[0], 10, 64); err != nil {
					break
				}
				detail = detail[1:]
			}
		}
		m.updateRow(t, name, line, counts, detail, first)
	}
	return nil
}

func (m *Monitor) updateRow(t Table, name, line string, counts []uint64, detail []string, first bool) {
	row := t[name]
	if row == nil {
		row = &Row{
			Name:    name,
			Current: make([]uint64, len(counts)),
			Delta:   make([]int64, len(counts)),
		}
		t[name] = row
	}
	changed := false
	var sum int64
	for i, count := range counts {
		// delta against the previous cycle, before the new value replaces it
		row.Delta[i] = int64(count) - int64(row.Current[i])
		row.Current[i] = count
		if row.Delta[i] != 0 {
			changed = true
		}
		sum += row.Delta[i]
	}
	row.Detail = append(row.Detail[:0], detail...)
	if changed && !first && !matchAny(m.exclude, line) {
		row.EverChanged = true
	}
	// Tracked totals accumulate on every cycle, warm-up included, and
	// independently of the exclusion list. One row may feed several totals.
	for _, pattern := range m.track {
		if pattern.Match(line) {
			m.totals[pattern] += sum
		}
	}
}

// Changed returns the rows of both tables that have ever changed, sorted by
// row name across tables.
func (m *Monitor) Changed() []*Row {
	rows := make([]*Row, 0, len(m.Hard)+len(m.Soft))
	for _, t := range []Table{m.Hard, m.Soft} {
		for _, row := range t {
			if row.EverChanged {
				rows = append(rows, row)
			}
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return rows
}

// Total returns the running total accumulated for a tracked pattern.
func (m *Monitor) Total(pattern Matcher) int64 {
	return m.totals[pattern]
}

// Summary is the derived reporting state of one tracked pattern.
type Summary struct {
	Pattern         Matcher
	Total           int64
	PerCPU          float64
	PerSecond       float64
	PerSecondPerCPU float64
}

// Summaries derives the per-pattern summary values for the given sampling
// interval, in the order the tracked patterns were configured. Zero online
// CPUs or a zero interval yield zero values instead of dividing by zero.
func (m *Monitor) Summaries(interval time.Duration) []Summary {
	secs := interval.Seconds()
	summaries := make([]Summary, 0, len(m.track))
	for _, pattern := range m.track {
		total := m.totals[pattern]
		s := Summary{Pattern: pattern, Total: total}
		if m.OnlineCPUs > 0 {
			s.PerCPU = float64(total) / float64(m.OnlineCPUs)
		}
		if secs > 0 {
			s.PerSecond = float64(total) / secs
			if m.OnlineCPUs > 0 {
				s.PerSecondPerCPU = s.PerSecond / float64(m.OnlineCPUs)
			}
		}
		summaries = append(summaries, s)
	}
	return summaries
}
