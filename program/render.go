package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ik2sb/irqtop/irqstats"
	"github.com/ik2sb/irqtop/mpstat"
)

// cycle is the render-ready result of one monitoring cycle: the changed
// counter rows with their affinity annotations, the tracked summaries, and
// the CPU utilization sampled over the interval following the collection.
type cycle struct {
	stats      []mpstat.CPUStat
	rows       []rowView
	summaries  []irqstats.Summary
	onlineCPUs int
	rate       float64       // hardware interrupts per second over the cycle
	took       time.Duration // collection latency, excluding the sampling wait
}

type rowView struct {
	name     string
	deltas   []int64
	detail   string
	affinity string // empty for symbolic (non-vector) rows
}

// cpuSampler obtains the per-CPU utilization breakdown of one sampling
// interval. Sampling blocks for the whole interval and so paces the
// monitoring loop.
type cpuSampler interface {
	Sample(ctx context.Context, interval time.Duration) ([]mpstat.CPUStat, error)
}

// runCycle performs one full monitoring cycle: re-collecting both counter
// tables and deriving the render state, then sampling CPU utilization, which
// blocks for the interval and is the program's tick. Counter changes landing
// during the sampling wait belong to the next cycle's frame.
func runCycle(ctx context.Context, monitor *irqstats.Monitor, sampler cpuSampler, interval time.Duration) (cycle, error) {
	start := time.Now()
	if err := monitor.Collect(false); err != nil {
		return cycle{}, err
	}
	c := cycle{
		onlineCPUs: monitor.OnlineCPUs,
		summaries:  monitor.Summaries(interval),
	}
	for _, row := range monitor.Changed() {
		view := rowView{
			name:   row.Name,
			deltas: append([]int64(nil), row.Delta...),
			detail: strings.Join(row.Detail, " "),
		}
		if irqstats.IsVector(row.Name) {
			a := monitor.Affinity(row.Name)
			view.affinity = fmt.Sprintf("hint=%s,aff=%s", a.Hint, a.List)
		}
		c.rows = append(c.rows, view)
	}
	if secs := interval.Seconds(); secs > 0 {
		var total int64
		for _, row := range monitor.Hard {
			for _, d := range row.Delta {
				total += d
			}
		}
		c.rate = float64(total) / secs
	}
	c.took = time.Since(start)
	stats, err := sampler.Sample(ctx, interval)
	if err != nil {
		return cycle{}, err
	}
	c.stats = stats
	return c, nil
}

// runPlain is the line-oriented presenter: warm up once, then clear the
// screen and print each cycle until the context is cancelled.
func runPlain(ctx context.Context, w io.Writer, monitor *irqstats.Monitor, sampler cpuSampler, interval time.Duration) error {
	if err := monitor.Collect(true); err != nil {
		return err
	}
	for {
		c, err := runCycle(ctx, monitor, sampler, interval)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		fmt.Fprint(w, "\x1b[H\x1b[2J")
		writeCycle(w, c)
		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}

func writeCycle(w io.Writer, c cycle) {
	for _, s := range c.stats {
		fmt.Fprintln(w, formatCPUStat(s))
	}
	fmt.Fprintln(w)
	for _, r := range c.rows {
		fmt.Fprintln(w, formatRow(r))
	}
	if len(c.summaries) > 0 {
		fmt.Fprintln(w)
		for _, s := range c.summaries {
			fmt.Fprintln(w, formatSummary(s))
		}
	}
}

func formatCPUStat(s mpstat.CPUStat) string {
	return fmt.Sprintf(
		"cpu%-3d usr %5.1f  nice %5.1f  sys %5.1f  iowait %5.1f  irq %5.1f  soft %5.1f  steal %5.1f  guest %5.1f  idle %5.1f",
		s.CPU, s.Usr, s.Nice, s.Sys, s.IOWait, s.IRQ, s.Soft, s.Steal, s.Guest, s.Idle)
}

func formatRow(r rowView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%8s:", r.name)
	for _, d := range r.deltas {
		fmt.Fprintf(&b, " %10d", d)
	}
	if r.detail != "" {
		b.WriteString("  ")
		b.WriteString(r.detail)
	}
	if r.affinity != "" {
		b.WriteString("  ")
		b.WriteString(r.affinity)
	}
	return b.String()
}

func formatSummary(s irqstats.Summary) string {
	return fmt.Sprintf("%s: total=%d avg/cpu=%.1f total/s=%.1f avg/s/cpu=%.1f",
		s.Pattern, s.Total, s.PerCPU, s.PerSecond, s.PerSecondPerCPU)
}
