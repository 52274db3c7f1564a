// Package mpstat obtains the per-CPU utilization breakdown for a sampling
// interval by running the mpstat utility once per cycle. The mpstat run
// doubles as the monitor's tick: Sample blocks for the whole interval.
package mpstat

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const defaultMpstatPath = "mpstat"

// CPUStat is the utilization breakdown of one CPU over the sampled
// interval, in percent.
type CPUStat struct {
	CPU    int
	Usr    float64
	Nice   float64
	Sys    float64
	IOWait float64
	IRQ    float64
	Soft   float64
	Steal  float64
	Guest  float64
	Idle   float64
}

// Sampler runs mpstat. The zero value looks the utility up on PATH.
type Sampler struct {
	Path string
}

// Sample runs one mpstat report over the given interval and returns one
// CPUStat per CPU. It blocks for at least the interval; intervals below one
// second round up to mpstat's one-second granularity.
func (s *Sampler) Sample(ctx context.Context, interval time.Duration) ([]CPUStat, error) {
	path := s.Path
	if path == "" {
		path = defaultMpstatPath
	}
	secs := int(interval / time.Second)
	if secs < 1 {
		secs = 1
	}
	cmd := exec.CommandContext(ctx, path, "-P", "ALL", strconv.Itoa(secs), "1")
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("cannot run %s: %w", path, err)
	}
	stats, parseErr := Parse(stdout)
	if err := cmd.Wait(); err != nil {
		return nil, fmt.Errorf("%s failed: %w", path, err)
	}
	if parseErr != nil {
		return nil, parseErr
	}
	return stats, nil
}

// Parse reads mpstat report output, one line per CPU with the fields
//
//	time ampm cpu %usr %nice %sys %iowait %irq %soft %steal %guest %idle
//
// skipping header, “all”, blank and “Average” lines.
func Parse(r io.Reader) ([]CPUStat, error) {
	var stats []CPUStat
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		stat, ok, err := parseLine(scanner.Text())
		if err != nil {
			return nil, err
		}
		if ok {
			stats = append(stats, stat)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return stats, nil
}

const lineFields = 12

func parseLine(line string) (CPUStat, bool, error) {
	fields := strings.Fields(line)
	if len(fields) < lineFields {
		return CPUStat{}, false, nil
	}
	if fields[0] == "Average:" {
		return CPUStat{}, false, nil
	}
	cpu, err := strconv.Atoi(fields[2])
	if err != nil {
		// header line or the "all" aggregate
		return CPUStat{}, false, nil
	}
	values := make([]float64, 0, lineFields-3)
	for _, f := range fields[3:lineFields] {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return CPUStat{}, false, fmt.Errorf("bad utilization field %q in %q: %w", f, line, err)
		}
		values = append(values, v)
	}
	return CPUStat{
		CPU:    cpu,
		Usr:    values[0],
		Nice:   values[1],
		Sys:    values[2],
		IOWait: values[3],
		IRQ:    values[4],
		Soft:   values[5],
		Steal:  values[6],
		Guest:  values[7],
		Idle:   values[8],
	}, true, nil
}
