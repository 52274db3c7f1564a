package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	tui "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/term"
	log "github.com/sirupsen/logrus"

	"github.com/ik2sb/irqtop/irqstats"
	"github.com/ik2sb/irqtop/mpstat"
)

const (
	appName    = "irqtop"
	appVersion = "0.4.0"
)

type Config struct {
	// sampling
	Interval   time.Duration
	ProcDir    string
	MpstatPath string

	// classification
	Track   string
	Exclude string

	// render
	Plain     bool
	AltScreen bool

	Debug bool
}

var config = Config{
	Interval:  time.Second,
	ProcDir:   "/proc",
	AltScreen: true,
}

func main() {
	var showVersion bool
	flag.BoolVar(&showVersion, "V", false, "print name and version, then exit")
	flag.BoolVar(&showVersion, "version", false, "print name and version, then exit")
	flag.StringVar(&config.ProcDir, "proc", config.ProcDir, "procfs mount to read the counter sources from")
	flag.StringVar(&config.MpstatPath, "mpstat", config.MpstatPath, "mpstat binary for per-CPU utilization (default: found on PATH)")
	flag.StringVar(&config.Track, "track", config.Track, "comma-separated patterns whose matching rows' deltas feed running totals")
	flag.StringVar(&config.Exclude, "exclude", config.Exclude, "comma-separated patterns whose rows never count as changed")
	flag.BoolVar(&config.Plain, "plain", config.Plain, "line-oriented output instead of the TUI (implied when stdout is not a terminal)")
	flag.BoolVar(&config.AltScreen, "alt-screen", config.AltScreen, "use the terminal alternate screen buffer in TUI mode")
	flag.BoolVar(&config.Debug, "debug", config.Debug, "enable debug logging")
	flag.Usage = usage
	flag.Parse()

	if showVersion {
		fmt.Printf("%s %s\n", appName, appVersion)
		return
	}
	interval, err := intervalArg(flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		flag.Usage()
		os.Exit(2)
	}
	config.Interval = interval
	if config.Debug {
		log.SetLevel(log.DebugLevel)
	}

	monitor := irqstats.New(irqstats.Options{
		InterruptsPath: filepath.Join(config.ProcDir, "interrupts"),
		SoftirqsPath:   filepath.Join(config.ProcDir, "softirqs"),
		IrqDir:         filepath.Join(config.ProcDir, "irq"),
		Exclude:        irqstats.Matchers(splitPatterns(config.Exclude)),
		Track:          irqstats.Matchers(splitPatterns(config.Track)),
	})
	sampler := &mpstat.Sampler{Path: config.MpstatPath}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if config.Plain || !term.IsTerminal(os.Stdout.Fd()) {
		if err := runPlain(ctx, os.Stdout, monitor, sampler, config.Interval); err != nil {
			log.Fatal(err)
		}
		return
	}

	m := newModel(monitor, sampler, config.Interval)
	opts := []tui.ProgramOption{tui.WithContext(ctx), tui.WithInputTTY()}
	if config.AltScreen {
		opts = append(opts, tui.WithAltScreen())
	}
	final, err := tui.NewProgram(m, opts...).Run()
	if err != nil && ctx.Err() == nil {
		log.Fatal(err)
	}
	if m, ok := final.(*model); ok && m.err != nil {
		log.Fatal(m.err)
	}
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "usage: %s [options] [interval]\n\n", appName)
	fmt.Fprintf(out, "Monitors kernel interrupt deltas and per-CPU utilization, refreshing\nevery <interval> seconds (default 1).\n\nOptions:\n")
	flag.PrintDefaults()
}

// intervalArg validates the optional positional interval argument: at most
// one all-digit seconds value. Anything else is rejected rather than
// silently ignored.
func intervalArg(args []string) (time.Duration, error) {
	switch len(args) {
	case 0:
		return config.Interval, nil
	case 1:
		secs, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil || secs == 0 {
			return 0, fmt.Errorf("invalid interval %q: expected a whole number of seconds", args[0])
		}
		return time.Duration(secs) * time.Second, nil
	default:
		return 0, fmt.Errorf("unexpected arguments: %s", strings.Join(args[1:], " "))
	}
}

func splitPatterns(s string) []string {
	if s == "" {
		return nil
	}
	patterns := strings.Split(s, ",")
	for i := range patterns {
		patterns[i] = strings.TrimSpace(patterns[i])
	}
	return patterns
}
