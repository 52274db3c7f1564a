package irqstats

import (
	"time"

	. "github.com/onsi/ginkgo/v2/dsl/core"
	. "github.com/onsi/ginkgo/v2/dsl/table"
	. "github.com/onsi/gomega"
	"github.com/spf13/afero"
)

const (
	interruptsHeader = "            CPU0       CPU1       CPU2       CPU3\n"
	softirqsHeader   = "                    CPU0       CPU1       CPU2       CPU3       CPU4       CPU5\n"
)

func newTestMonitor(opts Options, interrupts, softirqs string) *Monitor {
	fs := afero.NewMemMapFs()
	Expect(afero.WriteFile(fs, "/proc/interrupts", []byte(interrupts), 0o444)).To(Succeed())
	Expect(afero.WriteFile(fs, "/proc/softirqs", []byte(softirqs), 0o444)).To(Succeed())
	opts.Fs = fs
	return New(opts)
}

func rewrite(m *Monitor, path, content string) {
	Expect(afero.WriteFile(m.fs, path, []byte(content), 0o444)).To(Succeed())
}

var _ = Describe("collecting counter tables", func() {

	It("fixes the online CPU count from the hardware source header", func() {
		m := newTestMonitor(Options{},
			interruptsHeader+" 95:  10  20  30  0  IR-PCI-MSI  eth0\n",
			softirqsHeader+"TIMER:  1  2  3  4  5  6\n")
		Expect(m.Collect(true)).To(Succeed())
		Expect(m.OnlineCPUs).To(Equal(4))
	})

	It("consults only the first online-CPU columns of the soft source", func() {
		m := newTestMonitor(Options{},
			interruptsHeader+" 95:  10  20  30  0  IR-PCI-MSI  eth0\n",
			softirqsHeader+"NET_RX:  7  8  9  10  11  12\n")
		Expect(m.Collect(true)).To(Succeed())
		row := m.Soft["NET_RX"]
		Expect(row).NotTo(BeNil())
		Expect(row.Current).To(Equal([]uint64{7, 8, 9, 10}))
		Expect(row.Detail).To(BeEmpty())
	})

	It("establishes warm-up baselines without marking rows changed", func() {
		m := newTestMonitor(Options{},
			interruptsHeader+" 95:  10  20  30  0  IR-PCI-MSI  eth0\n",
			softirqsHeader)
		Expect(m.Collect(true)).To(Succeed())
		row := m.Hard["95"]
		Expect(row.Current).To(Equal([]uint64{10, 20, 30, 0}))
		Expect(row.Delta).To(Equal([]int64{10, 20, 30, 0}))
		Expect(row.Detail).To(Equal([]string{"IR-PCI-MSI", "eth0"}))
		Expect(row.EverChanged).To(BeFalse())
	})

	It("computes per-CPU deltas against the previous cycle", func() {
		m := newTestMonitor(Options{},
			interruptsHeader+" 95:  10  20  30  0  IR-PCI-MSI  eth0\n",
			softirqsHeader)
		Expect(m.Collect(true)).To(Succeed())
		rewrite(m, "/proc/interrupts",
			interruptsHeader+" 95:  15  25  30  0  IR-PCI-MSI  eth0\n")
		Expect(m.Collect(false)).To(Succeed())
		row := m.Hard["95"]
		Expect(row.Current).To(Equal([]uint64{15, 25, 30, 0}))
		Expect(row.Delta).To(Equal([]int64{5, 5, 0, 0}))
		Expect(row.EverChanged).To(BeTrue())
	})

	It("keeps the change flag set across later all-zero cycles", func() {
		m := newTestMonitor(Options{},
			interruptsHeader+" 95:  10  20  30  0  IR-PCI-MSI  eth0\n",
			softirqsHeader)
		Expect(m.Collect(true)).To(Succeed())
		rewrite(m, "/proc/interrupts",
			interruptsHeader+" 95:  15  25  30  0  IR-PCI-MSI  eth0\n")
		Expect(m.Collect(false)).To(Succeed())
		Expect(m.Collect(false)).To(Succeed()) // same counters, zero deltas
		row := m.Hard["95"]
		Expect(row.Delta).To(Equal([]int64{0, 0, 0, 0}))
		Expect(row.EverChanged).To(BeTrue())
	})

	It("never marks excluded rows changed, yet still tracks their deltas", func() {
		m := newTestMonitor(Options{
			Exclude: Matchers([]string{"eth"}),
			Track:   Matchers([]string{"eth"}),
		},
			interruptsHeader+" 95:  10  20  30  0  IR-PCI-MSI  eth0\n",
			softirqsHeader)
		Expect(m.Collect(true)).To(Succeed())
		rewrite(m, "/proc/interrupts",
			interruptsHeader+" 95:  15  25  30  0  IR-PCI-MSI  eth0\n")
		Expect(m.Collect(false)).To(Succeed())
		Expect(m.Hard["95"].EverChanged).To(BeFalse())
		// warm-up contributed 10+20+30+0, the second cycle 5+5+0+0
		Expect(m.Total(Matcher("eth"))).To(Equal(int64(70)))
	})

	It("feeds one row into every matching tracked total", func() {
		m := newTestMonitor(Options{
			Track: Matchers([]string{"eth", "PCI-MSI"}),
		},
			interruptsHeader+" 95:  1  1  1  1  IR-PCI-MSI  eth0\n",
			softirqsHeader)
		Expect(m.Collect(true)).To(Succeed())
		Expect(m.Total(Matcher("eth"))).To(Equal(int64(4)))
		Expect(m.Total(Matcher("PCI-MSI"))).To(Equal(int64(4)))
	})

	It("matches tracked patterns against the whole line, not just the name", func() {
		m := newTestMonitor(Options{Track: Matchers([]string{"TIMER"})},
			interruptsHeader+" 95:  1  2  3  4  IR-PCI-MSI  eth0\n",
			softirqsHeader+"TIMER:  10  10  10  10  0  0\n")
		Expect(m.Collect(true)).To(Succeed())
		Expect(m.Total(Matcher("TIMER"))).To(Equal(int64(40)))
	})

	It("lists changed rows of both tables sorted by name", func() {
		m := newTestMonitor(Options{},
			interruptsHeader+
				" 95:  10  20  30  0  IR-PCI-MSI  eth0\n"+
				" 104:  1  1  1  1  IR-PCI-MSI  nvme0q1\n",
			softirqsHeader+"NET_RX:  7  8  9  10  0  0\n")
		Expect(m.Collect(true)).To(Succeed())
		rewrite(m, "/proc/interrupts",
			interruptsHeader+
				" 95:  11  20  30  0  IR-PCI-MSI  eth0\n"+
				" 104:  2  1  1  1  IR-PCI-MSI  nvme0q1\n")
		rewrite(m, "/proc/softirqs",
			softirqsHeader+"NET_RX:  8  8  9  10  0  0\n")
		Expect(m.Collect(false)).To(Succeed())
		names := []string{}
		for _, row := range m.Changed() {
			names = append(names, row.Name)
		}
		Expect(names).To(Equal([]string{"104", "95", "NET_RX"}))
	})

	DescribeTable("rejecting malformed counter lines",
		func(line string) {
			m := newTestMonitor(Options{}, interruptsHeader+line, softirqsHeader)
			Expect(m.Collect(true)).NotTo(Succeed())
		},
		Entry("fewer counters than online CPUs", " 95:  10  20  IR-PCI-MSI  eth0\n"),
		Entry("single-counter row", "ERR:  0\n"),
		Entry("no name separator", " 95  10  20  30  0\n"),
	)

	It("fails when the primary source is unreadable", func() {
		m := New(Options{Fs: afero.NewMemMapFs()})
		Expect(m.Collect(true)).NotTo(Succeed())
	})

	It("fails when only the soft source is unreadable", func() {
		fs := afero.NewMemMapFs()
		Expect(afero.WriteFile(fs, "/proc/interrupts",
			[]byte(interruptsHeader), 0o444)).To(Succeed())
		m := New(Options{Fs: fs})
		Expect(m.Collect(true)).NotTo(Succeed())
	})

})

var _ = Describe("tracked totals summaries", func() {

	It("derives totals, averages and rates in configuration order", func() {
		m := newTestMonitor(Options{Track: Matchers([]string{"eth", "nvme"})},
			interruptsHeader+
				" 95:  10  20  30  0  IR-PCI-MSI  eth0\n"+
				" 104:  2  2  2  2  IR-PCI-MSI  nvme0q1\n",
			softirqsHeader)
		Expect(m.Collect(true)).To(Succeed())
		summaries := m.Summaries(2 * time.Second)
		Expect(summaries).To(HaveLen(2))
		Expect(summaries[0].Pattern).To(Equal(Matcher("eth")))
		Expect(summaries[0].Total).To(Equal(int64(60)))
		Expect(summaries[0].PerCPU).To(Equal(15.0))
		Expect(summaries[0].PerSecond).To(Equal(30.0))
		Expect(summaries[0].PerSecondPerCPU).To(Equal(7.5))
		Expect(summaries[1].Pattern).To(Equal(Matcher("nvme")))
		Expect(summaries[1].Total).To(Equal(int64(8)))
	})

	It("yields zeros instead of dividing by zero online CPUs", func() {
		m := newTestMonitor(Options{Track: Matchers([]string{"eth"})},
			"\n", "\n")
		Expect(m.Collect(true)).To(Succeed())
		Expect(m.OnlineCPUs).To(BeZero())
		summaries := m.Summaries(time.Second)
		Expect(summaries[0].Total).To(BeZero())
		Expect(summaries[0].PerCPU).To(BeZero())
		Expect(summaries[0].PerSecondPerCPU).To(BeZero())
	})

	It("yields zero rates for a zero interval", func() {
		m := newTestMonitor(Options{Track: Matchers([]string{"eth"})},
			interruptsHeader+" 95:  1  1  1  1  IR-PCI-MSI  eth0\n",
			softirqsHeader)
		Expect(m.Collect(true)).To(Succeed())
		summaries := m.Summaries(0)
		Expect(summaries[0].PerSecond).To(BeZero())
		Expect(summaries[0].PerSecondPerCPU).To(BeZero())
	})

})
