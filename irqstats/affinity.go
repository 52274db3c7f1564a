package irqstats

import (
	"path"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/ik2sb/irqtop/cpulist"
)

// Affinity describes where a hardware interrupt vector may be serviced: the
// driver-provided hint and the actually assigned CPU list, both in textual
// range list format.
type Affinity struct {
	Hint string
	List string
}

// Affinity looks up the affinity files of the given vector. Lookups happen
// at render time and are never cached across cycles. Either file may be
// absent, which reads as “none” rather than as an error; only numeric row
// names ever have these files, so callers gate on IsVector.
func (m *Monitor) Affinity(vector string) Affinity {
	a := Affinity{Hint: cpulist.None, List: cpulist.None}
	if b, err := afero.ReadFile(m.fs, path.Join(m.irqDir, vector, "affinity_hint")); err == nil {
		mask, err := cpulist.ParseHint(string(b))
		if err != nil {
			log.Debugf("unusable affinity hint for irq %s: %v", vector, err)
		} else {
			a.Hint = mask.String()
		}
	}
	if b, err := afero.ReadFile(m.fs, path.Join(m.irqDir, vector, "smp_affinity_list")); err == nil {
		if s := strings.TrimSpace(string(b)); s != "" {
			a.List = s
		}
	}
	return a
}
