package cpulist

import (
	"fmt"
	"strconv"
	"strings"
)

// Mask is a 64-bit CPU affinity bitmask, with bit i set meaning that CPU i
// is a member of the set.
type Mask uint64

// MaskBits is the number of CPUs a single Mask word can describe. All 64
// bits take part in range encoding, bit 63 included.
const MaskBits = 64

// hintWordBits is the width of one comma-separated hex word in the
// “affinity_hint” procfs format.
const hintWordBits = 32

// List returns the list of CPU ranges corresponding with this mask, scanning
// runs of consecutive set bits from the least significant bit upwards.
func (m Mask) List() List {
	l := List{}
	cpu := uint(0)
	for m != 0 {
		for m&1 == 0 {
			m >>= 1
			cpu++
		}
		from := cpu
		for m&1 == 1 {
			m >>= 1
			cpu++
		}
		l = append(l, [2]uint{from, cpu - 1})
	}
	return l
}

// String returns the CPUs in this mask in textual list format, or “none”
// when no bit is set.
func (m Mask) String() string {
	return m.List().String()
}

// ParseMask parses the textual list format back into a mask. The literal
// “none” yields the empty mask, so that ParseMask(m.String()) == m holds for
// every mask.
func ParseMask(s string) (Mask, error) {
	if s == None {
		return 0, nil
	}
	l, err := ParseList([]byte(s))
	if err != nil {
		return 0, err
	}
	return l.Mask()
}

// ParseHint parses the “affinity_hint” procfs format: comma-separated 32-bit
// hex words, most significant word first, such as “00000005,800a000f”. Words
// beyond the low 64 bits are accepted as long as they are all-zeros padding.
func ParseHint(s string) (Mask, error) {
	words := strings.Split(strings.TrimSpace(s), ",")
	var m uint64
	for idx, word := range words {
		v, err := strconv.ParseUint(word, 16, hintWordBits)
		if err != nil {
			return 0, fmt.Errorf("invalid affinity hint word %q: %w", word, err)
		}
		if remaining := len(words) - idx; remaining > MaskBits/hintWordBits {
			if v != 0 {
				return 0, fmt.Errorf("affinity hint %q references CPUs beyond %d", s, MaskBits-1)
			}
			continue
		}
		m = m<<hintWordBits | v
	}
	return Mask(m), nil
}
