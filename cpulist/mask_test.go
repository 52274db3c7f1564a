package cpulist

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2/dsl/core"
	. "github.com/onsi/ginkgo/v2/dsl/table"
	. "github.com/onsi/gomega"
	. "github.com/thediveo/success"
)

var _ = Describe("cpu masks", func() {

	DescribeTable("range-compressing masks",
		func(mask Mask, expected string) {
			Expect(mask.String()).To(Equal(expected))
		},
		Entry("empty mask", Mask(0), "none"),
		Entry("single run from zero", Mask(0b1111), "0-3"),
		Entry("two single cpus", Mask(0b10100), "2,4"),
		Entry("mixed runs and singles",
			Mask(1<<17|1<<19|0b11<<31|1<<34), "17,19,31-32,34"),
		Entry("documented hint example", Mask(0x5800a000f), "0-3,17,19,31-32,34"),
		Entry("highest cpu alone", Mask(1<<63), "63"),
		Entry("run ending at the top bit", Mask(0b11<<62), "62-63"),
		Entry("all cpus", Mask(^uint64(0)), "0-63"),
	)

	It("round-trips every mask through encode and decode", func() {
		masks := []Mask{0, 1, 1 << 63, ^Mask(0), 0x5800a000f, 0b10100}
		rng := rand.New(rand.NewSource(42))
		for i := 0; i < 1000; i++ {
			masks = append(masks, Mask(rng.Uint64()))
		}
		for _, m := range masks {
			Expect(ParseMask(m.String())).To(Equal(m), "mask %#x", uint64(m))
		}
	})

	When("parsing affinity hints", func() {

		DescribeTable("valid hints",
			func(hint string, expected Mask) {
				Expect(ParseHint(hint)).To(Equal(expected))
			},
			Entry(nil, "00000000,0000000f", Mask(0xf)),
			Entry(nil, "00000005,800a000f", Mask(0x5800a000f)),
			Entry(nil, "0", Mask(0)),
			Entry(nil, "ffffffff,ffffffff", ^Mask(0)),
			Entry(nil, "00000000,00000000,00000001", Mask(1)),
			Entry(nil, "  00000000,00000002\n", Mask(2)),
		)

		DescribeTable("invalid hints",
			func(hint string) {
				Expect(ParseHint(hint)).Error().To(HaveOccurred())
			},
			Entry("not hex", "zz"),
			Entry("empty word", "f,,f"),
			Entry("word too wide", "123456789"),
			Entry("cpus beyond the mask width", "00000001,00000000,00000000"),
		)

	})

	It("decodes the documented hint to the documented list", func() {
		Expect(Successful(ParseHint("00000005,800a000f")).String()).To(
			Equal("0-3,17,19,31-32,34"))
	})

})
