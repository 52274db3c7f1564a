package cpulist

import (
	. "github.com/onsi/ginkgo/v2/dsl/core"
	. "github.com/onsi/ginkgo/v2/dsl/table"
	. "github.com/onsi/gomega"
	. "github.com/thediveo/success"
)

var _ = Describe("cpu lists", func() {

	DescribeTable("generating textual representations",
		func(list List, expected string) {
			Expect(list.String()).To(Equal(expected))
		},
		Entry(nil, List{}, "none"),
		Entry(nil, List{{1, 1}, {2, 42}, {63, 63}}, "1,2-42,63"),
		Entry(nil, List{{2, 42}}, "2-42"),
		Entry(nil, List{{2, 42}, {47, 48}}, "2-42,47-48"),
	)

	When("parsing lists from text", func() {

		It("returns nothing from nothing", func() {
			Expect(ParseList([]byte(""))).To(Equal(List{}))
		})

		It("returns a single cpu", func() {
			Expect(ParseList([]byte("42"))).To(Equal(List{[2]uint{42, 42}}))
		})

		It("returns a single range", func() {
			Expect(ParseList([]byte("42-63"))).To(Equal(List{[2]uint{42, 63}}))
		})

		It("returns multiple individual CPUs", func() {
			Expect(ParseList([]byte("42,63"))).To(Equal(List{[2]uint{42, 42}, [2]uint{63, 63}}))
		})

		It("altogether", func() {
			Expect(ParseList([]byte("1-42,47,51-52"))).To(
				Equal(List{[2]uint{1, 42}, [2]uint{47, 47}, [2]uint{51, 52}}))
		})

		DescribeTable("parsing errors",
			func(s string, msg string) {
				Expect(ParseList([]byte(s))).Error().To(MatchError(msg))
			},
			Entry(nil, "abc", "expected unsigned integer number"),
			Entry(nil, "0abc", "expected '-' or ','"),
			Entry(nil, "1-z", "expected unsigned integer number"),
			Entry(nil, "0-0abc", "expected ','"),
		)

	})

	When("converting lists into masks", func() {

		It("converts", func() {
			Expect(List{}.Mask()).To(Equal(Mask(0)))
			Expect(Successful(ParseList([]byte("3,5,63"))).Mask()).To(
				Equal(Mask(1<<3 | 1<<5 | 1<<63)))
		})

		It("rejects CPUs beyond the mask width", func() {
			Expect(List{{0, 64}}.Mask()).Error().To(HaveOccurred())
			Expect(List{{666, 666}}.Mask()).Error().To(HaveOccurred())
		})

		It("rejects inverted ranges", func() {
			Expect(List{{3, 1}}.Mask()).Error().To(HaveOccurred())
		})

	})

})
