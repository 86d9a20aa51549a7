package parsing

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ParseDate", func() {
	DescribeTable("supported layouts",
		func(text, expected string) {
			d, ok := ParseDate(text, LayoutAny)
			Expect(ok).To(BeTrue())
			Expect(d.Text).To(Equal(expected))
		},
		Entry("numeric with slashes", "Fecha 15/03/2024 14:32", "15/03/2024"),
		Entry("numeric with dashes and short year", "5-3-24", "05/03/2024"),
		Entry("short year in the last century", "Fecha 15/03/99", "15/03/1999"),
		Entry("short year at the pivot", "01/01/68", "01/01/2068"),
		Entry("long form", "Viernes, 15 de marzo de 2024", "15/03/2024"),
		Entry("long form with accents and caps", "1 de SEPTIEMBRE de 2023", "01/09/2023"),
		Entry("long form abbreviated", "22 de dic. 2023", "22/12/2023"),
		Entry("mixed", "07/Ago/2024 10:00", "07/08/2024"),
	)

	It("should return no date when nothing matches", func() {
		_, ok := ParseDate("Comprobante de transferencia", LayoutAny)
		Expect(ok).To(BeFalse())
	})

	It("should skip impossible calendar dates", func() {
		d, ok := ParseDate("31/02/2024 y 01/03/2024", LayoutAny)
		Expect(ok).To(BeTrue())
		Expect(d.Text).To(Equal("01/03/2024"))
	})

	It("should try the hinted layout first", func() {
		text := "Vence 01/01/2024 - Pagado el 3 de febrero de 2024"
		d, ok := ParseDate(text, LayoutLong)
		Expect(ok).To(BeTrue())
		Expect(d.Text).To(Equal("03/02/2024"))

		d, ok = ParseDate(text, LayoutAny)
		Expect(ok).To(BeTrue())
		Expect(d.Text).To(Equal("01/01/2024"))
	})

	It("should ignore unknown month names", func() {
		_, ok := ParseDate("15 de foo de 2024", LayoutAny)
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("IsFuture", func() {
	now := time.Date(2024, time.March, 15, 18, 0, 0, 0, time.UTC)

	It("should not treat today as future", func() {
		d, _ := ParseDate("15/03/2024", LayoutAny)
		Expect(IsFuture(d, now)).To(BeFalse())
	})

	It("should not treat a short year from the last century as future", func() {
		d, ok := ParseDate("Fecha 15/03/99", LayoutAny)
		Expect(ok).To(BeTrue())
		Expect(IsFuture(d, now)).To(BeFalse())
	})

	It("should treat tomorrow as future", func() {
		d, _ := ParseDate("16/03/2024", LayoutAny)
		Expect(IsFuture(d, now)).To(BeTrue())
	})
})
