package parsing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ExtractParty", func() {
	senders := Labeled("De")
	receivers := Labeled("Para")

	It("should read values on their own lines", func() {
		text := "Mercado Pago\nDe Juan Perez\nPara Maria Lopez\n"
		sender, ok := ExtractParty(text, senders, FallbackSenders)
		Expect(ok).To(BeTrue())
		Expect(sender).To(Equal("Juan Perez"))

		receiver, ok := ExtractParty(text, receivers, FallbackReceivers)
		Expect(ok).To(BeTrue())
		Expect(receiver).To(Equal("Maria Lopez"))
	})

	It("should fall back to the flattened text", func() {
		text := "Transferencia enviada De Juan Perez Para Maria Lopez CVU 000"
		sender, ok := ExtractParty(text, senders, nil)
		Expect(ok).To(BeTrue())
		Expect(sender).To(Equal("Juan Perez"))

		receiver, ok := ExtractParty(text, receivers, nil)
		Expect(ok).To(BeTrue())
		Expect(receiver).To(Equal("Maria Lopez"))
	})

	It("should not read a lower-case preposition as the label", func() {
		text := "Mercado Pago\nComprobante de Transferencia\nDe\nJuan Perez\nPara\nMaria Lopez"
		sender, ok := ExtractParty(text, senders, FallbackSenders)
		Expect(ok).To(BeTrue())
		Expect(sender).To(Equal("Juan Perez"))

		receiver, ok := ExtractParty(text, receivers, FallbackReceivers)
		Expect(ok).To(BeTrue())
		Expect(receiver).To(Equal("Maria Lopez"))
	})

	It("should use the generic fallback patterns", func() {
		text := "Ordenante: Carlos Gomez\nBeneficiario: Ana Ruiz"
		sender, ok := ExtractParty(text, senders, FallbackSenders)
		Expect(ok).To(BeTrue())
		Expect(sender).To(Equal("Carlos Gomez"))

		receiver, ok := ExtractParty(text, receivers, FallbackReceivers)
		Expect(ok).To(BeTrue())
		Expect(receiver).To(Equal("Ana Ruiz"))
	})

	It("should truncate long values", func() {
		text := "De Compañía Internacional de Servicios Financieros del Sur S.A.\n"
		sender, ok := ExtractParty(text, senders, nil)
		Expect(ok).To(BeTrue())
		Expect(sender).To(HaveSuffix("..."))
		Expect([]rune(sender)).To(HaveLen(MaxPartyLength + 3))
	})

	It("should report nothing when no label is present", func() {
		_, ok := ExtractParty("Total $ 100", senders, FallbackSenders)
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("Fold", func() {
	It("should lower-case and strip accents", func() {
		Expect(Fold("Operación ÚNICA")).To(Equal("operacion unica"))
	})
})
