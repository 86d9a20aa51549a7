package local

import "github.com/zombor/receipt-forensics/internal/parsing"

const (
	ReasonBilling      = "billing document, not a receipt"
	ReasonInsufficient = "insufficient receipt indicators"
)

// Indicators are matched against folded text, so they are stored folded.
var (
	billIndicators = []string{
		"vencimiento", "total a pagar", "lectura", "medidor", "consumo",
		"periodo de facturacion", "proximo vencimiento", "cargo fijo",
		"amount due", "due date", "meter reading", "billing period",
	}
	receiptIndicators = []string{
		"transferencia", "comprobante", "pago exitoso", "enviaste", "recibiste",
		"operacion exitosa", "pagaste", "transfer", "payment successful", "payment sent",
	}
)

// Gatekeep decides whether text read with the generic profile is a payment
// receipt. It returns the rejection reason and false when it is not.
func Gatekeep(text string) (string, bool) {
	folded := parsing.Fold(text)
	if _, found := parsing.FirstContained(folded, billIndicators); found {
		return ReasonBilling, false
	}
	if _, found := parsing.FirstContained(folded, receiptIndicators); !found {
		return ReasonInsufficient, false
	}
	return "", true
}
