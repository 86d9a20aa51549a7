package profile

import (
	"regexp"

	"github.com/zombor/receipt-forensics/internal/parsing"
)

func sigs(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

var (
	motivoAnchor   = regexp.MustCompile(`(?i)^\s*motivo\b`)
	conceptoAnchor = regexp.MustCompile(`(?i)^\s*(?:concepto|motivo)\b`)
	bankAnchor     = regexp.MustCompile(`(?i)^\s*(?:concepto|referencia|motivo|descripci[oó]n)\b`)
)

// Wallets come before banks: a wallet receipt often names the counterpart
// bank, never the other way around.
var registry = []Profile{
	{
		ID:           "mercadopago",
		Name:         "Mercado Pago",
		Signatures:   sigs(`(?i)mercado\s*pago`),
		Senders:      parsing.Labeled("De"),
		Receivers:    parsing.Labeled("Para"),
		AmountAnchor: motivoAnchor,
		DateHint:     parsing.LayoutNumeric,
	},
	{
		ID:           "uala",
		Name:         "Ualá",
		Signatures:   sigs(`(?i)\bual(?:a\b|á)`),
		Senders:      parsing.Labeled("De", "Origen"),
		Receivers:    parsing.Labeled("Para", "Destinatario"),
		AmountAnchor: conceptoAnchor,
		DateHint:     parsing.LayoutLong,
	},
	{
		ID:           "brubank",
		Name:         "Brubank",
		Signatures:   sigs(`(?i)brubank`),
		Senders:      parsing.Labeled("Desde", "De"),
		Receivers:    parsing.Labeled("Hacia", "Para"),
		AmountAnchor: conceptoAnchor,
	},
	{
		ID:           "naranjax",
		Name:         "Naranja X",
		Signatures:   sigs(`(?i)naranja\s*x`),
		Senders:      parsing.Labeled("De", "Origen"),
		Receivers:    parsing.Labeled("Para", "Destino"),
		AmountAnchor: conceptoAnchor,
		DateHint:     parsing.LayoutLong,
	},
	{
		ID:           "personalpay",
		Name:         "Personal Pay",
		Signatures:   sigs(`(?i)personal\s*pay`),
		Senders:      parsing.Labeled("De", "Enviado por"),
		Receivers:    parsing.Labeled("Para", "Enviado a"),
		AmountAnchor: motivoAnchor,
	},
	{
		ID:           "modo",
		Name:         "MODO",
		Signatures:   sigs(`\bMODO\b`, `(?i)pagaste con modo`),
		Senders:      parsing.Labeled("Cuenta origen", "De"),
		Receivers:    parsing.Labeled("Cuenta destino", "Para"),
		AmountAnchor: conceptoAnchor,
	},
	{
		ID:           "cuentadni",
		Name:         "Cuenta DNI",
		Signatures:   sigs(`(?i)cuenta\s*dni`),
		Senders:      parsing.Labeled("Ordenante", "De"),
		Receivers:    parsing.Labeled("Destinatario", "Para"),
		AmountAnchor: conceptoAnchor,
	},
	{
		ID:           "lemon",
		Name:         "Lemon",
		Signatures:   sigs(`(?i)lemon\s*cash`, `(?i)\blemon\b`),
		Senders:      parsing.Labeled("De"),
		Receivers:    parsing.Labeled("Para", "Enviaste a"),
		AmountAnchor: motivoAnchor,
	},
	{
		ID:           "prex",
		Name:         "Prex",
		Signatures:   sigs(`(?i)\bprex\b`),
		Senders:      parsing.Labeled("Origen", "De"),
		Receivers:    parsing.Labeled("Destino", "Para"),
		AmountAnchor: conceptoAnchor,
		DateHint:     parsing.LayoutMixed,
	},
	{
		ID:           "galicia",
		Name:         "Banco Galicia",
		Signatures:   sigs(`(?i)banco\s+galicia`, `(?i)galicia\s+(?:office|m[oó]vil)`),
		Senders:      parsing.Labeled("Cuenta origen", "Titular", "Ordenante"),
		Receivers:    parsing.Labeled("Destinatario", "Cuenta destino", "Beneficiario"),
		AmountAnchor: bankAnchor,
	},
	{
		ID:           "santander",
		Name:         "Santander",
		Signatures:   sigs(`(?i)santander`),
		Senders:      parsing.Labeled("Titular", "Cuenta origen", "Ordenante"),
		Receivers:    parsing.Labeled("Destinatario", "Beneficiario"),
		AmountAnchor: bankAnchor,
	},
	{
		ID:           "bbva",
		Name:         "BBVA",
		Signatures:   sigs(`(?i)\bbbva\b`, `(?i)banco\s+franc[eé]s`),
		Senders:      parsing.Labeled("Ordenante", "Titular"),
		Receivers:    parsing.Labeled("Beneficiario", "Destinatario"),
		AmountAnchor: bankAnchor,
	},
	{
		ID:           "macro",
		Name:         "Banco Macro",
		Signatures:   sigs(`(?i)banco\s+macro`, `(?i)\bmacro\b`),
		Senders:      parsing.Labeled("Cuenta origen", "Titular", "Ordenante"),
		Receivers:    parsing.Labeled("Cuenta destino", "Destinatario"),
		AmountAnchor: bankAnchor,
	},
	{
		ID:           "bna",
		Name:         "Banco Nación",
		Signatures:   sigs(`(?i)banco\s+(?:de\s+la\s+)?naci[oó]n`, `(?i)\bbna\b`),
		Senders:      parsing.Labeled("Ordenante", "Titular"),
		Receivers:    parsing.Labeled("Beneficiario", "Destinatario"),
		AmountAnchor: bankAnchor,
	},
	{
		ID:           GenericID,
		Name:         "Generic",
		AmountAnchor: bankAnchor,
	},
}
