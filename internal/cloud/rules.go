package cloud

import "github.com/zombor/receipt-forensics/internal/profile"

// rules are terse forensic directives per issuer key. The generic entry also
// covers unknown keys.
var rules = map[string][]string{
	"mercadopago": {
		"The amount is the large figure at the top; the line below it starts with Motivo.",
		"Operation numbers have 11 digits or more and are never amounts.",
		"Sender follows 'De', receiver follows 'Para'; both show a CUIT/CUIL and a CVU or bank.",
	},
	"uala": {
		"Dates are written as '15 de marzo de 2024' in the header.",
		"Receiver follows 'Para' or 'Destinatario' and shows a CVU starting with 000000.",
		"A missing transaction code is suspicious.",
	},
	"brubank": {
		"Sender follows 'Desde', receiver follows 'Hacia'.",
		"The amount sits above 'Concepto'.",
	},
	"naranjax": {
		"Dates use the long Spanish form with a 24h time.",
		"Receiver account is a CVU; Naranja X receipts never show a CBU for the sender.",
	},
	"personalpay": {
		"Sender follows 'De' or 'Enviado por'.",
		"The amount sits above 'Motivo'.",
	},
	"modo": {
		"MODO receipts name the paying bank app; mismatched bank and CBU prefix is suspicious.",
		"Source account follows 'Cuenta origen'.",
	},
	"cuentadni": {
		"Issued by Banco Provincia; sender follows 'Ordenante'.",
		"Receipts show a transaction number and a CBU starting with 014.",
	},
	"lemon": {
		"Lemon Cash may show crypto amounts; only report the ARS or USD fiat amount.",
	},
	"prex": {
		"Sender follows 'Origen'; amounts may be in USD for Prex USD accounts.",
	},
	"galicia": {
		"CBU of Banco Galicia accounts starts with 007.",
		"Sender follows 'Cuenta origen' or 'Titular'.",
	},
	"santander": {
		"CBU of Santander accounts starts with 072.",
		"A reference number is always present; its absence is suspicious.",
	},
	"bbva": {
		"CBU of BBVA accounts starts with 017.",
		"Sender follows 'Ordenante'.",
	},
	"macro": {
		"CBU of Banco Macro accounts starts with 285.",
	},
	"bna": {
		"CBU of Banco Nación accounts starts with 011.",
		"Sender follows 'Ordenante' or 'Titular'.",
	},
	profile.GenericID: {
		"Check that the document proves a completed payment, not a pending one or a bill.",
		"Tax ids (CUIT/CUIL) have 11 digits with a valid check digit.",
		"CVU/CBU numbers have 22 digits.",
	},
}

// Rules returns the forensic directives for an issuer key. The slice is a
// copy and may be modified by the caller.
func Rules(key string) []string {
	r, ok := rules[key]
	if !ok {
		r = rules[profile.GenericID]
	}
	return append([]string(nil), r...)
}
