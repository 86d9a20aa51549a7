package cloud

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/zombor/receipt-forensics/internal/parsing"
	"github.com/zombor/receipt-forensics/internal/profile"
)

// BillingKey is the issuer key of documents that are bills, not receipts.
const BillingKey = "billing"

// vocabulary maps folded answer words to issuer keys. Needles match whole
// words only and are scanned in order, so more specific ones come first.
var vocabulary = []struct {
	needle string
	key    string
}{
	{"mercadopago", "mercadopago"},
	{"mercado pago", "mercadopago"},
	{"uala", "uala"},
	{"brubank", "brubank"},
	{"naranjax", "naranjax"},
	{"naranja", "naranjax"},
	{"personalpay", "personalpay"},
	{"personal pay", "personalpay"},
	{"cuentadni", "cuentadni"},
	{"cuenta dni", "cuentadni"},
	{"modo", "modo"},
	{"lemon", "lemon"},
	{"prex", "prex"},
	{"galicia", "galicia"},
	{"santander", "santander"},
	{"bbva", "bbva"},
	{"frances", "bbva"},
	{"macro", "macro"},
	{"bna", "bna"},
	{"nacion", "bna"},
	{BillingKey, BillingKey},
	{"factura", BillingKey},
	{"facturas", BillingKey},
	{"invoice", BillingKey},
	{"invoices", BillingKey},
	{"bill", BillingKey},
	{"bills", BillingKey},
}

// ResolveIssuer maps a free text classifier answer onto the closed set of
// issuer keys. Anything unrecognized, including an empty answer, is generic.
func ResolveIssuer(answer string) string {
	words := strings.FieldsFunc(parsing.Fold(answer), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	padded := " " + strings.Join(words, " ") + " "
	for _, v := range vocabulary {
		if strings.Contains(padded, " "+v.needle+" ") {
			return v.key
		}
	}
	return profile.GenericID
}

func classifyPrompt() string {
	keys := append(profile.IDs(), BillingKey)
	return fmt.Sprintf(`Identify the issuer of this payment receipt.
Answer with exactly one key and nothing else: %s.
Use "%s" for utility bills, invoices or any document asking for a payment instead of proving one.
Use "%s" when the issuer is not listed.`,
		strings.Join(keys, ", "), BillingKey, profile.GenericID)
}

// IssuerLabel returns the display label of an issuer key.
func IssuerLabel(key string) string {
	if key == BillingKey {
		return "Billing"
	}
	if p, ok := profile.ByID(key); ok {
		return p.Name
	}
	p, _ := profile.ByID(profile.GenericID)
	return p.Name
}
