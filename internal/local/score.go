package local

import (
	"strings"
	"time"

	"github.com/zombor/receipt-forensics/internal/parsing"
)

const (
	missingAmountRisk = 30
	missingDateRisk   = 10
)

// Score computes the local risk of a reading and the reasons behind it.
// A date after today forces the maximum risk.
func Score(amountFound bool, date *parsing.Date, now time.Time) (int, string) {
	if date != nil && parsing.IsFuture(*date, now) {
		return 100, "date " + date.Text + " is in the future"
	}

	risk := 0
	var reasons []string
	if !amountFound {
		risk += missingAmountRisk
		reasons = append(reasons, "amount not detected")
	}
	if date == nil {
		risk += missingDateRisk
		reasons = append(reasons, "date not detected")
	}
	if len(reasons) == 0 {
		return risk, "amount and date detected"
	}
	return risk, strings.Join(reasons, "; ")
}
