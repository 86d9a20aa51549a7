package parsing

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// ROI sentinels wrap text re-read from the region of interest. The amount
// parser gives candidates on that line absolute priority.
const (
	ROIStart = "[[ROI]]"
	ROIEnd   = "[[/ROI]]"
)

// ROILine wraps text in the ROI sentinels.
func ROILine(text string) string {
	return ROIStart + " " + strings.TrimSpace(text) + " " + ROIEnd
}

// IsROILine reports whether line carries the ROI sentinel.
func IsROILine(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), ROIStart)
}

func roiText(line string) string {
	s := strings.TrimPrefix(strings.TrimSpace(line), ROIStart)
	s = strings.TrimSuffix(strings.TrimSpace(s), ROIEnd)
	return strings.TrimSpace(s)
}

var (
	amountPattern   = regexp.MustCompile(`\b(?:\d{1,3}(?:[.,]\d{3})+(?:[.,]\d{1,3})?|\d+(?:[.,]\d{1,3})?)\b`)
	groupedPattern  = regexp.MustCompile(`^\d{1,3}(?:[.,]\d{3})+(?:[.,]\d{1,2})?$`)
	thousandsSuffix = regexp.MustCompile(`[.,]\d{3}$`)
	zeroSuffix      = regexp.MustCompile(`[.,]000$`)
	yearPattern     = regexp.MustCompile(`^\d{4}$`)
	// dates and clock times are masked before scanning for amounts.
	datetimePattern = regexp.MustCompile(`(?i)\b\d{1,2}[/-](?:\d{1,2}|[a-z]{3})[/-](?:\d{4}|\d{2})\b|\b\d{1,2}:\d{2}(?::\d{2})?\b`)

	currencyMarker = regexp.MustCompile(`(?i)\$|\bars\b|\busd\b|\bpesos\b|\bdolares\b`)
	dollarMarker   = regexp.MustCompile(`(?i)u\$s|us\$|\busd\b|\bdolares\b`)
	identifierLine = regexp.MustCompile(`\b(?:cuit|cuil|cvu|cbu|dni|alias|operacion|transaccion|codigo|nro|numero|comprobante n)\b|\d{8,}`)
)

var (
	maxAmount = decimal.NewFromInt(50_000_000)
	minYear   = decimal.NewFromInt(2020)
	maxYear   = decimal.NewFromInt(2030)
)

// NormalizeAmount turns a currency-like string into a value, deciding which
// separator is the decimal point without locale metadata. The second result is
// false for strings that are not plausible amounts.
func NormalizeAmount(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, false
	}

	// "884.375,000": OCR read a two-digit zero decimal part as three digits.
	if zeroSuffix.MatchString(s) {
		head := s[:len(s)-4]
		if i := strings.LastIndexAny(head, ".,"); i >= 0 && head[i] != s[len(s)-4] {
			s = head
		}
	}

	var normalized string
	switch {
	case thousandsSuffix.MatchString(s):
		normalized = stripSeparators(s)
	case strings.Contains(s, ".") && strings.Contains(s, ","):
		dec := byte('.')
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			dec = ','
		}
		normalized = withDecimal(s, dec)
	case strings.Contains(s, ","):
		normalized = withDecimal(s, ',')
	default:
		normalized = withDecimal(s, '.')
	}

	v, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, false
	}
	if !v.IsPositive() || v.GreaterThan(maxAmount) {
		return decimal.Zero, false
	}
	if yearPattern.MatchString(s) && v.GreaterThanOrEqual(minYear) && v.LessThanOrEqual(maxYear) {
		return decimal.Zero, false
	}
	return v, true
}

func stripSeparators(s string) string {
	return strings.NewReplacer(".", "", ",", "").Replace(s)
}

// withDecimal keeps the last occurrence of dec as the decimal point and drops
// every other separator.
func withDecimal(s string, dec byte) string {
	i := strings.LastIndexByte(s, dec)
	if i < 0 {
		return stripSeparators(s)
	}
	return stripSeparators(s[:i]) + "." + stripSeparators(s[i+1:])
}

// Weights are the heuristic tuning constants of the candidate scorer.
type Weights struct {
	ROI      int
	Anchor   int
	Grouped  int
	Currency int
	MinScore int
}

// DefaultWeights returns the weights tuned on the supported receipt layouts.
func DefaultWeights() Weights {
	return Weights{ROI: 100, Anchor: 30, Grouped: 20, Currency: 25, MinScore: 20}
}

// Candidate is a currency-like value found on an OCR line.
type Candidate struct {
	Raw       string
	Value     decimal.Decimal
	Score     int
	Line      string
	LineIndex int
	FromROI   bool
}

// Candidates scans every line for amount candidates and scores them.
// Identifier-like lines are skipped unless they carry the ROI sentinel.
func Candidates(lines []string, anchor *regexp.Regexp, w Weights) []Candidate {
	anchorIdx := -1
	if anchor != nil {
		for i, line := range lines {
			if !IsROILine(line) && anchor.MatchString(line) {
				anchorIdx = i
				break
			}
		}
	}

	var out []Candidate
	for i, line := range lines {
		roi := IsROILine(line)
		text := line
		if roi {
			text = roiText(line)
		} else if identifierLine.MatchString(Fold(line)) {
			continue
		}

		text = datetimePattern.ReplaceAllString(text, " ")
		hasCurrency := currencyMarker.MatchString(text)
		for _, raw := range amountPattern.FindAllString(text, -1) {
			v, ok := NormalizeAmount(raw)
			if !ok {
				continue
			}
			c := Candidate{Raw: raw, Value: v, Line: line, LineIndex: i, FromROI: roi}
			if roi {
				c.Score += w.ROI
			}
			if anchorIdx >= 0 && (i == anchorIdx || i == anchorIdx-1) {
				c.Score += w.Anchor
			}
			if groupedPattern.MatchString(raw) {
				c.Score += w.Grouped
			}
			if hasCurrency {
				c.Score += w.Currency
			}
			out = append(out, c)
		}
	}
	return out
}

// FindAmount picks the numerically largest eligible candidate. When an ROI
// candidate is eligible only ROI candidates compete.
func FindAmount(lines []string, anchor *regexp.Regexp, w Weights) (Candidate, bool) {
	candidates := Candidates(lines, anchor, w)

	threshold := w.MinScore
	for _, c := range candidates {
		if c.FromROI && c.Score >= w.MinScore {
			threshold = max(threshold, w.ROI)
			break
		}
	}

	var best Candidate
	found := false
	for _, c := range candidates {
		if c.Score < threshold {
			continue
		}
		if !found || c.Value.GreaterThan(best.Value) {
			best = c
			found = true
		}
	}
	return best, found
}

// DetectCurrency returns the ISO code suggested by a line: USD when a dollar
// marker is present, ARS otherwise.
func DetectCurrency(line string) string {
	if dollarMarker.MatchString(Fold(line)) {
		return "USD"
	}
	return "ARS"
}
