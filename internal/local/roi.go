package local

import (
	"image"
	"regexp"

	"github.com/zombor/receipt-forensics/internal/ocr"
	"github.com/zombor/receipt-forensics/internal/parsing"
)

// partyLine matches lines whose dates belong to a party or tax id, not to the
// transaction.
var partyLine = regexp.MustCompile(`^\s*(?:de|para)\b|cuit|cuil|cvu|cbu|dni`)

// FindROI locates the strip between the transaction date line and the amount
// anchor line. The strip spans the full width of bounds.
func FindROI(lines []ocr.Line, anchor *regexp.Regexp, bounds image.Rectangle, minGap, maxGap int) (image.Rectangle, bool) {
	if anchor == nil {
		return image.Rectangle{}, false
	}

	dateIdx := -1
	for i, l := range lines {
		if parsing.HasDate(l.Text) && !partyLine.MatchString(parsing.Fold(l.Text)) {
			dateIdx = i
			break
		}
	}
	if dateIdx < 0 {
		return image.Rectangle{}, false
	}
	date := lines[dateIdx].Box

	for _, l := range lines[dateIdx+1:] {
		if !anchor.MatchString(l.Text) {
			continue
		}
		gap := l.Box.Min.Y - date.Max.Y
		if gap < minGap || gap > maxGap {
			return image.Rectangle{}, false
		}
		strip := image.Rect(bounds.Min.X, date.Max.Y, bounds.Max.X, l.Box.Min.Y).Intersect(bounds)
		return strip, !strip.Empty()
	}
	return image.Rectangle{}, false
}
