// Package ocr wraps the local OCR capability: image preprocessing and a
// tesseract backed Engine that returns text lines with bounding boxes.
package ocr

import (
	"context"
	"image"
	"strings"
)

// Page segmentation modes understood by tesseract.
const (
	PSMBlock      = 6 // uniform block of text
	PSMSingleLine = 7
)

// DefaultLang is the language hint used for the supported receipts.
const DefaultLang = "spa"

// Options are the per-call hints passed to the engine.
type Options struct {
	PSM  int
	Lang string
}

// Line is one recognized text line and its box in image coordinates.
type Line struct {
	Text string
	Box  image.Rectangle
}

// Page is the result of one recognition pass.
type Page struct {
	Text  string
	Lines []Line
}

// LineTexts returns the text of every line, in order.
func (p *Page) LineTexts() []string {
	out := make([]string, len(p.Lines))
	for i, l := range p.Lines {
		out[i] = l.Text
	}
	return out
}

// NewPage builds a page from lines, deriving the full text.
func NewPage(lines []Line) *Page {
	texts := make([]string, len(lines))
	for i, l := range lines {
		texts[i] = l.Text
	}
	return &Page{Text: strings.Join(texts, "\n"), Lines: lines}
}

// Engine recognizes text in an encoded image.
type Engine interface {
	Recognize(ctx context.Context, img []byte, opts Options) (*Page, error)
}
