package local

import (
	"github.com/zombor/receipt-forensics/internal/ocr"
	"github.com/zombor/receipt-forensics/internal/parsing"
)

// Config holds the tuning constants of the local pipeline.
type Config struct {
	// TargetWidth is the width images are upscaled to before OCR.
	TargetWidth int
	// MinROIGap and MaxROIGap bound the vertical distance in pixels between
	// the date line and the amount anchor line for the ROI pass to run.
	MinROIGap int
	MaxROIGap int
	Weights   parsing.Weights
	Lang      string
	// GenericConfidence scales the confidence of results read with the
	// generic profile.
	GenericConfidence float64
	// IncludeRawText copies the OCR text into the result.
	IncludeRawText bool
}

// DefaultConfig returns the defaults tuned for phone screenshots of receipts.
func DefaultConfig() Config {
	return Config{
		TargetWidth:       ocr.DefaultTargetWidth,
		MinROIGap:         15,
		MaxROIGap:         700,
		Weights:           parsing.DefaultWeights(),
		Lang:              ocr.DefaultLang,
		GenericConfidence: 0.8,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TargetWidth <= 0 {
		c.TargetWidth = d.TargetWidth
	}
	if c.MaxROIGap <= 0 {
		c.MinROIGap, c.MaxROIGap = d.MinROIGap, d.MaxROIGap
	}
	if c.Weights == (parsing.Weights{}) {
		c.Weights = d.Weights
	}
	if c.Lang == "" {
		c.Lang = d.Lang
	}
	if c.GenericConfidence <= 0 {
		c.GenericConfidence = d.GenericConfidence
	}
	return c
}
