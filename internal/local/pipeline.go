// Package local implements the fully local receipt pipeline: tesseract OCR
// followed by layout heuristics and a rule based risk score.
package local

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zombor/receipt-forensics/internal/analysis"
	"github.com/zombor/receipt-forensics/internal/ocr"
	"github.com/zombor/receipt-forensics/internal/parsing"
	"github.com/zombor/receipt-forensics/internal/profile"
)

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type defaultTimeSource struct{}

func (defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Pipeline analyzes receipts with the local OCR engine.
type Pipeline struct {
	engine     ocr.Engine
	cfg        Config
	logger     *slog.Logger
	timeSource TimeSource
}

// NewPipeline creates a Pipeline. A nil logger uses slog.Default().
func NewPipeline(engine ocr.Engine, cfg Config, logger *slog.Logger) *Pipeline {
	return NewPipelineWithDeps(engine, cfg, logger, defaultTimeSource{})
}

// NewPipelineWithDeps creates a Pipeline with a custom time source for testing
func NewPipelineWithDeps(engine ocr.Engine, cfg Config, logger *slog.Logger, timeSrc TimeSource) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		engine:     engine,
		cfg:        cfg.withDefaults(),
		logger:     logger,
		timeSource: timeSrc,
	}
}

// run carries the state of one analysis.
type run struct {
	state    State
	logger   *slog.Logger
	progress *analysis.Progress
}

func (r *run) enter(s State, attrs ...any) {
	r.state = s
	r.logger.Debug("local pipeline state", append([]any{"state", s}, attrs...)...)
}

func (r *run) fail(err error) error {
	failed := r.state
	r.state = StateFailed
	r.logger.Error("local pipeline failed", "state", StateFailed, "failed_in", failed, "error", err)
	return &StateError{State: failed, Err: err}
}

// Analyze implements analysis.Analyzer.
func (p *Pipeline) Analyze(ctx context.Context, in analysis.Input, obs analysis.Observer) (*analysis.Result, error) {
	progress := analysis.NewProgress(obs)
	defer progress.Close()

	r := &run{
		logger:   p.logger.With("pipeline", analysis.PipelineLocal, "request_id", uuid.NewString()),
		progress: progress,
	}
	r.enter(StateReceived, "content_type", in.ContentType, "bytes", len(in.Data))

	progress.Notify("preprocessing image")
	prepared, err := ocr.Preprocess(in.Data, p.cfg.TargetWidth)
	if err != nil {
		return nil, r.fail(fmt.Errorf("preprocessing image: %w", err))
	}
	r.enter(StatePreprocessed, "width", prepared.Image.Bounds().Dx(), "height", prepared.Image.Bounds().Dy())

	progress.Notify("reading text")
	page, err := p.engine.Recognize(ctx, prepared.PNG, ocr.Options{PSM: ocr.PSMBlock, Lang: p.cfg.Lang})
	if err != nil {
		return nil, r.fail(fmt.Errorf("recognizing page: %w", err))
	}
	r.enter(StateFirstPassOCR, "lines", len(page.Lines))

	prof := profile.Detect(page.Text)
	r.enter(StateProfileDetected, "profile", prof.ID)

	if prof.IsGeneric() {
		if reason, ok := Gatekeep(page.Text); !ok {
			r.enter(StateRejected, "reason", reason)
			res := analysis.Rejection(analysis.PipelineLocal, prof.Name, reason)
			if p.cfg.IncludeRawText {
				res.RawText = page.Text
			}
			return res, nil
		}
	}
	r.enter(StateGatekeeperChecked)

	lines := page.LineTexts()
	text := page.Text
	if roiText, ok := p.refine(ctx, r, prepared, page, prof); ok {
		lines = append([]string{parsing.ROILine(roiText)}, lines...)
		text = parsing.ROILine(roiText) + "\n" + text
		r.enter(StateROIRefined, "roi_text", roiText)
	} else {
		r.enter(StateNoROI)
	}

	progress.Notify("parsing fields")
	res, amountFound, date := p.parseFields(text, lines, prof)
	r.enter(StateFieldsParsed, "amount", res.Amount.String(), "date", res.Date)

	progress.Notify("scoring")
	res.Risk, res.Reasoning = Score(amountFound, date, p.timeSource.Now())
	res.Valid = res.Risk < 50
	factor := 1.0
	if prof.IsGeneric() {
		factor = p.cfg.GenericConfidence
	}
	res.Confidence = float64(100-res.Risk) / 100 * factor
	res.Normalize()
	r.enter(StateScored, "risk", res.Risk, "valid", res.Valid)

	if p.cfg.IncludeRawText {
		res.RawText = text
	}
	r.enter(StateDone)
	return res, nil
}

// refine runs the single line OCR pass over the region between the date and
// the amount anchor. A failed refinement falls back to the first pass.
func (p *Pipeline) refine(ctx context.Context, r *run, prepared *ocr.Prepared, page *ocr.Page, prof profile.Profile) (string, bool) {
	strip, ok := FindROI(page.Lines, prof.AmountAnchor, prepared.Image.Bounds(), p.cfg.MinROIGap, p.cfg.MaxROIGap)
	if !ok {
		return "", false
	}

	r.progress.Notify("refining amount region")
	crop, err := ocr.Crop(prepared.Image, strip)
	if err != nil {
		r.logger.Warn("cropping region of interest", "rect", strip.String(), "error", err)
		return "", false
	}
	roi, err := p.engine.Recognize(ctx, crop, ocr.Options{PSM: ocr.PSMSingleLine, Lang: p.cfg.Lang})
	if err != nil {
		r.logger.Warn("recognizing region of interest", "rect", strip.String(), "error", err)
		return "", false
	}
	text := strings.Join(strings.Fields(roi.Text), " ")
	return text, text != ""
}

func (p *Pipeline) parseFields(text string, lines []string, prof profile.Profile) (*analysis.Result, bool, *parsing.Date) {
	res := &analysis.Result{
		Amount:   decimal.Zero,
		Currency: "ARS",
		Profile:  prof.Name,
		Pipeline: analysis.PipelineLocal,
	}

	if sender, ok := parsing.ExtractParty(text, prof.Senders, parsing.FallbackSenders); ok {
		res.Sender = sender
	}
	if receiver, ok := parsing.ExtractParty(text, prof.Receivers, parsing.FallbackReceivers); ok {
		res.Receiver = receiver
	}

	c, amountFound := parsing.FindAmount(lines, prof.AmountAnchor, p.cfg.Weights)
	if amountFound {
		res.Amount = c.Value
		res.Currency = parsing.DetectCurrency(c.Line)
	}

	var date *parsing.Date
	if d, ok := parsing.ParseDate(text, prof.DateHint); ok {
		res.Date = d.Text
		date = &d
	}

	res.Normalize()
	return res, amountFound, date
}
