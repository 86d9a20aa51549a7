// Package cloud implements the multi-stage vision model pipeline: classify the
// issuer, retrieve its forensic rules, then extract and audit in one
// schema-constrained call.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zombor/receipt-forensics/internal/analysis"
	"github.com/zombor/receipt-forensics/internal/retry"
	"github.com/zombor/receipt-forensics/internal/vision"
)

var perMillion = decimal.NewFromInt(1_000_000)

// Pricing is the per million token price of the model, in USD.
type Pricing struct {
	Input  decimal.Decimal
	Output decimal.Decimal
}

// DefaultPricing returns the list price of the default Gemini flash model.
func DefaultPricing() Pricing {
	return Pricing{
		Input:  decimal.RequireFromString("0.075"),
		Output: decimal.RequireFromString("0.30"),
	}
}

// Cost returns the estimated cost of u.
func (p Pricing) Cost(u analysis.Usage) decimal.Decimal {
	in := decimal.NewFromInt(int64(u.PromptTokens)).Div(perMillion).Mul(p.Input)
	out := decimal.NewFromInt(int64(u.CompletionTokens)).Div(perMillion).Mul(p.Output)
	return in.Add(out)
}

// Config configures the cloud pipeline.
type Config struct {
	Pricing Pricing
	Retry   retry.Policy
}

// DefaultConfig returns the default pricing and retry policy.
func DefaultConfig() Config {
	return Config{Pricing: DefaultPricing(), Retry: retry.DefaultPolicy()}
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type defaultTimeSource struct{}

func (defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Pipeline analyzes receipts with a vision model.
type Pipeline struct {
	model      vision.Model
	cfg        Config
	logger     *slog.Logger
	timeSource TimeSource
}

// NewPipeline creates a Pipeline. A nil logger uses slog.Default().
func NewPipeline(model vision.Model, cfg Config, logger *slog.Logger) *Pipeline {
	return NewPipelineWithDeps(model, cfg, logger, defaultTimeSource{})
}

// NewPipelineWithDeps creates a Pipeline with a custom time source for testing
func NewPipelineWithDeps(model vision.Model, cfg Config, logger *slog.Logger, timeSrc TimeSource) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pricing == (Pricing{}) {
		cfg.Pricing = DefaultPricing()
	}
	return &Pipeline{
		model:      model,
		cfg:        cfg,
		logger:     logger,
		timeSource: timeSrc,
	}
}

// run accumulates the usage of one analysis.
type run struct {
	p      *Pipeline
	logger *slog.Logger
	usage  analysis.Usage
}

// generate calls the model under the retry policy. Usage of every attempt is
// counted, failed ones included.
func (r *run) generate(ctx context.Context, req vision.Request) (*vision.Response, error) {
	policy := r.p.cfg.Retry
	if policy.Logger == nil {
		policy.Logger = r.logger
	}
	return retry.Do(ctx, policy, func(ctx context.Context) (*vision.Response, error) {
		resp, err := r.p.model.Generate(ctx, req)
		if resp != nil {
			r.usage.Add(resp.Usage)
		}
		return resp, err
	})
}

func (r *run) finish(res *analysis.Result) *analysis.Result {
	usage := r.usage
	cost := r.p.cfg.Pricing.Cost(usage)
	res.Usage = &usage
	res.EstimatedCost = &cost
	res.Normalize()
	return res
}

// Analyze implements analysis.Analyzer.
func (p *Pipeline) Analyze(ctx context.Context, in analysis.Input, obs analysis.Observer) (*analysis.Result, error) {
	progress := analysis.NewProgress(obs)
	defer progress.Close()

	r := &run{
		p:      p,
		logger: p.logger.With("pipeline", analysis.PipelineCloud, "request_id", uuid.NewString()),
	}
	mimeType := in.ContentType
	if mimeType == "" {
		mimeType = "image/png"
	}

	progress.Notify("classifying document")
	key, err := r.classify(ctx, in.Data, mimeType)
	if err != nil {
		return nil, fmt.Errorf("classifying document: %w", err)
	}
	r.logger.Info("document classified", "issuer", key)

	if key == BillingKey {
		res := analysis.Rejection(analysis.PipelineCloud, IssuerLabel(key), "billing document, not a receipt")
		return r.finish(res), nil
	}

	progress.Notify("retrieving rules")
	directives := Rules(key)

	progress.Notify("extracting and auditing")
	resp, err := r.generate(ctx, vision.Request{
		Image:    in.Data,
		MIMEType: mimeType,
		Prompt:   extractPrompt(IssuerLabel(key), directives, p.timeSource.Now()),
		Schema:   ExtractionSchema(),
	})
	if err != nil {
		return nil, fmt.Errorf("extracting receipt: %w", err)
	}
	ext, err := decodeExtraction(resp.Text)
	if err != nil {
		r.logger.Error("invalid extraction", "error", err, "answer", resp.Text)
		return nil, fmt.Errorf("extracting receipt: %w", err)
	}

	res := ext.result()
	res.Profile = IssuerLabel(key)
	res.AppliedRules = directives
	res = r.finish(res)
	r.logger.Info("receipt audited",
		"risk", res.Risk,
		"valid", res.Valid,
		"total_tokens", res.Usage.TotalTokens,
		"estimated_cost", res.EstimatedCost.String(),
	)
	return res, nil
}

// classify runs the cheap short-answer call. An empty answer is generic.
func (r *run) classify(ctx context.Context, image []byte, mimeType string) (string, error) {
	resp, err := r.generate(ctx, vision.Request{
		Image:    image,
		MIMEType: mimeType,
		Prompt:   classifyPrompt(),
	})
	if errors.Is(err, analysis.ErrEmptyModelResponse) {
		return ResolveIssuer(""), nil
	}
	if err != nil {
		return "", err
	}
	return ResolveIssuer(resp.Text), nil
}

func extractPrompt(label string, directives []string, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are auditing a payment receipt issued by %s.\n", label)
	fmt.Fprintf(&b, "Today is %s. A transaction dated after today is fraudulent.\n", now.Format("2006-01-02"))
	b.WriteString("Apply these forensic rules:\n")
	for _, d := range directives {
		fmt.Fprintf(&b, "- %s\n", d)
	}
	b.WriteString("Extract the transaction fields, judge authenticity and answer with one JSON object matching the schema. ")
	b.WriteString("Write the date as DD/MM/YYYY or \"not detected\". Amounts use a dot as decimal separator.")
	return b.String()
}
