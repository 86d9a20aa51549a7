package analysis

import (
	"strings"

	"github.com/shopspring/decimal"
)

// NotDetected is emitted for textual fields the pipelines could not read.
const NotDetected = "not detected"

// Pipeline names the pipeline that produced a Result.
type Pipeline string

const (
	PipelineLocal Pipeline = "local"
	PipelineCloud Pipeline = "cloud"
)

// Usage holds token counts reported by the vision model service.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total"`
}

// Add accumulates another call's usage into u.
func (u *Usage) Add(o Usage) {
	u.PromptTokens += o.PromptTokens
	u.CompletionTokens += o.CompletionTokens
	u.TotalTokens += o.TotalTokens
}

// Result is the contract returned by both pipelines. Pipeline specific
// fields are left empty when not applicable.
type Result struct {
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	Date       string          `json:"date"`
	Sender     string          `json:"sender"`
	Receiver   string          `json:"receiver"`
	Valid      bool            `json:"is_valid"`
	Risk       int             `json:"risk_score"`
	Confidence float64         `json:"confidence"`
	Reasoning  string          `json:"reasoning"`
	Profile    string          `json:"detected_profile"`
	Pipeline   Pipeline        `json:"pipeline"`

	AppliedRules  []string         `json:"applied_rules,omitempty"`
	Usage         *Usage           `json:"usage,omitempty"`
	EstimatedCost *decimal.Decimal `json:"estimated_cost,omitempty"`
	RawText       string           `json:"raw_text,omitempty"`

	ReceiptType   string `json:"receipt_type,omitempty"`
	PaymentMethod string `json:"payment_method,omitempty"`
	TaxID         string `json:"tax_id,omitempty"`
	ReceiptNumber string `json:"receipt_number,omitempty"`
}

// Normalize enforces the declared bounds of the contract: risk in [0,100],
// confidence in [0,1] and no silently empty date.
func (r *Result) Normalize() {
	r.Risk = ClampRisk(r.Risk)
	r.Confidence = ClampConfidence(r.Confidence)
	if strings.TrimSpace(r.Date) == "" {
		r.Date = NotDetected
	}
	if strings.TrimSpace(r.Sender) == "" {
		r.Sender = NotDetected
	}
	if strings.TrimSpace(r.Receiver) == "" {
		r.Receiver = NotDetected
	}
}

// ClampRisk bounds a risk score to [0,100].
func ClampRisk(risk int) int {
	return min(max(risk, 0), 100)
}

// ClampConfidence bounds a confidence value to [0,1].
func ClampConfidence(c float64) float64 {
	if c != c { // NaN
		return 0
	}
	return min(max(c, 0), 1)
}

// Rejection builds the negative result used when a document is classified as
// something other than a payment receipt.
func Rejection(pipeline Pipeline, profile, reason string) *Result {
	r := &Result{
		Amount:     decimal.Zero,
		Valid:      false,
		Risk:       100,
		Confidence: 0.9,
		Reasoning:  reason,
		Profile:    profile,
		Pipeline:   pipeline,
	}
	r.Normalize()
	return r
}
