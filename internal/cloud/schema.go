package cloud

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/shopspring/decimal"

	"github.com/zombor/receipt-forensics/internal/analysis"
	"github.com/zombor/receipt-forensics/internal/vision"
)

// ExtractionSchema returns the JSON schema of the extract and audit answer.
// A fresh map is built on every call.
func ExtractionSchema() map[string]any {
	str := func(desc string) map[string]any {
		return map[string]any{"type": "string", "description": desc}
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"amount":         map[string]any{"type": "number", "description": "transferred amount, dot as decimal separator"},
			"currency":       str("ISO 4217 code, ARS or USD"),
			"date":           str("transaction date as DD/MM/YYYY, or 'not detected'"),
			"sender":         str("name of the payer"),
			"receiver":       str("name of the payee"),
			"is_valid":       map[string]any{"type": "boolean", "description": "true when the receipt looks authentic and completed"},
			"risk_score":     map[string]any{"type": "integer", "description": "fraud risk from 0 to 100"},
			"confidence":     map[string]any{"type": "number", "description": "confidence in the reading from 0 to 1"},
			"reasoning":      str("short justification of the verdict"),
			"receipt_type":   str("transfer, payment, deposit or other"),
			"payment_method": str("account, card, QR or other"),
			"tax_id":         str("CUIT/CUIL of the sender when visible"),
			"receipt_number": str("operation or receipt number"),
		},
		"required": []any{
			"amount", "currency", "date", "sender", "receiver",
			"is_valid", "risk_score", "confidence", "reasoning",
		},
	}
}

// extraction is the decoded extract and audit answer.
type extraction struct {
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Date          string          `json:"date"`
	Sender        string          `json:"sender"`
	Receiver      string          `json:"receiver"`
	Valid         bool            `json:"is_valid"`
	Risk          int             `json:"risk_score"`
	Confidence    float64         `json:"confidence"`
	Reasoning     string          `json:"reasoning"`
	ReceiptType   string          `json:"receipt_type"`
	PaymentMethod string          `json:"payment_method"`
	TaxID         string          `json:"tax_id"`
	ReceiptNumber string          `json:"receipt_number"`
}

// ValidateJSONAgainstSchema validates data against schemaMap.
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("%w: unmarshal data: %w", analysis.ErrSchemaViolation, err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("%w: %w", analysis.ErrSchemaViolation, err)
	}
	return nil
}

// decodeExtraction pulls the JSON object out of a model answer, validates it
// and decodes it.
func decodeExtraction(text string) (*extraction, error) {
	raw, err := vision.ExtractJSON(text)
	if err != nil {
		return nil, err
	}
	if err := ValidateJSONAgainstSchema(ExtractionSchema(), []byte(raw)); err != nil {
		return nil, err
	}
	var e extraction
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return nil, fmt.Errorf("%w: decoding extraction: %w", analysis.ErrSchemaViolation, err)
	}
	return &e, nil
}

func (e *extraction) result() *analysis.Result {
	return &analysis.Result{
		Amount:        e.Amount,
		Currency:      e.Currency,
		Date:          e.Date,
		Sender:        e.Sender,
		Receiver:      e.Receiver,
		Valid:         e.Valid,
		Risk:          e.Risk,
		Confidence:    e.Confidence,
		Reasoning:     e.Reasoning,
		Pipeline:      analysis.PipelineCloud,
		ReceiptType:   e.ReceiptType,
		PaymentMethod: e.PaymentMethod,
		TaxID:         e.TaxID,
		ReceiptNumber: e.ReceiptNumber,
	}
}
