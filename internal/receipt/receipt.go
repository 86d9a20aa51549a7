package receipt

import (
	"time"

	"github.com/zombor/receipt-forensics/internal/analysis"
)

// Analysis is one analyzed upload and its result
type Analysis struct {
	ID           string            `json:"id"`
	OriginalName string            `json:"original_name"`
	Filename     string            `json:"filename"` // Path in storage
	ContentType  string            `json:"content_type"`
	Pipeline     analysis.Pipeline `json:"pipeline"`
	Result       *analysis.Result  `json:"result"`
	CreatedAt    time.Time         `json:"created_at"`
}
