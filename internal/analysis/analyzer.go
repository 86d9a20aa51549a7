package analysis

import "context"

// Input is an encoded image handed over by the ingestion layer.
type Input struct {
	Data        []byte
	ContentType string
}

// Analyzer is implemented by both pipelines.
type Analyzer interface {
	Analyze(ctx context.Context, in Input, progress Observer) (*Result, error)
}
