// Package vision talks to vision-capable language models. Backends return
// plain text plus token usage and classify failures as transient or permanent.
package vision

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/zombor/receipt-forensics/internal/analysis"
)

// Request is one model call. Image may be empty for text-only prompts.
// Schema, when set, is a JSON schema object the answer must conform to.
type Request struct {
	Image    []byte
	MIMEType string
	Prompt   string
	Schema   map[string]any
}

// Response is the text answer of a model call and its token usage.
type Response struct {
	Text  string
	Usage analysis.Usage
}

// Model defines the interface for vision model calls
type Model interface {
	// Generate sends one request and returns the answer text
	Generate(ctx context.Context, req Request) (*Response, error)
	// Close releases resources
	Close() error
}

// classifyStatus marks server-class and rate limit failures as transient.
func classifyStatus(code int, err error) error {
	if code >= http.StatusInternalServerError || code == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %w", analysis.ErrTransientService, err)
	}
	return fmt.Errorf("%w: %w", analysis.ErrPermanentService, err)
}

// classifyTransport marks network failures as transient unless the caller
// cancelled the call.
func classifyTransport(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", analysis.ErrTransientService, err)
	}
	return fmt.Errorf("%w: %w", analysis.ErrPermanentService, err)
}
