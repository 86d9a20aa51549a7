package analysis

import "errors"

var (
	// ErrUnsupportedFormat is returned by the ingestion layer for inputs it
	// cannot turn into an image.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrEmptyModelResponse means the model answered with no usable text.
	ErrEmptyModelResponse = errors.New("empty model response")
	// ErrSchemaViolation means a structured response is missing required fields
	// or does not match the declared schema.
	ErrSchemaViolation = errors.New("structured response violates schema")
	// ErrTransientService marks retryable (server-class) service failures.
	ErrTransientService = errors.New("transient service error")
	// ErrPermanentService marks service failures that must not be retried.
	ErrPermanentService = errors.New("permanent service error")
	// ErrOCRUnavailable means the local OCR capability is absent.
	ErrOCRUnavailable = errors.New("ocr capability unavailable")
	// ErrProcessingFailed is the generic failure surfaced once retries are
	// exhausted. The last underlying error stays in the chain.
	ErrProcessingFailed = errors.New("processing failed")
)
