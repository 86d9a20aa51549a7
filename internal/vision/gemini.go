package vision

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/zombor/receipt-forensics/internal/analysis"
)

// DefaultGeminiModel is used when no model name is configured.
const DefaultGeminiModel = "gemini-1.5-flash"

// Gemini implements the Model interface using Google Gemini
type Gemini struct {
	client    *genai.Client
	modelName string
}

// NewGemini creates a new Gemini Model instance
func NewGemini(ctx context.Context, apiKey string, modelName string, opts ...option.ClientOption) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Gemini{
		client:    client,
		modelName: modelName,
	}, nil
}

// Generate implements Model. Each call gets its own model handle so response
// settings never leak between calls.
func (g *Gemini) Generate(ctx context.Context, req Request) (*Response, error) {
	model := g.client.GenerativeModel(g.modelName)
	model.SetTemperature(0)
	if req.Schema != nil {
		schema, err := GeminiSchema(req.Schema)
		if err != nil {
			return nil, fmt.Errorf("converting response schema: %w", err)
		}
		model.ResponseMIMEType = "application/json"
		model.ResponseSchema = schema
	}

	var parts []genai.Part
	if len(req.Image) > 0 {
		// genai.ImageData expects just the format suffix (e.g., "png")
		parts = append(parts, genai.ImageData(imageFormat(req.MIMEType), req.Image))
	}
	parts = append(parts, genai.Text(req.Prompt))

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("generating content: %w", classifyGeminiError(ctx, err))
	}

	out := &Response{}
	if resp.UsageMetadata != nil {
		out.Usage = analysis.Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return out, fmt.Errorf("no response from gemini: %w", analysis.ErrEmptyModelResponse)
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	out.Text = strings.TrimSpace(text.String())
	if out.Text == "" {
		return out, fmt.Errorf("no text from gemini: %w", analysis.ErrEmptyModelResponse)
	}
	return out, nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}

func imageFormat(mimeType string) string {
	format := strings.TrimPrefix(strings.ToLower(mimeType), "image/")
	if format == "" || strings.Contains(format, "/") {
		return "png"
	}
	return format
}

func classifyGeminiError(ctx context.Context, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.Code, err)
	}
	if s, ok := status.FromError(err); ok && s.Code() != codes.Unknown {
		switch s.Code() {
		case codes.Unavailable, codes.Internal, codes.ResourceExhausted, codes.DeadlineExceeded, codes.Aborted:
			return fmt.Errorf("%w: %w", analysis.ErrTransientService, err)
		case codes.Canceled:
			return err
		default:
			return fmt.Errorf("%w: %w", analysis.ErrPermanentService, err)
		}
	}
	return classifyTransport(ctx, err)
}

var geminiTypes = map[string]genai.Type{
	"object":  genai.TypeObject,
	"array":   genai.TypeArray,
	"string":  genai.TypeString,
	"number":  genai.TypeNumber,
	"integer": genai.TypeInteger,
	"boolean": genai.TypeBoolean,
}

// GeminiSchema converts a JSON schema object into the subset Gemini accepts:
// type, description, enum, items, properties and required.
func GeminiSchema(m map[string]any) (*genai.Schema, error) {
	name, _ := m["type"].(string)
	t, ok := geminiTypes[name]
	if !ok {
		return nil, fmt.Errorf("unsupported schema type %q", name)
	}
	s := &genai.Schema{Type: t}
	s.Description, _ = m["description"].(string)
	s.Enum = stringList(m["enum"])

	if items, ok := m["items"].(map[string]any); ok {
		child, err := GeminiSchema(items)
		if err != nil {
			return nil, fmt.Errorf("items: %w", err)
		}
		s.Items = child
	}

	if props, ok := m["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		keys := make([]string, 0, len(props))
		for k := range props {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			pm, ok := props[k].(map[string]any)
			if !ok {
				return nil, fmt.Errorf("property %q is not an object", k)
			}
			child, err := GeminiSchema(pm)
			if err != nil {
				return nil, fmt.Errorf("property %q: %w", k, err)
			}
			s.Properties[k] = child
		}
	}
	s.Required = stringList(m["required"])
	return s, nil
}

func stringList(v any) []string {
	switch l := v.(type) {
	case []string:
		return append([]string(nil), l...)
	case []any:
		out := make([]string, 0, len(l))
		for _, e := range l {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
