package receipt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/receipt-forensics/internal/analysis"
	"github.com/zombor/receipt-forensics/internal/ingest"
)

// ErrUnknownPipeline is returned when no analyzer is registered for the
// requested pipeline.
var ErrUnknownPipeline = errors.New("unknown pipeline")

// IDGenerator generates unique IDs for analyses
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates random UUIDs
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles analysis operations
type Service struct {
	db              DB
	storage         Storage
	analyzers       map[analysis.Pipeline]analysis.Analyzer
	defaultPipeline analysis.Pipeline
	idGenerator     IDGenerator
	timeSource      TimeSource
}

// NewService creates a new Service with default ID generator and time source.
// The first pipeline with an analyzer among local and cloud is the default.
func NewService(db DB, storage Storage, analyzers map[analysis.Pipeline]analysis.Analyzer) *Service {
	return NewServiceWithDeps(db, storage, analyzers, &defaultIDGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, storage Storage, analyzers map[analysis.Pipeline]analysis.Analyzer, idGen IDGenerator, timeSrc TimeSource) *Service {
	s := &Service{
		db:          db,
		storage:     storage,
		analyzers:   analyzers,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
	for _, p := range []analysis.Pipeline{analysis.PipelineLocal, analysis.PipelineCloud} {
		if _, ok := analyzers[p]; ok {
			s.defaultPipeline = p
			break
		}
	}
	return s
}

// SetDefaultPipeline changes the pipeline used when a request names none.
func (s *Service) SetDefaultPipeline(p analysis.Pipeline) error {
	if _, ok := s.analyzers[p]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPipeline, p)
	}
	s.defaultPipeline = p
	return nil
}

var (
	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	spaceRuns   = regexp.MustCompile(`\s+`)
)

// sanitizeFilename cleans up a filename by removing special characters and truncating length
func sanitizeFilename(filename string) string {
	ext := strings.ToLower(unsafeChars.ReplaceAllString(filepath.Ext(filename), ""))
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	base = unsafeChars.ReplaceAllString(base, "")
	base = strings.TrimSpace(spaceRuns.ReplaceAllString(base, " "))

	// Phone cameras produce long names; 50 chars is plenty
	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "receipt"
	}
	if ext != "" {
		ext = "." + ext
	}
	return base + ext
}

// storagePath files uploads under YYYY/MM of their analysis time.
func storagePath(id, filename string, at time.Time) string {
	return path.Join(at.Format("2006"), at.Format("01"), id+"_"+sanitizeFilename(filename))
}

// Analyze converts an upload, runs it through the requested pipeline and
// records the result. An empty pipeline selects the default one.
func (s *Service) Analyze(ctx context.Context, filename string, data []byte, contentType string, pipeline analysis.Pipeline) (*Analysis, error) {
	if pipeline == "" {
		pipeline = s.defaultPipeline
	}
	analyzer, ok := s.analyzers[pipeline]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPipeline, pipeline)
	}

	image, mimeType, err := ingest.Prepare(data, contentType)
	if err != nil {
		return nil, fmt.Errorf("preparing upload: %w", err)
	}

	id := s.idGenerator.Generate()
	now := s.timeSource.Now()
	logger := slog.With("analysis_id", id, "pipeline", pipeline, "filename", filename)

	savedPath, err := s.storage.Save(storagePath(id, filename, now), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	progress := analysis.ObserverFunc(func(status string) {
		logger.Debug("analysis progress", "status", status)
	})
	result, err := analyzer.Analyze(ctx, analysis.Input{Data: image, ContentType: mimeType}, progress)
	if err != nil {
		logger.Error("Failed to analyze receipt",
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		// Clean up the saved file since analysis failed
		if delErr := s.storage.Delete(savedPath); delErr != nil {
			logger.Warn("Failed to delete file", "path", savedPath, "error", delErr)
		}
		return nil, fmt.Errorf("analyzing receipt: %w", err)
	}

	a := &Analysis{
		ID:           id,
		OriginalName: filename,
		Filename:     savedPath,
		ContentType:  ingest.Sniff(data, contentType),
		Pipeline:     pipeline,
		Result:       result,
		CreatedAt:    now,
	}
	if err := s.db.SaveAnalysis(a); err != nil {
		// Clean up file if database save fails
		s.storage.Delete(savedPath)
		return nil, fmt.Errorf("saving analysis to database: %w", err)
	}

	logger.Info("Receipt analyzed",
		"profile", result.Profile,
		"valid", result.Valid,
		"risk", result.Risk,
	)
	return a, nil
}

// GetAnalysis retrieves an analysis by ID
func (s *Service) GetAnalysis(id string) (*Analysis, error) {
	a, err := s.db.GetAnalysis(id)
	if err != nil {
		return nil, fmt.Errorf("getting analysis: %w", err)
	}
	return a, nil
}

// ListAnalyses returns all analyses
func (s *Service) ListAnalyses() ([]*Analysis, error) {
	analyses, err := s.db.ListAnalyses()
	if err != nil {
		return nil, fmt.Errorf("listing analyses: %w", err)
	}
	return analyses, nil
}

// DeleteAnalysis removes an analysis and its file
func (s *Service) DeleteAnalysis(id string) error {
	a, err := s.db.GetAnalysis(id)
	if err != nil {
		return fmt.Errorf("getting analysis for deletion: %w", err)
	}

	if err := s.storage.Delete(a.Filename); err != nil {
		// Log error but continue with database deletion
		slog.Warn("Failed to delete file", "filename", a.Filename, "error", err)
	}

	if err := s.db.DeleteAnalysis(id); err != nil {
		return fmt.Errorf("deleting analysis from database: %w", err)
	}
	return nil
}

// GetAnalysisFile retrieves the uploaded file of an analysis
func (s *Service) GetAnalysisFile(id string) ([]byte, string, error) {
	a, err := s.db.GetAnalysis(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting analysis: %w", err)
	}

	data, err := s.storage.Get(a.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting analysis file: %w", err)
	}

	return data, a.ContentType, nil
}
