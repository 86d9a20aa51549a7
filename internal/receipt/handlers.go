package receipt

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/zombor/receipt-forensics/internal/analysis"
)

// maxUploadSize bounds uploads; high-resolution phone photos fit well below.
const maxUploadSize = int64(50 << 20)

// writeJSON writes v as a JSON response
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeError writes a JSON error body
func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListAnalyses returns all analyses
func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	analyses, err := s.service.ListAnalyses()
	if err != nil {
		slog.Error("Error listing analyses", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if analyses == nil {
		analyses = []*Analysis{}
	}
	writeJSON(w, http.StatusOK, analyses)
}

// contentTypeFor guesses a content type from the file extension when the
// client did not send one
func contentTypeFor(filename, declared string) string {
	declared = strings.ToLower(strings.TrimSpace(declared))
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	}
	return "application/octet-stream"
}

// handleCreateAnalysis handles receipt upload and analysis
func (s *Server) handleCreateAnalysis(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file is too large, maximum size is 50MB")
			return
		}
		writeError(w, http.StatusBadRequest, "error parsing form")
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		writeError(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeError(w, http.StatusInternalServerError, "error reading file")
		return
	}

	pipeline := analysis.Pipeline(strings.ToLower(strings.TrimSpace(r.FormValue("pipeline"))))
	contentType := contentTypeFor(header.Filename, header.Header.Get("Content-Type"))

	a, err := s.service.Analyze(r.Context(), header.Filename, data, contentType, pipeline)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, a)
	case errors.Is(err, ErrUnknownPipeline):
		writeError(w, http.StatusBadRequest, "unknown pipeline")
	case errors.Is(err, analysis.ErrUnsupportedFormat):
		writeError(w, http.StatusUnsupportedMediaType, "unsupported format")
	default:
		slog.Error("Error processing receipt", "filename", header.Filename, "error", err)
		writeError(w, http.StatusInternalServerError, "processing failed")
	}
}

// handleGetAnalysis returns a single analysis
func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	a, err := s.service.GetAnalysis(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "analysis not found")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// handleGetAnalysisFile returns the uploaded file of an analysis
func (s *Server) handleGetAnalysisFile(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetAnalysisFile(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleDeleteAnalysis deletes an analysis
func (s *Server) handleDeleteAnalysis(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteAnalysis(r.PathValue("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "analysis not found")
			return
		}
		slog.Error("Error deleting analysis", "error", err)
		writeError(w, http.StatusInternalServerError, "error deleting analysis")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
