// Package ingest turns uploaded receipt files into PNG images the pipelines
// can read.
package ingest

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"net/http"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
	_ "golang.org/x/image/webp" // Register WebP decoder

	"github.com/zombor/receipt-forensics/internal/analysis"
)

const (
	MIMEPNG  = "image/png"
	MIMEPDF  = "application/pdf"
	MIMEHEIC = "image/heic"
)

// Sniff returns the MIME type of data, trusting magic bytes over the declared
// content type.
func Sniff(data []byte, declared string) string {
	switch {
	case isHEICFormat(data):
		return MIMEHEIC
	case bytes.HasPrefix(data, []byte("%PDF-")):
		return MIMEPDF
	}
	detected := http.DetectContentType(data)
	if detected != "application/octet-stream" {
		return strings.SplitN(detected, ";", 2)[0]
	}
	declared = strings.ToLower(strings.TrimSpace(declared))
	if isHEICMimeType(declared) {
		return MIMEHEIC
	}
	return strings.SplitN(declared, ";", 2)[0]
}

// Prepare converts PDFs and non-PNG images to PNG. The returned MIME type is
// always image/png. Formats that cannot be read wrap
// analysis.ErrUnsupportedFormat.
func Prepare(data []byte, contentType string) ([]byte, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty file", analysis.ErrUnsupportedFormat)
	}

	switch mimeType := Sniff(data, contentType); {
	case mimeType == MIMEPDF:
		out, err := pdfToImage(data)
		if err != nil {
			return nil, "", fmt.Errorf("%w: converting PDF to image: %w", analysis.ErrUnsupportedFormat, err)
		}
		return out, MIMEPNG, nil
	case mimeType == MIMEPNG:
		if _, err := png.DecodeConfig(bytes.NewReader(data)); err != nil {
			return nil, "", fmt.Errorf("%w: reading PNG: %w", analysis.ErrUnsupportedFormat, err)
		}
		return data, MIMEPNG, nil
	default:
		out, err := imageToPNG(data, mimeType)
		if err != nil {
			return nil, "", fmt.Errorf("%w: converting %s to PNG: %w", analysis.ErrUnsupportedFormat, mimeType, err)
		}
		return out, MIMEPNG, nil
	}
}

// pdfToImage renders the first page of a PDF as PNG
func pdfToImage(pdfData []byte) ([]byte, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	// Receipts are single page
	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}
	return encodePNG(img)
}

// imageToPNG converts any supported image format to PNG
func imageToPNG(imageData []byte, mimeType string) ([]byte, error) {
	var img image.Image
	var err error

	// Go's standard image package doesn't support HEIC (common on iPhones)
	if mimeType == MIMEHEIC {
		img, err = heic.Decode(bytes.NewReader(imageData))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
	} else {
		img, _, err = image.Decode(bytes.NewReader(imageData))
		if err != nil {
			return nil, fmt.Errorf("decoding image: %w", err)
		}
	}
	return encodePNG(img)
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// isHEICFormat checks for an ftyp box with a HEIC/HEIF brand at offset 4
func isHEICFormat(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "heif", "mif1", "msf1":
		return true
	}
	return false
}

// isHEICMimeType checks if the MIME type indicates HEIC/HEIF format
func isHEICMimeType(mimeType string) bool {
	return strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}
