package ocr

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder

	"github.com/zombor/receipt-forensics/internal/analysis"
)

// DefaultTargetWidth is the canonical width receipts are upscaled to before
// OCR.
const DefaultTargetWidth = 1800

// Prepared is a preprocessed page: the luminance image used for cropping and
// its PNG encoding used for recognition.
type Prepared struct {
	Image *image.Gray
	PNG   []byte
}

// Preprocess decodes data, upscales it to targetWidth when narrower, converts
// it to luminance and stretches its contrast to the full [0,255] range.
func Preprocess(data []byte, targetWidth int) (*Prepared, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding image: %w", analysis.ErrUnsupportedFormat, err)
	}
	if targetWidth <= 0 {
		targetWidth = DefaultTargetWidth
	}

	b := src.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("%w: empty image", analysis.ErrUnsupportedFormat)
	}

	var gray *image.Gray
	if b.Dx() < targetWidth {
		h := b.Dy() * targetWidth / b.Dx()
		gray = image.NewGray(image.Rect(0, 0, targetWidth, h))
		draw.CatmullRom.Scale(gray, gray.Bounds(), src, b, draw.Src, nil)
	} else {
		gray = image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(gray, gray.Bounds(), src, b.Min, draw.Src)
	}

	ContrastStretch(gray)

	encoded, err := EncodePNG(gray)
	if err != nil {
		return nil, err
	}
	return &Prepared{Image: gray, PNG: encoded}, nil
}

// ContrastStretch linearly maps the luminance range of img onto [0,255].
func ContrastStretch(img *image.Gray) {
	if len(img.Pix) == 0 {
		return
	}
	lo, hi := img.Pix[0], img.Pix[0]
	for _, v := range img.Pix {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	if hi == lo {
		return
	}
	span := int(hi) - int(lo)
	for i, v := range img.Pix {
		s := (int(v) - int(lo)) * 255 / span
		img.Pix[i] = uint8(min(max(s, 0), 255))
	}
}

// Crop returns the PNG encoding of the part of img inside r.
func Crop(img *image.Gray, r image.Rectangle) ([]byte, error) {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return nil, fmt.Errorf("crop rectangle %v outside image %v", r, img.Bounds())
	}
	return EncodePNG(img.SubImage(r))
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}
