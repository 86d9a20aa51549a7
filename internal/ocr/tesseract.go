package ocr

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os/exec"
	"strconv"
	"strings"

	"github.com/zombor/receipt-forensics/internal/analysis"
)

// TesseractConfig configures the tesseract binary.
type TesseractConfig struct {
	Binary      string // binary name or absolute path; default "tesseract"
	TessdataDir string
	OEM         int // 1 = LSTM; 0 leaves the default
}

// Tesseract is an Engine backed by the tesseract CLI in TSV mode.
type Tesseract struct {
	cfg    TesseractConfig
	runner Runner
}

// NewTesseract creates a Tesseract engine. A nil runner uses ExecRunner.
func NewTesseract(cfg TesseractConfig, runner Runner) *Tesseract {
	if cfg.Binary == "" {
		cfg.Binary = "tesseract"
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Tesseract{cfg: cfg, runner: runner}
}

// Available reports whether the tesseract binary can be found.
func (t *Tesseract) Available() error {
	if _, err := exec.LookPath(t.cfg.Binary); err != nil {
		return fmt.Errorf("%w: %w", analysis.ErrOCRUnavailable, err)
	}
	return nil
}

// Recognize implements Engine. The image is streamed on stdin.
func (t *Tesseract) Recognize(ctx context.Context, img []byte, opts Options) (*Page, error) {
	lang := opts.Lang
	if lang == "" {
		lang = DefaultLang
	}
	args := []string{"stdin", "stdout", "-l", lang}
	if opts.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(opts.PSM))
	}
	if t.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(t.cfg.OEM))
	}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}
	args = append(args, "tsv")

	out, errb, err := t.runner.Run(ctx, img, t.cfg.Binary, args...)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", analysis.ErrOCRUnavailable, err)
		}
		return nil, fmt.Errorf("tesseract: %w: %s", err, truncate(string(errb), 512))
	}
	return ParseTSV(out)
}

type lineKey struct{ page, block, par, line int }

// ParseTSV groups the word rows of tesseract TSV output into lines.
func ParseTSV(tsv []byte) (*Page, error) {
	var (
		order []lineKey
		words = map[lineKey][]string{}
		boxes = map[lineKey]image.Rectangle{}
	)

	sc := bufio.NewScanner(bytes.NewReader(tsv))
	sc.Buffer(make([]byte, 0, 64<<10), 4<<20)
	for i := 0; sc.Scan(); i++ {
		row := sc.Text()
		if i == 0 || row == "" {
			continue // header
		}
		cols := strings.Split(row, "\t")
		if len(cols) < 12 || cols[0] != "5" {
			continue // only word rows carry text
		}
		text := strings.TrimSpace(cols[11])
		if text == "" {
			continue
		}
		n, err := atois(cols[1:10])
		if err != nil {
			return nil, fmt.Errorf("parsing tsv row %d: %w", i, err)
		}
		key := lineKey{n[0], n[1], n[2], n[3]}
		box := image.Rect(n[5], n[6], n[5]+n[7], n[6]+n[8])
		if _, seen := words[key]; !seen {
			order = append(order, key)
			boxes[key] = box
		} else {
			boxes[key] = boxes[key].Union(box)
		}
		words[key] = append(words[key], text)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading tsv: %w", err)
	}

	lines := make([]Line, 0, len(order))
	for _, key := range order {
		lines = append(lines, Line{Text: strings.Join(words[key], " "), Box: boxes[key]})
	}
	return NewPage(lines), nil
}

func atois(cols []string) ([]int, error) {
	out := make([]int, len(cols))
	for i, c := range cols {
		v, err := strconv.Atoi(strings.TrimSpace(c))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
