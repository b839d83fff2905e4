package document

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
)

// Config controls rasterization of PDF inputs.
type Config struct {
	Pdftoppm string // binary name or absolute path; empty -> "pdftoppm"
	DPI      int    // rasterization DPI, default 300
}

func (c Config) withDefaults() Config {
	if c.Pdftoppm == "" {
		c.Pdftoppm = "pdftoppm"
	}
	if c.DPI <= 0 {
		c.DPI = 300
	}
	return c
}

// DecodePages turns the uploaded file at path into an ordered list of page
// images, one PNG per page, written into workDir. The caller owns workDir and
// removes it when the request finishes; no other cleanup is needed.
func DecodePages(ctx context.Context, cfg Config, path, workDir string) ([]string, error) {
	if IsPDF(path) {
		return rasterizePDF(ctx, cfg.withDefaults(), path, workDir)
	}
	page, err := preprocessImage(path, workDir)
	if err != nil {
		return nil, err
	}
	return []string{page}, nil
}

func rasterizePDF(ctx context.Context, cfg Config, path, workDir string) ([]string, error) {
	prefix := filepath.Join(workDir, "page")
	cmd := exec.CommandContext(ctx, cfg.Pdftoppm, "-r", fmt.Sprintf("%d", cfg.DPI), "-png", path, prefix)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("%w: pdftoppm: %v: %s", ErrDecode, err, strings.TrimSpace(string(out)))
	}
	// pdftoppm pads page numbers to a uniform width, so a lexical sort keeps page order
	pages, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(pages)
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: pdf produced no pages", ErrDecode)
	}
	return pages, nil
}

// preprocessImage opens a single raster image and writes the OCR-ready
// variant: grayscale, upscaled when the source is small.
func preprocessImage(path, workDir string) (string, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	gray := imaging.Grayscale(img)
	if gray.Bounds().Dy() < 800 {
		gray = imaging.Resize(gray, 0, 1200, imaging.Lanczos)
	}
	out := filepath.Join(workDir, "page-1.png")
	if err := imaging.Save(gray, out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return out, nil
}
