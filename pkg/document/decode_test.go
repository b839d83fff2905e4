package document

import (
	"context"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
)

func TestDecodeSingleImage(t *testing.T) {
	work := t.TempDir()
	src := filepath.Join(work, "scan.png")
	img := imaging.New(400, 200, color.NRGBA{255, 255, 255, 255})
	if err := imaging.Save(img, src); err != nil {
		t.Fatalf("save source image: %v", err)
	}
	pages, err := DecodePages(context.Background(), Config{}, src, work)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(pages))
	}
	if _, err := os.Stat(pages[0]); err != nil {
		t.Fatalf("page image missing: %v", err)
	}
}

func TestDecodeCorruptImage(t *testing.T) {
	work := t.TempDir()
	src := filepath.Join(work, "photo.png")
	if err := os.WriteFile(src, []byte("not a png"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := DecodePages(context.Background(), Config{}, src, work)
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}
