package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Poppler rasterizes PDFs with pdftoppm from poppler-utils.
type Poppler struct {
	path string
	dpi  int
}

func NewPoppler(path string, dpi int) *Poppler {
	if path == "" {
		path = "pdftoppm"
	}
	if resolved, err := exec.LookPath(path); err == nil {
		path = resolved
	}
	if dpi <= 0 {
		dpi = 300
	}
	return &Poppler{path: path, dpi: dpi}
}

func (p *Poppler) IsAvailable(ctx context.Context) bool {
	cmd := exec.CommandContext(ctx, p.path, "-v")
	return cmd.Run() == nil
}

func (p *Poppler) Rasterize(ctx context.Context, pdf []byte) ([]Page, error) {
	tmpDir, err := os.MkdirTemp("", "pdfprecheck-ocr-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	in := filepath.Join(tmpDir, "in.pdf")
	if err := os.WriteFile(in, pdf, 0o600); err != nil {
		return nil, fmt.Errorf("write temp pdf: %w", err)
	}

	prefix := filepath.Join(tmpDir, "page")
	cmd := exec.CommandContext(ctx, p.path, "-r", strconv.Itoa(p.dpi), "-png", in, prefix)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	matches, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return nil, fmt.Errorf("glob page images: %w", err)
	}

	pages := make([]Page, 0, len(matches))
	for _, m := range matches {
		idx, ok := pageIndex(filepath.Base(m))
		if !ok {
			continue
		}
		img, err := os.ReadFile(m)
		if err != nil {
			return nil, fmt.Errorf("read page %d: %w", idx, err)
		}
		pages = append(pages, Page{Index: idx, Image: img})
	}
	sortPages(pages)

	return pages, nil
}

// pageIndex parses the page number out of pdftoppm's "page-07.png" naming.
// The number is zero padded to the width of the page count.
func pageIndex(name string) (int, bool) {
	stem := strings.TrimSuffix(name, ".png")
	i := strings.LastIndexByte(stem, '-')
	if i < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(stem[i+1:])
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

func sortPages(pages []Page) {
	sort.Slice(pages, func(i, j int) bool { return pages[i].Index < pages[j].Index })
}
