package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	xdraw "golang.org/x/image/draw"

	"artengine/internal/catalog"
	"artengine/internal/domain"
)

// PreResize runs the one-shot downscale pass before any item is drawn.
// Variants whose larger dimension exceeds the canvas edge are scaled
// uniformly into workDir and the catalog's source paths are rewritten to the
// working copies; everything else keeps its original path untouched, so
// in-bounds inputs pass through byte for byte. Enlargement never happens.
//
// lowMemory swaps the scaler for a cheaper kernel to bound the working set.
func (r *Renderer) PreResize(ctx context.Context, c *catalog.Catalog, workDir string, lowMemory bool) error {
	scaler := xdraw.Scaler(xdraw.CatmullRom)
	if lowMemory {
		scaler = xdraw.ApproxBiLinear
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return domain.IOError(workDir, err)
	}
	for li := range c.Layers {
		layer := &c.Layers[li]
		if !layer.Active {
			continue
		}
		for vi := range layer.Variants {
			if err := ctx.Err(); err != nil {
				return err
			}
			variant := &layer.Variants[vi]
			resized, err := r.resizeVariant(variant.SourcePath, scaler, filepath.Join(workDir, fmt.Sprintf("%02d_%03d_%s.png", layer.Order, vi, variant.DisplayName)))
			if err != nil {
				return err
			}
			if resized != "" {
				variant.SourcePath = resized
			}
		}
	}
	return nil
}

// resizeVariant returns the working-copy path, or "" when the original is
// already within bounds.
func (r *Renderer) resizeVariant(path string, scaler xdraw.Scaler, target string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", domain.BadTraitImage(path, err)
	}
	cfg, err := png.DecodeConfig(f)
	f.Close()
	if err != nil {
		return "", domain.BadTraitImage(path, err)
	}
	if cfg.Width <= r.size && cfg.Height <= r.size {
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", domain.BadTraitImage(path, err)
	}
	src, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return "", domain.BadTraitImage(path, err)
	}

	w, h := scaledDims(cfg.Width, cfg.Height, r.size)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	scaler.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)

	var buf bytes.Buffer
	if err := r.encoder.Encode(&buf, dst); err != nil {
		return "", domain.IOError(target, err)
	}
	if err := os.WriteFile(target, buf.Bytes(), 0o644); err != nil {
		return "", domain.IOError(target, err)
	}
	return target, nil
}

// scaledDims shrinks (w, h) uniformly so the larger side equals edge.
func scaledDims(w, h, edge int) (int, int) {
	if w >= h {
		nh := (h*edge + w/2) / w
		if nh < 1 {
			nh = 1
		}
		return edge, nh
	}
	nw := (w*edge + h/2) / h
	if nw < 1 {
		nw = 1
	}
	return nw, edge
}
