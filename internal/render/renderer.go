// Package render composites chosen trait variants into fixed-size PNGs.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	stddraw "image/draw"
	"image/png"
	"os"

	lru "github.com/hashicorp/golang-lru/v2"

	"artengine/internal/catalog"
	"artengine/internal/domain"
	"artengine/internal/selector"
)

// Options fixes the per-job rendering policy. Encoder settings are chosen
// once so reruns with the same configuration are byte-identical.
type Options struct {
	CanvasSize   int
	Compression  png.CompressionLevel
	CacheEntries int // decoded-variant cache size; 0 disables (low-memory mode)
}

// CacheEntriesForBudget converts a byte budget into an entry bound, assuming
// each decoded variant costs one RGBA canvas.
func CacheEntriesForBudget(budgetBytes int64, canvasSize int) int {
	perEntry := int64(canvasSize) * int64(canvasSize) * 4
	if perEntry <= 0 || budgetBytes < perEntry {
		return 0
	}
	return int(budgetBytes / perEntry)
}

// Renderer paints DNAs onto a square RGBA canvas, back to front, using
// source-over alpha composition. Safe for concurrent use.
type Renderer struct {
	size    int
	encoder png.Encoder
	cache   *lru.Cache[string, image.Image]
}

func New(opts Options) *Renderer {
	r := &Renderer{
		size:    opts.CanvasSize,
		encoder: png.Encoder{CompressionLevel: opts.Compression},
	}
	if opts.CacheEntries > 0 {
		r.cache, _ = lru.New[string, image.Image](opts.CacheEntries)
	}
	return r
}

// Render composites one item and returns its encoded PNG bytes. layers must
// be the catalog's active layers in the same order the DNA was drawn over.
func (r *Renderer) Render(ctx context.Context, layers []catalog.Layer, dna selector.DNA) ([]byte, error) {
	if len(layers) != len(dna) {
		return nil, fmt.Errorf("render: dna covers %d layers, catalog has %d active", len(dna), len(layers))
	}
	canvas := image.NewRGBA(image.Rect(0, 0, r.size, r.size))
	for i, gene := range dna {
		if !gene.Present {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		variant, ok := layers[i].Variant(gene.Variant)
		if !ok {
			return nil, domain.BadTraitImage(gene.Variant, fmt.Errorf("variant missing from layer %q", layers[i].Name))
		}
		img, err := r.load(variant.SourcePath)
		if err != nil {
			return nil, err
		}
		bounds := img.Bounds()
		target := image.Rect(0, 0, bounds.Dx(), bounds.Dy()).Intersect(canvas.Bounds())
		stddraw.Draw(canvas, target, img, bounds.Min, stddraw.Over)
	}

	var buf bytes.Buffer
	if err := r.encoder.Encode(&buf, canvas); err != nil {
		return nil, domain.IOError("encode", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) load(path string) (image.Image, error) {
	if r.cache != nil {
		if img, ok := r.cache.Get(path); ok {
			return img, nil
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.BadTraitImage(path, err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, domain.BadTraitImage(path, err)
	}
	if r.cache != nil {
		r.cache.Add(path, img)
	}
	return img, nil
}
