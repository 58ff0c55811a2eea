package catalog

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"artengine/internal/domain"
)

func writePNG(t *testing.T, path string, w, h int, c color.NRGBA) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write png: %v", err)
	}
}

func defaultRequest() *domain.GenerateRequest {
	req := &domain.GenerateRequest{CollectionName: "Test", CollectionSize: 1}
	req.Normalize()
	return req
}

func TestLoadOrdersAndNormalizes(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "05_Hat", "top hat#3.png"), 2, 2, color.NRGBA{A: 255})
	writePNG(t, filepath.Join(root, "01_Base", "pale.PNG"), 2, 2, color.NRGBA{A: 255})
	writePNG(t, filepath.Join(root, "Background", "sky blue.png"), 2, 2, color.NRGBA{A: 255})

	c, err := NewLoader(zerolog.Nop()).Load(root, defaultRequest())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(c.Layers) != 3 {
		t.Fatalf("expected 3 layers, got %d", len(c.Layers))
	}

	wantNames := []string{"Base", "Hat", "Background"}
	wantOrders := []int{1, 5, 2}
	for i, layer := range c.Layers {
		if layer.Name != wantNames[i] {
			t.Fatalf("layer %d name = %q, want %q", i, layer.Name, wantNames[i])
		}
		if layer.Order != wantOrders[i] {
			t.Fatalf("layer %d order = %d, want %d", i, layer.Order, wantOrders[i])
		}
		if !layer.Active || layer.SelectionProbability != 100 {
			t.Fatalf("layer %q should default to active/100", layer.Name)
		}
	}

	hat := c.Layers[1]
	if hat.Variants[0].DisplayName != "top_hat" || hat.Variants[0].Tag != "3" {
		t.Fatalf("hat variant = %+v, want display top_hat tag 3", hat.Variants[0])
	}
	if c.Layers[2].Variants[0].DisplayName != "sky_blue" {
		t.Fatalf("background variant = %q, want sky_blue", c.Layers[2].Variants[0].DisplayName)
	}
}

func TestLoadAppliesLayerOptions(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "01_Background", "blue.png"), 2, 2, color.NRGBA{A: 255})
	writePNG(t, filepath.Join(root, "02_Body", "square.png"), 2, 2, color.NRGBA{A: 255})

	req := defaultRequest()
	req.Layers = map[string]domain.LayerOption{
		"Background": {Active: true, SelectionProbability: 40},
		"Body":       {Active: false},
	}

	c, err := NewLoader(zerolog.Nop()).Load(root, req)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if c.Layers[0].SelectionProbability != 40 {
		t.Fatalf("Background probability = %d, want 40", c.Layers[0].SelectionProbability)
	}
	if c.Layers[1].Active {
		t.Fatal("Body should be inactive")
	}
	if got := len(c.ActiveLayers()); got != 1 {
		t.Fatalf("ActiveLayers = %d, want 1", got)
	}
}

func TestLoadLooseFilesFallBackToUnknownLayer(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "stray.png"), 2, 2, color.NRGBA{A: 255})

	c, err := NewLoader(zerolog.Nop()).Load(root, defaultRequest())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(c.Layers) != 1 || c.Layers[0].Name != UnknownLayerName {
		t.Fatalf("expected single %s layer, got %+v", UnknownLayerName, c.Layers)
	}
	if c.Layers[0].Order != 0 {
		t.Fatalf("Unknown layer order = %d, want positional 0", c.Layers[0].Order)
	}
}

func TestLoadSkipsNonPNGFiles(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "01_Background", "blue.png"), 2, 2, color.NRGBA{A: 255})
	if err := os.WriteFile(filepath.Join(root, "01_Background", "notes.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := NewLoader(zerolog.Nop()).Load(root, defaultRequest())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got := len(c.Layers[0].Variants); got != 1 {
		t.Fatalf("expected 1 variant, got %d", got)
	}
}

func TestLoadSniffsPNGContentWithoutExtension(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "01_Background", "blue.png"), 2, 2, color.NRGBA{A: 255})
	// Same bytes, misleading extension: the content sniff should accept it.
	data, err := os.ReadFile(filepath.Join(root, "01_Background", "blue.png"))
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "01_Background", "green.img"), data, 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := NewLoader(zerolog.Nop()).Load(root, defaultRequest())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got := len(c.Layers[0].Variants); got != 2 {
		t.Fatalf("expected 2 variants, got %d", got)
	}
}

func TestLoadEmptyRootIsNoLayers(t *testing.T) {
	_, err := NewLoader(zerolog.Nop()).Load(t.TempDir(), defaultRequest())
	var de *domain.Error
	if !errors.As(err, &de) || de.Kind != domain.KindNoLayers {
		t.Fatalf("expected NoLayers, got %v", err)
	}
}

func TestLoadLayerWithoutVariantsIsEmptyLayer(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "01_Background"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "01_Background", "readme.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := NewLoader(zerolog.Nop()).Load(root, defaultRequest())
	var de *domain.Error
	if !errors.As(err, &de) || de.Kind != domain.KindEmptyLayer || de.Layer != "Background" {
		t.Fatalf("expected EmptyLayer(Background), got %v", err)
	}
}

func TestCloneIsolatesVariantPaths(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "01_Background", "blue.png"), 2, 2, color.NRGBA{A: 255})

	c, err := NewLoader(zerolog.Nop()).Load(root, defaultRequest())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	clone := c.Clone()
	clone.Layers[0].Variants[0].SourcePath = "elsewhere"
	if c.Layers[0].Variants[0].SourcePath == "elsewhere" {
		t.Fatal("Clone should not share variant slices")
	}
}
