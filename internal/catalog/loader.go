package catalog

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"artengine/internal/domain"
)

// UnknownLayerName is the synthesized layer for files sitting directly in
// the input root rather than in a layer directory.
const UnknownLayerName = "Unknown"

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// Loader scans an input tree and produces a validated Catalog.
type Loader struct {
	logger zerolog.Logger
}

func NewLoader(logger zerolog.Logger) *Loader {
	return &Loader{logger: logger}
}

// Load walks the immediate children of root. Each child directory becomes a
// layer; loose files fall back to the synthesized Unknown layer. Layer
// activation and selection probability come from the request overrides.
func (l *Loader) Load(root string, req *domain.GenerateRequest) (*Catalog, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, domain.IOError(root, err)
	}

	var layers []Layer
	var loose []Variant
	for _, entry := range entries {
		if !entry.IsDir() {
			if v, ok := l.variantFromFile(filepath.Join(root, entry.Name()), entry.Name()); ok {
				loose = append(loose, v)
			}
			continue
		}
		order, name := ParseDirName(entry.Name())
		variants, err := l.loadVariants(filepath.Join(root, entry.Name()))
		if err != nil {
			return nil, err
		}
		if len(variants) == 0 {
			return nil, domain.EmptyLayer(name)
		}
		layers = append(layers, Layer{Name: name, Order: order, Variants: variants})
	}
	if len(loose) > 0 {
		layers = append(layers, Layer{Name: UnknownLayerName, Order: unorderedSentinel, Variants: loose})
	}
	if len(layers) == 0 {
		return nil, domain.NoLayers()
	}

	sort.SliceStable(layers, func(i, j int) bool {
		if layers[i].Order != layers[j].Order {
			return layers[i].Order < layers[j].Order
		}
		return layers[i].Name < layers[j].Name
	})
	// Unprefixed layers take their positional index so final orders stay
	// unique after the sort.
	for i := range layers {
		if layers[i].Order == unorderedSentinel {
			layers[i].Order = i
		}
		opt := req.LayerOptionFor(layers[i].Name)
		layers[i].Active = opt.Active
		layers[i].SelectionProbability = opt.SelectionProbability
	}

	c := &Catalog{Layers: layers}
	l.logger.Info().Int("layers", len(layers)).Str("root", root).Msg("catalog: loaded")
	return c, nil
}

func (l *Loader) loadVariants(dir string) ([]Variant, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, domain.IOError(dir, err)
	}
	variants := make([]Variant, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if v, ok := l.variantFromFile(filepath.Join(dir, entry.Name()), entry.Name()); ok {
			variants = append(variants, v)
		}
	}
	return variants, nil
}

func (l *Loader) variantFromFile(path, filename string) (Variant, bool) {
	if !isPNG(path, filename) {
		l.logger.Warn().Str("path", path).Msg("catalog: skipping non-png file")
		return Variant{}, false
	}
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	name, tag := ParseFileStem(stem)
	display := NormalizeName(name)
	if display == "" {
		display = NormalizeName(stem)
	}
	return Variant{DisplayName: display, Tag: tag, SourcePath: path}, true
}

// isPNG accepts a .png extension outright and otherwise sniffs the file
// header. Decode errors are deferred to first use per the load contract.
func isPNG(path, filename string) bool {
	if strings.EqualFold(filepath.Ext(filename), ".png") {
		return true
	}
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	header := make([]byte, len(pngSignature))
	if _, err := io.ReadFull(f, header); err != nil {
		return false
	}
	return bytes.Equal(header, pngSignature)
}
