// Package catalog turns a tree of layered PNG trait images into the ordered,
// validated layer catalog the rest of the pipeline works from.
package catalog

// Variant is one trait image inside a layer.
type Variant struct {
	// DisplayName is the normalized file stem with any rarity tag stripped.
	DisplayName string
	// Tag is the rarity suffix after '#' in the filename, if any.
	Tag string
	// SourcePath locates the PNG bytes. Pre-resize may point it at a
	// per-job working copy; the original input is never mutated.
	SourcePath string
	// Weight is assigned by the rarity model; selection within a layer is
	// proportional to it.
	Weight int
}

// Layer is a named, ordered category of mutually exclusive variants
// composited as one z-plane.
type Layer struct {
	Name                 string
	Order                int
	Active               bool
	SelectionProbability int
	Variants             []Variant
}

// Variant returns the named variant, if present.
func (l *Layer) Variant(displayName string) (*Variant, bool) {
	for i := range l.Variants {
		if l.Variants[i].DisplayName == displayName {
			return &l.Variants[i], true
		}
	}
	return nil, false
}

// Catalog is the complete layer set for one job, ordered back to front.
// It is immutable after load; per-job mutation goes through Clone.
type Catalog struct {
	Layers []Layer
}

// ActiveLayers returns the layers that participate in generation, in
// composite order.
func (c *Catalog) ActiveLayers() []Layer {
	active := make([]Layer, 0, len(c.Layers))
	for _, l := range c.Layers {
		if l.Active {
			active = append(active, l)
		}
	}
	return active
}

// Clone deep-copies the catalog so a job can rewrite variant source paths
// without touching the shared snapshot.
func (c *Catalog) Clone() *Catalog {
	out := &Catalog{Layers: make([]Layer, len(c.Layers))}
	copy(out.Layers, c.Layers)
	for i := range out.Layers {
		variants := make([]Variant, len(c.Layers[i].Variants))
		copy(variants, c.Layers[i].Variants)
		out.Layers[i].Variants = variants
	}
	return out
}
