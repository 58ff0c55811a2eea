// Package metadata emits the per-item JSON document that ships next to each
// rendered image.
package metadata

import (
	"encoding/json"
	"fmt"

	"artengine/internal/domain"
	"artengine/internal/selector"
)

// Attribute is one present layer's trait entry.
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

// Item is the fixed metadata schema for one generated edition.
type Item struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	DNA         string      `json:"dna"`
	Attributes  []Attribute `json:"attributes"`
	Edition     int         `json:"edition"`
}

// Build assembles the document for one item. Attributes cover exactly the
// present layers, in catalog order; absent layers are omitted.
func Build(req *domain.GenerateRequest, index int, dna selector.DNA) Item {
	attrs := make([]Attribute, 0, len(dna))
	for _, gene := range dna {
		if !gene.Present {
			continue
		}
		attrs = append(attrs, Attribute{TraitType: gene.Layer, Value: gene.Variant})
	}
	return Item{
		Name:        fmt.Sprintf("%s #%d", req.CollectionName, index),
		Description: req.CollectionDescription,
		Image:       fmt.Sprintf("ipfs://%s/%d.png", req.CID, index),
		DNA:         dna.Hash(),
		Attributes:  attrs,
		Edition:     index,
	}
}

// Marshal renders the document with stable two-space indentation.
func (it Item) Marshal() ([]byte, error) {
	return json.MarshalIndent(it, "", "  ")
}
