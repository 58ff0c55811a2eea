// Package rarity assigns selection weights to catalog variants.
package rarity

import (
	"fmt"
	"strconv"

	"artengine/internal/catalog"
	"artengine/internal/domain"
)

// tierWeights is the fixed table ranked mode maps tier names through.
var tierWeights = map[string]int{
	"common":    100,
	"uncommon":  60,
	"rare":      25,
	"epic":      10,
	"legendary": 3,
}

// Apply writes a positive weight onto every variant in place.
//
//   - uniform: every variant weighs 1.
//   - weighted: a "#W" filename tag with positive integer W becomes the
//     weight; untagged or malformed tags weigh 1.
//   - ranked: tiers lists the recognized tier names per layer; a "#tier"
//     tag on a listed tier maps through the fixed weight table. Unlisted
//     tiers weigh 1.
func Apply(c *catalog.Catalog, mode domain.RarityMode, tiers map[string][]string) error {
	switch mode {
	case domain.RarityUniform, domain.RarityWeighted, domain.RarityRanked:
	default:
		return fmt.Errorf("rarity: unknown mode %q", mode)
	}
	for li := range c.Layers {
		layer := &c.Layers[li]
		for vi := range layer.Variants {
			layer.Variants[vi].Weight = weightFor(mode, layer.Name, layer.Variants[vi].Tag, tiers)
		}
	}
	return nil
}

func weightFor(mode domain.RarityMode, layerName, tag string, tiers map[string][]string) int {
	switch mode {
	case domain.RarityWeighted:
		if w, ok := ParseWeightTag(tag); ok {
			return w
		}
		return 1
	case domain.RarityRanked:
		if tag == "" || !tierListed(tiers[layerName], tag) {
			return 1
		}
		if w, ok := tierWeights[tag]; ok {
			return w
		}
		return 1
	default:
		return 1
	}
}

// ParseWeightTag interprets a filename rarity tag as a positive integer
// weight.
func ParseWeightTag(tag string) (int, bool) {
	if tag == "" {
		return 0, false
	}
	w, err := strconv.Atoi(tag)
	if err != nil || w <= 0 {
		return 0, false
	}
	return w, true
}

func tierListed(listed []string, tag string) bool {
	for _, t := range listed {
		if t == tag {
			return true
		}
	}
	return false
}
