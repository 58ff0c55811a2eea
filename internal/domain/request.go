package domain

import (
	"fmt"
	"strings"
)

// RarityMode enumerates the supported variant weighting strategies.
type RarityMode string

const (
	RarityUniform  RarityMode = "uniform"
	RarityWeighted RarityMode = "weighted"
	RarityRanked   RarityMode = "ranked"
)

// PlaceholderCID is used in metadata image URIs when the caller has not
// pinned the collection yet.
const PlaceholderCID = "REPLACE_WITH_CID"

const (
	MinCollectionSize = 1
	MaxCollectionSize = 10000

	DefaultOutputSize = 1024
)

// LayerOption overrides per-layer behaviour. Layers missing from the request
// default to active with probability 100.
type LayerOption struct {
	Active               bool `json:"active"`
	SelectionProbability int  `json:"selection_probability"`
}

// GenerateRequest is the host-facing contract for one collection run.
type GenerateRequest struct {
	CollectionName        string                 `json:"collection_name"`
	CollectionSize        int                    `json:"collection_size"`
	CollectionDescription string                 `json:"collection_description,omitempty"`
	CID                   string                 `json:"cid,omitempty"`
	RarityMode            RarityMode             `json:"rarity_mode,omitempty"`
	RarityTiers           map[string][]string    `json:"rarity_tiers,omitempty"`
	Layers                map[string]LayerOption `json:"layers,omitempty"`
	AllowDuplicates       bool                   `json:"allow_duplicates,omitempty"`
	LowMemory             *bool                  `json:"low_memory,omitempty"`
	Seed                  *int64                 `json:"seed,omitempty"`
	OutputSize            int                    `json:"output_size,omitempty"`
}

// Normalize fills defaults in place. Call after decoding and before Validate.
func (r *GenerateRequest) Normalize() {
	r.CollectionName = strings.TrimSpace(r.CollectionName)
	if r.CID == "" {
		r.CID = PlaceholderCID
	}
	if r.RarityMode == "" {
		r.RarityMode = RarityUniform
	}
	if r.OutputSize == 0 {
		r.OutputSize = DefaultOutputSize
	}
}

// LowMemoryMode resolves the tri-state flag; the conservative default is on.
func (r *GenerateRequest) LowMemoryMode() bool {
	if r.LowMemory == nil {
		return true
	}
	return *r.LowMemory
}

// LayerOptionFor returns the override for a layer, or the default of active
// with probability 100.
func (r *GenerateRequest) LayerOptionFor(name string) LayerOption {
	if opt, ok := r.Layers[name]; ok {
		return opt
	}
	return LayerOption{Active: true, SelectionProbability: 100}
}

// Validate rejects requests the pipeline cannot honour.
func (r *GenerateRequest) Validate() error {
	if r.CollectionName == "" {
		return fmt.Errorf("collection_name is required")
	}
	if r.CollectionSize < MinCollectionSize || r.CollectionSize > MaxCollectionSize {
		return fmt.Errorf("collection_size must be between %d and %d", MinCollectionSize, MaxCollectionSize)
	}
	switch r.RarityMode {
	case RarityUniform, RarityWeighted, RarityRanked:
	default:
		return fmt.Errorf("unknown rarity_mode %q", r.RarityMode)
	}
	if r.OutputSize < 16 || r.OutputSize > 8192 {
		return fmt.Errorf("output_size must be between 16 and 8192")
	}
	for name, opt := range r.Layers {
		if opt.SelectionProbability < 0 || opt.SelectionProbability > 100 {
			return fmt.Errorf("layer %q: selection_probability must be between 0 and 100", name)
		}
	}
	return nil
}
