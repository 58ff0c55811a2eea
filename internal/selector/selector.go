// Package selector draws per-item DNAs: one variant (or an explicit absence)
// per active layer, rarity-weighted, optionally unique across the job.
package selector

import (
	"context"
	"math"
	"math/rand"
	"sync"

	"artengine/internal/catalog"
	"artengine/internal/domain"
)

// retryYieldStride bounds how many uniqueness retries run between
// cancellation checks so a stuck draw stays responsive.
const retryYieldStride = 64

// Selector owns the RNG and the seen-hash set for one job. Draws are
// serialized by the caller; the seen set is still guarded so status readers
// can observe it safely.
type Selector struct {
	layers          []catalog.Layer
	rng             *rand.Rand
	allowDuplicates bool
	requested       int
	capacity        int64

	mu   sync.Mutex
	seen map[string]struct{}
}

// New builds a selector over the catalog's active layers. The seed fixes the
// draw sequence; identical seed, catalog and config reproduce identical DNAs.
func New(c *catalog.Catalog, seed int64, requested int, allowDuplicates bool) *Selector {
	return &Selector{
		layers:          c.ActiveLayers(),
		rng:             rand.New(rand.NewSource(seed)),
		allowDuplicates: allowDuplicates,
		requested:       requested,
		capacity:        MaxCombinations(c),
		seen:            make(map[string]struct{}),
	}
}

// MaxCombinations counts the distinct DNAs the catalog supports. A layer
// with selection probability under 100 contributes an extra "absent" state;
// a probability of zero pins the layer to that single state. The product
// saturates at MaxInt64.
func MaxCombinations(c *catalog.Catalog) int64 {
	total := int64(1)
	for _, layer := range c.ActiveLayers() {
		states := int64(layerStates(layer))
		if states == 0 {
			return 0
		}
		if total > math.MaxInt64/states {
			return math.MaxInt64
		}
		total *= states
	}
	return total
}

func layerStates(layer catalog.Layer) int {
	switch {
	case layer.SelectionProbability <= 0:
		return 1
	case layer.SelectionProbability >= 100:
		return len(layer.Variants)
	default:
		return len(layer.Variants) + 1
	}
}

// Capacity reports the combination count computed at construction.
func (s *Selector) Capacity() int64 { return s.capacity }

// Draw produces the next accepted DNA. remaining is the number of items the
// job still needs; it bounds the random retry budget before the deterministic
// enumeration fallback takes over.
func (s *Selector) Draw(ctx context.Context, remaining int) (DNA, error) {
	if s.allowDuplicates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return s.drawOnce(), nil
	}

	retries := min(200, 2*remaining)
	if retries < 1 {
		retries = 1
	}
	for attempt := 0; attempt < retries; attempt++ {
		if attempt%retryYieldStride == retryYieldStride-1 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		dna := s.drawOnce()
		if s.accept(dna) {
			return dna, nil
		}
	}
	return s.enumerateUnseen(ctx)
}

func (s *Selector) drawOnce() DNA {
	dna := make(DNA, 0, len(s.layers))
	for i := range s.layers {
		layer := &s.layers[i]
		if layer.SelectionProbability < 100 && s.rng.Intn(100) >= layer.SelectionProbability {
			dna = append(dna, Gene{Layer: layer.Name})
			continue
		}
		dna = append(dna, Gene{Layer: layer.Name, Variant: s.pickVariant(layer), Present: true})
	}
	return dna
}

func (s *Selector) pickVariant(layer *catalog.Layer) string {
	total := 0
	for _, v := range layer.Variants {
		total += v.Weight
	}
	if total <= 0 {
		return layer.Variants[s.rng.Intn(len(layer.Variants))].DisplayName
	}
	r := s.rng.Intn(total)
	for _, v := range layer.Variants {
		r -= v.Weight
		if r < 0 {
			return v.DisplayName
		}
	}
	return layer.Variants[len(layer.Variants)-1].DisplayName
}

func (s *Selector) accept(dna DNA) bool {
	hash := dna.Hash()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.seen[hash]; dup {
		return false
	}
	s.seen[hash] = struct{}{}
	return true
}

// enumerateUnseen walks the combination space in catalog-major order (first
// layer most significant, absent state first within a layer) and returns the
// first DNA not yet seen.
func (s *Selector) enumerateUnseen(ctx context.Context) (DNA, error) {
	states := make([]int, len(s.layers))
	counts := make([]int, len(s.layers))
	for i := range s.layers {
		counts[i] = layerStates(s.layers[i])
	}
	for iter := 0; ; iter++ {
		if iter%retryYieldStride == retryYieldStride-1 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		dna := s.dnaForStates(states)
		if s.accept(dna) {
			return dna, nil
		}
		// Advance the odometer, least significant layer last.
		i := len(states) - 1
		for ; i >= 0; i-- {
			states[i]++
			if states[i] < counts[i] {
				break
			}
			states[i] = 0
		}
		if i < 0 {
			return nil, domain.InsufficientDiversity(s.requested, s.capacity)
		}
	}
}

func (s *Selector) dnaForStates(states []int) DNA {
	dna := make(DNA, 0, len(s.layers))
	for i := range s.layers {
		layer := &s.layers[i]
		state := states[i]
		if layer.SelectionProbability >= 100 {
			dna = append(dna, Gene{Layer: layer.Name, Variant: layer.Variants[state].DisplayName, Present: true})
			continue
		}
		if state == 0 {
			dna = append(dna, Gene{Layer: layer.Name})
			continue
		}
		dna = append(dna, Gene{Layer: layer.Name, Variant: layer.Variants[state-1].DisplayName, Present: true})
	}
	return dna
}
