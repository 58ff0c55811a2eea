package selector

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Gene records the choice for one active layer: a variant, or an explicit
// absence. Absence is semantically distinct from any present variant.
type Gene struct {
	Layer   string
	Variant string
	Present bool
}

// DNA is the ordered gene list across all active layers, in catalog order.
type DNA []Gene

// Canonical renders the deterministic string form used for hashing and
// logging: "layer=variant|layer=|...", empty variant marking absence.
func (d DNA) Canonical() string {
	var b strings.Builder
	for i, g := range d {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(g.Layer)
		b.WriteByte('=')
		if g.Present {
			b.WriteString(g.Variant)
		}
	}
	return b.String()
}

// Hash is the uniqueness key: SHA-256 of the canonical form, lowercase hex.
func (d DNA) Hash() string {
	sum := sha256.Sum256([]byte(d.Canonical()))
	return hex.EncodeToString(sum[:])
}
