package selector

import (
	"context"
	"errors"
	"testing"

	"artengine/internal/catalog"
	"artengine/internal/domain"
)

func layer(name string, prob int, variants ...string) catalog.Layer {
	l := catalog.Layer{Name: name, Active: true, SelectionProbability: prob}
	for _, v := range variants {
		l.Variants = append(l.Variants, catalog.Variant{DisplayName: v, Weight: 1})
	}
	return l
}

func TestMaxCombinations(t *testing.T) {
	tests := []struct {
		name   string
		layers []catalog.Layer
		want   int64
	}{
		{
			name:   "all certain",
			layers: []catalog.Layer{layer("A", 100, "x", "y"), layer("B", 100, "z")},
			want:   2,
		},
		{
			name:   "probabilistic layer adds absent state",
			layers: []catalog.Layer{layer("A", 50, "x", "y"), layer("B", 100, "z", "w")},
			want:   6,
		},
		{
			name:   "probability zero pins a single state",
			layers: []catalog.Layer{layer("A", 0, "x", "y"), layer("B", 100, "z")},
			want:   1,
		},
		{
			name:   "inactive layers do not count",
			layers: []catalog.Layer{layer("A", 100, "x", "y"), {Name: "B", Active: false, Variants: []catalog.Variant{{DisplayName: "z"}}}},
			want:   2,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := &catalog.Catalog{Layers: tc.layers}
			if got := MaxCombinations(c); got != tc.want {
				t.Fatalf("MaxCombinations = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestDrawCoversCapacityWithoutDuplicates(t *testing.T) {
	c := &catalog.Catalog{Layers: []catalog.Layer{
		layer("Background", 100, "blue", "red"),
		layer("Body", 100, "square"),
	}}
	sel := New(c, 1, 2, false)

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		dna, err := sel.Draw(context.Background(), 2-i)
		if err != nil {
			t.Fatalf("Draw %d returned error: %v", i, err)
		}
		seen[dna.Canonical()] = true
	}
	if !seen["Background=blue|Body=square"] || !seen["Background=red|Body=square"] {
		t.Fatalf("expected both combinations, got %v", seen)
	}
}

func TestDrawExhaustionReportsInsufficientDiversity(t *testing.T) {
	c := &catalog.Catalog{Layers: []catalog.Layer{
		layer("Background", 100, "blue", "red"),
	}}
	sel := New(c, 1, 3, false)

	for i := 0; i < 2; i++ {
		if _, err := sel.Draw(context.Background(), 3-i); err != nil {
			t.Fatalf("Draw %d returned error: %v", i, err)
		}
	}
	_, err := sel.Draw(context.Background(), 1)
	var de *domain.Error
	if !errors.As(err, &de) || de.Kind != domain.KindInsufficientDiversity {
		t.Fatalf("expected InsufficientDiversity, got %v", err)
	}
	if de.Requested != 3 || de.Capacity != 2 {
		t.Fatalf("InsufficientDiversity payload = {%d %d}, want {3 2}", de.Requested, de.Capacity)
	}
}

func TestDrawAllowsDuplicatesWhenRequested(t *testing.T) {
	c := &catalog.Catalog{Layers: []catalog.Layer{layer("Background", 100, "blue")}}
	sel := New(c, 1, 5, true)
	for i := 0; i < 5; i++ {
		dna, err := sel.Draw(context.Background(), 5-i)
		if err != nil {
			t.Fatalf("Draw %d returned error: %v", i, err)
		}
		if dna.Canonical() != "Background=blue" {
			t.Fatalf("unexpected dna %q", dna.Canonical())
		}
	}
}

func TestDrawIsDeterministicForSeed(t *testing.T) {
	c := &catalog.Catalog{Layers: []catalog.Layer{
		layer("Background", 80, "blue", "red", "green"),
		layer("Body", 100, "square", "round"),
	}}

	run := func() []string {
		sel := New(c, 42, 6, false)
		var out []string
		for i := 0; i < 6; i++ {
			dna, err := sel.Draw(context.Background(), 6-i)
			if err != nil {
				t.Fatalf("Draw returned error: %v", err)
			}
			out = append(out, dna.Canonical())
		}
		return out
	}

	first, second := run(), run()
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("draw %d differs: %q vs %q", i, first[i], second[i])
		}
	}
}

func TestZeroProbabilityLayerIsAlwaysAbsent(t *testing.T) {
	c := &catalog.Catalog{Layers: []catalog.Layer{
		layer("Background", 0, "blue", "red"),
		layer("Body", 100, "square"),
	}}
	sel := New(c, 7, 1, false)
	dna, err := sel.Draw(context.Background(), 1)
	if err != nil {
		t.Fatalf("Draw returned error: %v", err)
	}
	if dna[0].Present {
		t.Fatal("probability-0 layer must be absent")
	}
	if dna.Canonical() != "Background=|Body=square" {
		t.Fatalf("unexpected canonical %q", dna.Canonical())
	}
}

func TestWeightedDistributionConverges(t *testing.T) {
	c := &catalog.Catalog{Layers: []catalog.Layer{{
		Name: "Background", Active: true, SelectionProbability: 100,
		Variants: []catalog.Variant{
			{DisplayName: "A", Weight: 3},
			{DisplayName: "B", Weight: 1},
		},
	}}}
	sel := New(c, 99, 1000, true)

	counts := map[string]int{}
	for i := 0; i < 1000; i++ {
		dna, err := sel.Draw(context.Background(), 1000-i)
		if err != nil {
			t.Fatalf("Draw returned error: %v", err)
		}
		counts[dna[0].Variant]++
	}
	// Bin(1000, 0.75): sigma ~= 13.7, keep a 4-sigma band.
	if counts["A"] < 695 || counts["A"] > 805 {
		t.Fatalf("count(A) = %d, want within [695, 805]", counts["A"])
	}
}

func TestUniformDistributionAcrossTenVariants(t *testing.T) {
	variants := []string{"v0", "v1", "v2", "v3", "v4", "v5", "v6", "v7", "v8", "v9"}
	c := &catalog.Catalog{Layers: []catalog.Layer{layer("Trait", 100, variants...)}}
	sel := New(c, 123, 1000, true)

	counts := map[string]int{}
	for i := 0; i < 1000; i++ {
		dna, err := sel.Draw(context.Background(), 1000-i)
		if err != nil {
			t.Fatalf("Draw returned error: %v", err)
		}
		counts[dna[0].Variant]++
	}
	// Three-sigma band of Bin(1000, 0.1).
	for _, v := range variants {
		if counts[v] < 60 || counts[v] > 140 {
			t.Fatalf("count(%s) = %d, want within [60, 140]", v, counts[v])
		}
	}
}

func TestDrawHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := &catalog.Catalog{Layers: []catalog.Layer{layer("Background", 100, "blue")}}
	sel := New(c, 1, 1, true)
	if _, err := sel.Draw(ctx, 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
