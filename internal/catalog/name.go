package catalog

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeName folds an arbitrary filename stem into the display form used
// in metadata: accents removed, every run of non-alphanumeric characters
// collapsed to a single underscore.
func NormalizeName(s string) string {
	if folded, _, err := transform.String(deaccent, s); err == nil {
		s = folded
	}
	var b strings.Builder
	b.Grow(len(s))
	pendingSep := false
	for _, r := range s {
		if r < 128 && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}

// ParseDirName splits a layer directory name of the form "NN_Name" into its
// numeric order prefix and remainder. Names without a prefix keep the
// sentinel order 999 and are assigned a positional order after sorting.
func ParseDirName(dir string) (order int, name string) {
	idx := strings.IndexByte(dir, '_')
	if idx >= 1 && dir[idx+1:] != "" && isDigits(dir[:idx]) {
		if n, err := strconv.Atoi(dir[:idx]); err == nil {
			return n, dir[idx+1:]
		}
	}
	return unorderedSentinel, dir
}

// ParseFileStem splits a trait filename (without extension) into its display
// stem and trailing rarity tag ("blue#40" -> "blue", "40").
func ParseFileStem(stem string) (name, tag string) {
	if idx := strings.LastIndexByte(stem, '#'); idx >= 0 {
		return stem[:idx], stem[idx+1:]
	}
	return stem, ""
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}

const unorderedSentinel = 999
