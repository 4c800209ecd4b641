package taste

import (
	"sort"
	"strings"
)

var genreAliases = map[string]string{
	"hip hop":          "hip-hop",
	"hiphop":           "hip-hop",
	"rap":              "hip-hop",
	"rnb":              "r&b",
	"r and b":          "r&b",
	"r & b":            "r&b",
	"rhythm and blues": "r&b",
	"electronica":      "electronic",
	"edm":              "electronic",
	"heavy metal":      "metal",
	"alt":              "alternative",
	"alt rock":         "alternative",
	"alternative rock": "alternative",
	"indie rock":       "indie",
	"rock and roll":    "rock",
	"rock & roll":      "rock",
	"rock n roll":      "rock",
	"ost":              "soundtrack",
	"score":            "soundtrack",
	"soundtracks":      "soundtrack",
	"country music":    "country",
	"world music":      "world",
}

// NormalizeGenre lowercases, trims and collapses a raw tag, then applies the alias table.
func NormalizeGenre(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	if alias, ok := genreAliases[s]; ok {
		return alias
	}
	return s
}

// NormalizeGenres normalizes and dedupes tags, keeping first-seen order.
func NormalizeGenres(raw []string) []string {
	if len(raw) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		g := NormalizeGenre(r)
		if g == "" {
			continue
		}
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	return out
}

// GenreStats is the platform-wide share of ratings per normalized genre, each in [0,1].
type GenreStats map[string]float64

// NewGenreStats turns per-genre rating counts into shares of total.
func NewGenreStats(counts map[string]int64, total int64) GenreStats {
	if total <= 0 || len(counts) == 0 {
		return nil
	}
	out := make(GenreStats, len(counts))
	for raw, n := range counts {
		g := NormalizeGenre(raw)
		if g == "" || n <= 0 {
			continue
		}
		out[g] += float64(n) / float64(total)
	}
	for g, v := range out {
		out[g] = clamp01(v)
	}
	return out
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
