package taste

import (
	"math"
)

// Archetype is a closed set of taste personas. The zero value means none.
type Archetype string

const (
	ArchetypeNone          Archetype = ""
	ArchetypeHeadbanger    Archetype = "headbanger"
	ArchetypeCrateDigger   Archetype = "crate_digger"
	ArchetypeHipHopHead    Archetype = "hip_hop_head"
	ArchetypePopMaven      Archetype = "pop_maven"
	ArchetypeNightOwl      Archetype = "night_owl"
	ArchetypeIndieKid      Archetype = "indie_kid"
	ArchetypeClassicist    Archetype = "classicist"
	ArchetypeRootsWanderer Archetype = "roots_wanderer"
	ArchetypeExplorer      Archetype = "explorer"
)

const (
	secondaryArchetypeMin = 0.35
	archetypeTieEpsilon   = 1e-9
)

type prototype struct {
	Archetype       Archetype
	Label           string
	Genres          map[string]float64
	Adventurousness float64
}

// Table order is also the final tie-breaker.
var prototypes = []prototype{
	{ArchetypeHeadbanger, "The Headbanger", map[string]float64{"rock": 0.45, "metal": 0.35, "punk": 0.2}, 0.4},
	{ArchetypeCrateDigger, "The Crate Digger", map[string]float64{"jazz": 0.3, "soul": 0.25, "funk": 0.2, "blues": 0.15, "r&b": 0.1}, 0.7},
	{ArchetypeHipHopHead, "The Hip-Hop Head", map[string]float64{"hip-hop": 0.6, "r&b": 0.2, "soul": 0.1, "electronic": 0.1}, 0.35},
	{ArchetypePopMaven, "The Pop Maven", map[string]float64{"pop": 0.6, "r&b": 0.15, "dance": 0.15, "electronic": 0.1}, 0.2},
	{ArchetypeNightOwl, "The Night Owl", map[string]float64{"electronic": 0.5, "house": 0.2, "techno": 0.2, "ambient": 0.1}, 0.55},
	{ArchetypeIndieKid, "The Indie Kid", map[string]float64{"indie": 0.4, "alternative": 0.3, "folk": 0.15, "rock": 0.15}, 0.5},
	{ArchetypeClassicist, "The Classicist", map[string]float64{"classical": 0.6, "jazz": 0.2, "soundtrack": 0.2}, 0.45},
	{ArchetypeRootsWanderer, "The Roots Wanderer", map[string]float64{"folk": 0.3, "country": 0.3, "blues": 0.2, "americana": 0.2}, 0.45},
	{ArchetypeExplorer, "The Explorer", map[string]float64{"experimental": 0.3, "ambient": 0.2, "world": 0.2, "jazz": 0.15, "electronic": 0.15}, 0.85},
}

// ParseArchetype maps a stored archetype name back to the enum. Unknown names give ArchetypeNone.
func ParseArchetype(raw string) (Archetype, bool) {
	for _, p := range prototypes {
		if string(p.Archetype) == raw {
			return p.Archetype, true
		}
	}
	return ArchetypeNone, false
}

// Label is the display name, or "" for ArchetypeNone.
func (a Archetype) Label() string {
	for _, p := range prototypes {
		if p.Archetype == a {
			return p.Label
		}
	}
	return ""
}

type archetypeScore struct {
	idx        int
	similarity float64
	advGap     float64
}

func rankArchetypes(vec map[string]float64, adventurousness float64) []archetypeScore {
	out := make([]archetypeScore, len(prototypes))
	for i, p := range prototypes {
		out[i] = archetypeScore{
			idx:        i,
			similarity: Cosine(vec, p.Genres),
			advGap:     math.Abs(adventurousness - p.Adventurousness),
		}
	}
	// insertion sort keeps table order for full ties
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && archetypeLess(out[j], out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func archetypeLess(a, b archetypeScore) bool {
	if math.Abs(a.similarity-b.similarity) > archetypeTieEpsilon {
		return a.similarity > b.similarity
	}
	if a.advGap != b.advGap {
		return a.advGap < b.advGap
	}
	return a.idx < b.idx
}

// assignArchetypes leaves the profile without archetypes when no prototype shares a genre with it.
func assignArchetypes(p *Profile) {
	p.Primary, p.Secondary, p.Confidence = ArchetypeNone, ArchetypeNone, 0
	if len(p.GenreVector) > 0 {
		ranked := rankArchetypes(p.GenreVector, p.Adventurousness)
		best := ranked[0]
		if best.similarity > 0 {
			p.Primary = prototypes[best.idx].Archetype
			if len(ranked) > 1 && ranked[1].similarity >= secondaryArchetypeMin {
				p.Secondary = prototypes[ranked[1].idx].Archetype
			}
			p.Confidence = clamp01(best.similarity * math.Min(1, float64(p.RatingCount)/CompleteRatings))
		}
	}
	p.SetLabels()
}

// Cosine is the cosine similarity of two sparse vectors; 0 when either is empty.
func Cosine(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for _, k := range sortedKeys(a) {
		v := a[k]
		normA += v * v
		if w, ok := b[k]; ok {
			dot += v * w
		}
	}
	for _, k := range sortedKeys(b) {
		normB += b[k] * b[k]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
