package taste

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Mode selects how two profiles are scored against each other.
type Mode string

const (
	ModeTwins     Mode = "twins"
	ModeOpposites Mode = "opposites"
	ModeGuides    Mode = "guides"
	ModeAll       Mode = "all"
)

const (
	DefaultMatchLimit = 10
	MaxMatchLimit     = 50

	genreWeight  = 0.7
	scalarWeight = 0.3
)

// ParseMode defaults an empty value to twins.
func ParseMode(raw string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(raw))); m {
	case "":
		return ModeTwins, nil
	case ModeTwins, ModeOpposites, ModeGuides, ModeAll:
		return m, nil
	default:
		return "", fmt.Errorf("unknown match mode %q", raw)
	}
}

// ClampLimit maps <= 0 to DefaultMatchLimit and caps at MaxMatchLimit.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultMatchLimit
	}
	if limit > MaxMatchLimit {
		return MaxMatchLimit
	}
	return limit
}

// Candidate is another user's profile offered to Rank.
type Candidate struct {
	UserID  uuid.UUID
	Profile Profile
}

// Match is one ranked candidate. Score is in [0,1] and higher is better for the requested mode.
type Match struct {
	UserID          uuid.UUID `json:"user_id"`
	Score           float64   `json:"score"`
	Mode            Mode      `json:"match_type"`
	GenreSimilarity float64   `json:"genre_similarity"`
	Primary         Archetype `json:"primary_archetype,omitempty"`
	PrimaryLabel    string    `json:"primary_label,omitempty"`
}

// ScalarDistance is the Euclidean distance over (adventurousness, polarity, normalized mean),
// scaled to [0,1].
func ScalarDistance(a, b Profile) float64 {
	da := a.Adventurousness - b.Adventurousness
	dp := a.Polarity - b.Polarity
	dm := normalizedMean(a) - normalizedMean(b)
	return clamp01(math.Sqrt(da*da+dp*dp+dm*dm) / math.Sqrt(3))
}

func normalizedMean(p Profile) float64 {
	return clamp01((p.MeanScore - 1) / 4)
}

// Similarity is the twins score. It is symmetric in a and b.
func Similarity(a, b Profile) float64 {
	return genreWeight*Cosine(a.GenreVector, b.GenreVector) + scalarWeight*(1-ScalarDistance(a, b))
}

// Opposition is the opposites score. It is symmetric in a and b.
func Opposition(a, b Profile) float64 {
	return genreWeight*(1-Cosine(a.GenreVector, b.GenreVector)) + scalarWeight*ScalarDistance(a, b)
}

// Guidance scores how well b can lead a somewhere new. ok is false when b has no more ratings
// than a.
func Guidance(a, b Profile) (score float64, ok bool) {
	if b.RatingCount <= a.RatingCount {
		return 0, false
	}
	lift := math.Max(0, b.Adventurousness-a.Adventurousness)
	return genreWeight*Cosine(a.GenreVector, b.GenreVector) + scalarWeight*lift, true
}

// Score evaluates one candidate under mode. For ModeAll the best of the three wins and its mode is
// returned; earlier modes win exact ties.
func Score(mode Mode, me, other Profile) (float64, Mode, bool) {
	switch mode {
	case ModeTwins:
		return Similarity(me, other), ModeTwins, true
	case ModeOpposites:
		return Opposition(me, other), ModeOpposites, true
	case ModeGuides:
		s, ok := Guidance(me, other)
		return s, ModeGuides, ok
	case ModeAll:
		best, bestMode := Similarity(me, other), ModeTwins
		if s := Opposition(me, other); s > best {
			best, bestMode = s, ModeOpposites
		}
		if s, ok := Guidance(me, other); ok && s > best {
			best, bestMode = s, ModeGuides
		}
		return best, bestMode, true
	default:
		return 0, mode, false
	}
}

// Rank scores every candidate except me against my profile and returns the top limit matches,
// best first with ties ordered by user id.
func Rank(meID uuid.UUID, me Profile, candidates []Candidate, mode Mode, limit int) []Match {
	limit = ClampLimit(limit)
	out := make([]Match, 0, len(candidates))
	seen := make(map[uuid.UUID]struct{}, len(candidates))
	for _, c := range candidates {
		if c.UserID == uuid.Nil || c.UserID == meID {
			continue
		}
		if _, dup := seen[c.UserID]; dup {
			continue
		}
		seen[c.UserID] = struct{}{}
		score, winning, ok := Score(mode, me, c.Profile)
		if !ok || math.IsNaN(score) {
			continue
		}
		out = append(out, Match{
			UserID:          c.UserID,
			Score:           score,
			Mode:            winning,
			GenreSimilarity: Cosine(me.GenreVector, c.Profile.GenreVector),
			Primary:         c.Profile.Primary,
			PrimaryLabel:    c.Profile.Primary.Label(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].UserID.String() < out[j].UserID.String()
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
