package taste

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	domainmusic "github.com/yungbote/waxfeed-backend/internal/domain/music"
)

const (
	MinRatings      = 3
	CompleteRatings = 20

	TopArtistLimit = 25

	// Days for an artist rating's recency weight to halve.
	recencyHalfLifeDays = 180.0
	// Genre support at which diversity stops being scaled down.
	diversityFullSupport = 12.0

	defaultRarity = 0.5
)

// Status tells a usable profile apart from a rating set that is still too small.
type Status string

const (
	StatusOK               Status = "ok"
	StatusInsufficientData Status = "insufficient_data"
)

// Entry is one rating as the engine sees it.
type Entry struct {
	AlbumID     uuid.UUID
	Genres      []string
	Artist      string
	ReleaseYear int
	Score       float64
	RatedAt     time.Time
}

// ArtistAffinity scores one artist: Affinity is the summed score over MaxScore, Recency the
// summed half-life weight of those ratings.
type ArtistAffinity struct {
	Artist   string  `json:"artist"`
	Affinity float64 `json:"affinity"`
	Recency  float64 `json:"recency"`
	Ratings  int     `json:"ratings"`
}

// Profile is a computed taste fingerprint. Genre weights sum to 1 whenever at least one usable
// entry carries a genre tag; with no tags at all the vector is empty and no archetype is assigned.
type Profile struct {
	RatingCount int `json:"rating_count"`

	GenreVector map[string]float64 `json:"genre_vector"`
	TopArtists  []ArtistAffinity   `json:"top_artists"`
	Decades     map[int]int        `json:"decades"`

	Diversity       float64 `json:"diversity"`
	Rarity          float64 `json:"rarity"`
	Adventurousness float64 `json:"adventurousness"`
	Polarity        float64 `json:"polarity"`
	MeanScore       float64 `json:"mean_score"`
	StdDevScore     float64 `json:"stddev_score"`
	MedianScore     float64 `json:"median_score"`
	Skew            float64 `json:"skew"`

	Primary        Archetype `json:"primary_archetype"`
	PrimaryLabel   string    `json:"primary_label,omitempty"`
	Secondary      Archetype `json:"secondary_archetype,omitempty"`
	SecondaryLabel string    `json:"secondary_label,omitempty"`
	Confidence     float64   `json:"confidence"`
	Complete       bool      `json:"complete"`

	ComputedAt time.Time `json:"computed_at"`
}

// Result is what Compute returns. Profile is nil unless Status is StatusOK.
type Result struct {
	Status      Status   `json:"status"`
	RatingCount int      `json:"rating_count"`
	Needed      int      `json:"needed,omitempty"`
	Profile     *Profile `json:"profile,omitempty"`
}

// Options tunes Compute. A zero Now means the current time; nil GenreStats gives the default rarity.
type Options struct {
	Now        time.Time
	GenreStats GenreStats
}

// SetLabels fills the display labels from the archetype enums.
func (p *Profile) SetLabels() {
	p.PrimaryLabel = p.Primary.Label()
	p.SecondaryLabel = p.Secondary.Label()
}

// Compute builds a fingerprint from the full rating set. Entries with a score outside the rating
// scale are skipped. Fewer than MinRatings usable entries yields StatusInsufficientData.
func Compute(entries []Entry, opts Options) Result {
	now := opts.Now.UTC()
	if opts.Now.IsZero() {
		now = time.Now().UTC()
	}

	usable := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Score < domainmusic.MinScore || e.Score > domainmusic.MaxScore || math.IsNaN(e.Score) {
			continue
		}
		usable = append(usable, e)
	}
	n := len(usable)
	if n < MinRatings {
		return Result{Status: StatusInsufficientData, RatingCount: n, Needed: MinRatings - n}
	}

	p := &Profile{
		RatingCount: n,
		GenreVector: GenreVector(usable),
		TopArtists:  topArtists(usable, now),
		Decades:     decadeHistogram(usable),
		ComputedAt:  now,
	}
	p.Diversity = Diversity(p.GenreVector)
	p.Rarity = Rarity(p.GenreVector, opts.GenreStats)
	p.Adventurousness = clamp01(0.6*p.Diversity + 0.4*p.Rarity)

	scores := make([]float64, n)
	for i, e := range usable {
		scores[i] = e.Score
	}
	p.Polarity = Polarity(scores)
	p.MeanScore, p.StdDevScore, p.MedianScore, p.Skew = scoreStats(scores)

	assignArchetypes(p)
	p.Complete = n >= CompleteRatings
	return Result{Status: StatusOK, RatingCount: n, Profile: p}
}

// GenreVector spreads each score evenly over the entry's genres and normalizes the sums to 1.
// Entries without genres contribute nothing.
func GenreVector(entries []Entry) map[string]float64 {
	sums := map[string]float64{}
	var total float64
	for _, e := range entries {
		genres := NormalizeGenres(e.Genres)
		if len(genres) == 0 || e.Score <= 0 {
			continue
		}
		share := e.Score / float64(len(genres))
		for _, g := range genres {
			sums[g] += share
			total += share
		}
	}
	if total == 0 {
		return map[string]float64{}
	}
	for g := range sums {
		sums[g] /= total
	}
	return sums
}

func topArtists(entries []Entry, now time.Time) []ArtistAffinity {
	byKey := map[string]*ArtistAffinity{}
	for _, e := range entries {
		name := strings.TrimSpace(e.Artist)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		a := byKey[key]
		if a == nil {
			a = &ArtistAffinity{Artist: name}
			byKey[key] = a
		}
		a.Affinity += e.Score / domainmusic.MaxScore
		a.Recency += recencyWeight(e.RatedAt, now)
		a.Ratings++
	}

	out := make([]ArtistAffinity, 0, len(byKey))
	for _, a := range byKey {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Affinity != out[j].Affinity {
			return out[i].Affinity > out[j].Affinity
		}
		if out[i].Recency != out[j].Recency {
			return out[i].Recency > out[j].Recency
		}
		return out[i].Artist < out[j].Artist
	})
	if len(out) > TopArtistLimit {
		out = out[:TopArtistLimit]
	}
	return out
}

func recencyWeight(ratedAt, now time.Time) float64 {
	if ratedAt.IsZero() {
		return 0
	}
	ageDays := now.Sub(ratedAt).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	return math.Exp(-math.Ln2 * ageDays / recencyHalfLifeDays)
}

func decadeHistogram(entries []Entry) map[int]int {
	out := map[int]int{}
	for _, e := range entries {
		if e.ReleaseYear <= 0 {
			continue
		}
		out[e.ReleaseYear/10*10]++
	}
	return out
}

// Diversity is normalized Shannon entropy scaled down for small genre support.
func Diversity(vec map[string]float64) float64 {
	k := 0
	var h float64
	for _, g := range sortedKeys(vec) {
		w := vec[g]
		if w <= 0 {
			continue
		}
		k++
		h -= w * math.Log(w)
	}
	if k < 2 {
		return 0
	}
	return clamp01((h / math.Log(float64(k))) * math.Min(1, float64(k)/diversityFullSupport))
}

// Rarity is the weighted mean of (1 - platform share) over the genre vector.
func Rarity(vec map[string]float64, stats GenreStats) float64 {
	if len(stats) == 0 || len(vec) == 0 {
		return defaultRarity
	}
	var sum, weight float64
	for _, g := range sortedKeys(vec) {
		w := vec[g]
		sum += w * (1 - clamp01(stats[g]))
		weight += w
	}
	if weight == 0 {
		return defaultRarity
	}
	return clamp01(sum / weight)
}

// Polarity is 1 when every score is an extreme and 0 when every score is the midpoint.
func Polarity(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	span := domainmusic.MaxScore - domainmusic.MinScore
	var sum float64
	for _, s := range scores {
		x := (s - domainmusic.MinScore) / span
		sum += math.Abs(2*x - 1)
	}
	return clamp01(sum / float64(len(scores)))
}

// scoreStats returns mean, population stddev, median and (mean-median)/stddev.
func scoreStats(scores []float64) (mean, stddev, median, skew float64) {
	n := len(scores)
	if n == 0 {
		return 0, 0, 0, 0
	}
	for _, s := range scores {
		mean += s
	}
	mean /= float64(n)
	var ss float64
	for _, s := range scores {
		ss += (s - mean) * (s - mean)
	}
	stddev = math.Sqrt(ss / float64(n))

	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)
	if n%2 == 1 {
		median = sorted[n/2]
	} else {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}
	if stddev > 0 {
		skew = (mean - median) / stddev
	}
	return mean, stddev, median, skew
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
