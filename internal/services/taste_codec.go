package services

import (
	"encoding/json"

	"gorm.io/datatypes"

	types "github.com/yungbote/waxfeed-backend/internal/domain"
	"github.com/yungbote/waxfeed-backend/internal/taste"
)

func fingerprintFromProfile(p *taste.Profile) (types.TasteFingerprint, error) {
	var fp types.TasteFingerprint
	genres, err := json.Marshal(p.GenreVector)
	if err != nil {
		return fp, err
	}
	artists, err := json.Marshal(p.TopArtists)
	if err != nil {
		return fp, err
	}
	decades, err := json.Marshal(p.Decades)
	if err != nil {
		return fp, err
	}
	return types.TasteFingerprint{
		RatingCount:        p.RatingCount,
		GenreVector:        datatypes.JSON(genres),
		TopArtists:         datatypes.JSON(artists),
		Decades:            datatypes.JSON(decades),
		Diversity:          p.Diversity,
		Rarity:             p.Rarity,
		Adventurousness:    p.Adventurousness,
		Polarity:           p.Polarity,
		MeanScore:          p.MeanScore,
		StdDevScore:        p.StdDevScore,
		MedianScore:        p.MedianScore,
		Skew:               p.Skew,
		PrimaryArchetype:   string(p.Primary),
		SecondaryArchetype: string(p.Secondary),
		Confidence:         p.Confidence,
		Complete:           p.Complete,
		ComputedAt:         p.ComputedAt.UTC(),
	}, nil
}

func profileFromFingerprint(fp types.TasteFingerprint) (taste.Profile, error) {
	p := taste.Profile{
		RatingCount:     fp.RatingCount,
		GenreVector:     map[string]float64{},
		Decades:         map[int]int{},
		Diversity:       fp.Diversity,
		Rarity:          fp.Rarity,
		Adventurousness: fp.Adventurousness,
		Polarity:        fp.Polarity,
		MeanScore:       fp.MeanScore,
		StdDevScore:     fp.StdDevScore,
		MedianScore:     fp.MedianScore,
		Skew:            fp.Skew,
		Confidence:      fp.Confidence,
		Complete:        fp.Complete,
		ComputedAt:      fp.ComputedAt.UTC(),
	}
	p.Primary, _ = taste.ParseArchetype(fp.PrimaryArchetype)
	p.Secondary, _ = taste.ParseArchetype(fp.SecondaryArchetype)
	p.SetLabels()
	if err := decodeJSON(fp.GenreVector, &p.GenreVector); err != nil {
		return p, err
	}
	if err := decodeJSON(fp.TopArtists, &p.TopArtists); err != nil {
		return p, err
	}
	if err := decodeJSON(fp.Decades, &p.Decades); err != nil {
		return p, err
	}
	return p, nil
}

func decodeJSON(raw datatypes.JSON, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

// entriesFromRatedAlbums maps rated rows onto engine entries. Rows with unreadable genres keep
// their score and drop the genres.
func entriesFromRatedAlbums(rows []repoRatedAlbum) []taste.Entry {
	out := make([]taste.Entry, 0, len(rows))
	for _, r := range rows {
		var genres []string
		_ = decodeJSON(r.Genres, &genres)
		out = append(out, taste.Entry{
			AlbumID:     r.AlbumID,
			Genres:      genres,
			Artist:      r.Artist,
			ReleaseYear: r.ReleaseYear,
			Score:       r.Score,
			RatedAt:     r.RatedAt.UTC(),
		})
	}
	return out
}

// genreStatsFromCounts turns per-album rating counts into platform genre shares.
func genreStatsFromCounts(rows []repoAlbumGenreCount) taste.GenreStats {
	counts := map[string]int64{}
	var total int64
	for _, r := range rows {
		if r.Ratings <= 0 {
			continue
		}
		total += r.Ratings
		var genres []string
		if err := decodeJSON(r.Genres, &genres); err != nil {
			continue
		}
		for _, g := range taste.NormalizeGenres(genres) {
			counts[g] += r.Ratings
		}
	}
	return taste.NewGenreStats(counts, total)
}
