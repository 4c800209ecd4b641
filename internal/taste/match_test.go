package taste

import (
	"testing"

	"github.com/google/uuid"
)

func profile(n int, adv, pol, mean float64, vec map[string]float64) Profile {
	return Profile{RatingCount: n, GenreVector: vec, Adventurousness: adv, Polarity: pol, MeanScore: mean}
}

var (
	rocker = profile(10, 0.3, 0.4, 3.8, map[string]float64{"rock": 0.7, "metal": 0.3})
	jazzer = profile(40, 0.8, 0.2, 3.1, map[string]float64{"jazz": 0.6, "soul": 0.3, "rock": 0.1})
	popper = profile(5, 0.1, 0.9, 4.6, map[string]float64{"pop": 1})
)

func TestTwinsAndOppositesAreSymmetric(t *testing.T) {
	pairs := [][2]Profile{{rocker, jazzer}, {jazzer, popper}, {rocker, popper}}
	for i, p := range pairs {
		if a, b := Similarity(p[0], p[1]), Similarity(p[1], p[0]); a != b {
			t.Fatalf("pair %d twins: %v != %v", i, a, b)
		}
		if a, b := Opposition(p[0], p[1]), Opposition(p[1], p[0]); a != b {
			t.Fatalf("pair %d opposites: %v != %v", i, a, b)
		}
	}
}

func TestSimilarityOfIdenticalProfiles(t *testing.T) {
	if got := Similarity(rocker, rocker); !near(got, 1) {
		t.Fatalf("self similarity: want=1 got=%v", got)
	}
	if got := Opposition(rocker, rocker); !near(got, 0) {
		t.Fatalf("self opposition: want=0 got=%v", got)
	}
}

func TestGuidesRequireMoreRatings(t *testing.T) {
	if _, ok := Guidance(jazzer, rocker); ok {
		t.Fatalf("guide with fewer ratings accepted")
	}
	s, ok := Guidance(rocker, jazzer)
	if !ok {
		t.Fatalf("guide with more ratings rejected")
	}
	want := 0.7*Cosine(rocker.GenreVector, jazzer.GenreVector) + 0.3*(0.8-0.3)
	if !near(s, want) {
		t.Fatalf("guidance: want=%v got=%v", want, s)
	}
}

func TestRankOrdersAndLimits(t *testing.T) {
	me := uuid.New()
	twin := profile(12, 0.32, 0.42, 3.7, map[string]float64{"rock": 0.65, "metal": 0.35})
	cands := []Candidate{
		{UserID: uuid.New(), Profile: jazzer},
		{UserID: me, Profile: rocker},
		{UserID: uuid.New(), Profile: popper},
		{UserID: uuid.New(), Profile: twin},
	}

	got := Rank(me, rocker, cands, ModeTwins, 2)
	if len(got) != 2 {
		t.Fatalf("limit: want=2 got=%d", len(got))
	}
	if got[0].UserID != cands[3].UserID || got[0].Mode != ModeTwins {
		t.Fatalf("best twin: got=%+v", got[0])
	}
	if got[0].Score < got[1].Score {
		t.Fatalf("order: %v < %v", got[0].Score, got[1].Score)
	}

	opp := Rank(me, rocker, cands, ModeOpposites, 0)
	if len(opp) != 3 || opp[0].UserID != cands[2].UserID {
		t.Fatalf("opposites: %+v", opp)
	}

	guides := Rank(me, rocker, cands, ModeGuides, 10)
	for _, m := range guides {
		if m.UserID == cands[2].UserID {
			t.Fatalf("guides included a candidate with fewer ratings")
		}
	}
	if len(guides) != 2 {
		t.Fatalf("guides: want=2 got=%d", len(guides))
	}
}

func TestRankAllLabelsWinningMode(t *testing.T) {
	me := uuid.New()
	tagged := rocker
	tagged.Primary = ArchetypeHeadbanger
	cands := []Candidate{
		{UserID: uuid.New(), Profile: tagged},
		{UserID: uuid.New(), Profile: popper},
	}
	got := Rank(me, rocker, cands, ModeAll, 10)
	if len(got) != 2 {
		t.Fatalf("all: want=2 got=%d", len(got))
	}
	for _, m := range got {
		var want Profile
		if m.UserID == cands[0].UserID {
			want = rocker
		} else {
			want = popper
		}
		best, mode, _ := Score(ModeAll, rocker, want)
		if m.Score != best || m.Mode != mode {
			t.Fatalf("all %s: want=%v/%s got=%v/%s", m.UserID, best, mode, m.Score, m.Mode)
		}
	}
	if got[0].PrimaryLabel != "The Headbanger" {
		t.Fatalf("match label: want=%q got=%q", "The Headbanger", got[0].PrimaryLabel)
	}
	if got[0].UserID != cands[0].UserID || got[0].Mode != ModeTwins {
		t.Fatalf("identical taste should win as twins: %+v", got[0])
	}
	if got[1].Mode != ModeOpposites {
		t.Fatalf("disjoint taste should win as opposites: %+v", got[1])
	}
}

func TestRankTiesByUserID(t *testing.T) {
	a := uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	b := uuid.MustParse("00000000-0000-0000-0000-00000000000b")
	got := Rank(uuid.New(), rocker, []Candidate{{UserID: b, Profile: jazzer}, {UserID: a, Profile: jazzer}}, ModeTwins, 5)
	if len(got) != 2 || got[0].UserID != a {
		t.Fatalf("tie order: %+v", got)
	}
}

func TestParseModeAndClampLimit(t *testing.T) {
	if m, err := ParseMode(""); err != nil || m != ModeTwins {
		t.Fatalf("empty mode: m=%s err=%v", m, err)
	}
	if m, err := ParseMode(" Opposites "); err != nil || m != ModeOpposites {
		t.Fatalf("opposites: m=%s err=%v", m, err)
	}
	if _, err := ParseMode("enemies"); err == nil {
		t.Fatalf("unknown mode accepted")
	}
	for in, want := range map[int]int{-3: 10, 0: 10, 1: 1, 50: 50, 51: 50} {
		if got := ClampLimit(in); got != want {
			t.Fatalf("ClampLimit(%d): want=%d got=%d", in, want, got)
		}
	}
}
