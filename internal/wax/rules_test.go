package wax

import (
	"os"
	"path/filepath"
	"testing"

	domainuser "github.com/yungbote/waxfeed-backend/internal/domain/user"
	"github.com/yungbote/waxfeed-backend/internal/platform/logger"
)

func TestEmbeddedRulesMatchDefaults(t *testing.T) {
	t.Setenv(rulesPathEnv, "")
	rules := Load(logger.Nop())
	def := Default()

	for _, tier := range []domainuser.Tier{domainuser.TierFree, domainuser.TierPlus, domainuser.TierPro} {
		if got, want := rules.Tier(tier), def.Tier(tier); got != want {
			t.Fatalf("tier %s: want=%+v got=%+v", tier, want, got)
		}
	}
	if rules.Earn != def.Earn {
		t.Fatalf("earn: want=%+v got=%+v", def.Earn, rules.Earn)
	}
}

func TestLimitsByTier(t *testing.T) {
	rules := Default()
	cases := []struct {
		tier                 domainuser.Tier
		daily, weekly, claim int64
	}{
		{domainuser.TierFree, 50, 250, 5},
		{domainuser.TierPlus, 100, 500, 10},
		{domainuser.TierPro, 200, 1000, 20},
		{domainuser.Tier("enterprise"), 50, 250, 5},
	}
	for _, c := range cases {
		l := rules.Limits(c.tier)
		if l.DailyCap != c.daily || l.WeeklyCap != c.weekly || l.DailyClaimAmount != c.claim {
			t.Fatalf("Limits(%s): got=%+v", c.tier, l)
		}
		if l.StreakDays != 7 || l.StreakBonus != 15 {
			t.Fatalf("Limits(%s) streak: got=%+v", c.tier, l)
		}
	}
}

func TestParseRejectsBadRules(t *testing.T) {
	cases := map[string]string{
		"no tiers":       "version: 1\n",
		"unknown tier":   "tiers:\n  gold: {daily_cap: 1, weekly_cap: 5, daily_claim: 1}\n",
		"no free":        "tiers:\n  pro: {daily_cap: 1, weekly_cap: 5, daily_claim: 1}\n",
		"zero claim":     "tiers:\n  free: {daily_cap: 1, weekly_cap: 5, daily_claim: 0}\n",
		"weekly < daily": "tiers:\n  free: {daily_cap: 10, weekly_cap: 5, daily_claim: 1}\n",
		"bad yaml":       "tiers: [",
	}
	for name, raw := range cases {
		if _, err := Parse([]byte(raw)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	raw := "version: 2\ntiers:\n  FREE: {daily_cap: 10, weekly_cap: 40, daily_claim: 2}\nearn:\n  review: 3\n  streak_days: 5\n  streak_bonus: 7\n"
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write rules: %v", err)
	}
	t.Setenv(rulesPathEnv, path)

	rules := Load(logger.Nop())
	if rules.Version != 2 {
		t.Fatalf("version: want=2 got=%d", rules.Version)
	}
	l := rules.Limits(domainuser.TierPro)
	if l.DailyCap != 10 || l.WeeklyCap != 40 || l.DailyClaimAmount != 2 || l.StreakDays != 5 || l.StreakBonus != 7 {
		t.Fatalf("override limits: got=%+v", l)
	}
	if rules.Earn.Review != 3 {
		t.Fatalf("review: want=3 got=%d", rules.Earn.Review)
	}
}

func TestLoadFallsBackOnMissingFile(t *testing.T) {
	t.Setenv(rulesPathEnv, filepath.Join(t.TempDir(), "missing.yaml"))
	rules := Load(logger.Nop())
	if got := rules.Limits(domainuser.TierPlus).DailyCap; got != 100 {
		t.Fatalf("fallback plus daily cap: want=100 got=%d", got)
	}
}
