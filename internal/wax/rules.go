package wax

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	types "github.com/yungbote/waxfeed-backend/internal/domain"
	domainagg "github.com/yungbote/waxfeed-backend/internal/domain/aggregates"
	domainuser "github.com/yungbote/waxfeed-backend/internal/domain/user"
	"github.com/yungbote/waxfeed-backend/internal/platform/logger"
)

const rulesPathEnv = "WAX_RULES_YAML"

//go:embed wax_rules.yaml
var rulesFS embed.FS

type TierRules struct {
	DailyCap   int64 `yaml:"daily_cap"`
	WeeklyCap  int64 `yaml:"weekly_cap"`
	DailyClaim int64 `yaml:"daily_claim"`
}

type EarnRules struct {
	Review         int64 `yaml:"review"`
	FirstSpin      int64 `yaml:"first_spin"`
	FirstSpinSlots int   `yaml:"first_spin_slots"`
	StreakBonus    int64 `yaml:"streak_bonus"`
	StreakDays     int   `yaml:"streak_days"`
}

type Rules struct {
	Version int                  `yaml:"version"`
	Tiers   map[string]TierRules `yaml:"tiers"`
	Earn    EarnRules            `yaml:"earn"`
}

// Default is the built-in rule set used when the YAML cannot be loaded.
func Default() *Rules {
	return &Rules{
		Version: 1,
		Tiers: map[string]TierRules{
			string(domainuser.TierFree): {DailyCap: 50, WeeklyCap: 250, DailyClaim: 5},
			string(domainuser.TierPlus): {DailyCap: 100, WeeklyCap: 500, DailyClaim: 10},
			string(domainuser.TierPro):  {DailyCap: 200, WeeklyCap: 1000, DailyClaim: 20},
		},
		Earn: EarnRules{
			Review:         5,
			FirstSpin:      10,
			FirstSpinSlots: 10,
			StreakBonus:    15,
			StreakDays:     7,
		},
	}
}

// Load reads WAX_RULES_YAML when set, otherwise the embedded wax_rules.yaml. A broken file is
// logged and replaced by Default so the ledger keeps running with known caps.
func Load(log *logger.Logger) *Rules {
	data, src, err := readRules()
	if err == nil {
		var rules *Rules
		rules, err = Parse(data)
		if err == nil {
			if log != nil {
				log.Info("wax rules loaded", "source", src, "version", rules.Version)
			}
			return rules
		}
	}
	if log != nil {
		log.Warn("wax rules load failed; using defaults", "source", src, "error", err)
	}
	return Default()
}

func readRules() ([]byte, string, error) {
	if path := strings.TrimSpace(os.Getenv(rulesPathEnv)); path != "" {
		b, err := os.ReadFile(path)
		return b, path, err
	}
	b, err := rulesFS.ReadFile("wax_rules.yaml")
	return b, "embedded", err
}

func Parse(data []byte) (*Rules, error) {
	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, err
	}
	if err := rules.validate(); err != nil {
		return nil, err
	}
	return &rules, nil
}

func (r *Rules) validate() error {
	if r == nil {
		return errors.New("missing rules")
	}
	if len(r.Tiers) == 0 {
		return errors.New("no tiers defined")
	}
	normalized := make(map[string]TierRules, len(r.Tiers))
	for name, tr := range r.Tiers {
		tier := domainuser.Tier(strings.ToLower(strings.TrimSpace(name)))
		if domainuser.ParseTier(string(tier)) != tier {
			return fmt.Errorf("unknown tier: %s", name)
		}
		if tr.DailyCap < 0 || tr.WeeklyCap < 0 {
			return fmt.Errorf("tier %s: caps must be >= 0", name)
		}
		if tr.DailyClaim <= 0 {
			return fmt.Errorf("tier %s: daily_claim must be > 0", name)
		}
		if tr.DailyCap > 0 && tr.WeeklyCap > 0 && tr.WeeklyCap < tr.DailyCap {
			return fmt.Errorf("tier %s: weekly_cap below daily_cap", name)
		}
		normalized[string(tier)] = tr
	}
	if _, ok := normalized[string(domainuser.TierFree)]; !ok {
		return errors.New("free tier is required")
	}
	r.Tiers = normalized

	if r.Earn.Review < 0 || r.Earn.FirstSpin < 0 || r.Earn.StreakBonus < 0 {
		return errors.New("earn amounts must be >= 0")
	}
	if r.Earn.FirstSpinSlots < 0 || r.Earn.StreakDays < 0 {
		return errors.New("earn counts must be >= 0")
	}
	return nil
}

// Tier returns the rules for tier, falling back to free for unknown tiers.
func (r *Rules) Tier(tier types.Tier) TierRules {
	if r == nil {
		return Default().Tier(tier)
	}
	if tr, ok := r.Tiers[string(tier)]; ok {
		return tr
	}
	return r.Tiers[string(domainuser.TierFree)]
}

func (r *Rules) Limits(tier types.Tier) domainagg.WaxLimits {
	if r == nil {
		r = Default()
	}
	tr := r.Tier(tier)
	return domainagg.WaxLimits{
		DailyCap:         tr.DailyCap,
		WeeklyCap:        tr.WeeklyCap,
		DailyClaimAmount: tr.DailyClaim,
		StreakDays:       r.Earn.StreakDays,
		StreakBonus:      r.Earn.StreakBonus,
	}
}
