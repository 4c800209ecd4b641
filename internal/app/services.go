package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/waxfeed-backend/internal/data/aggregates"
	domainagg "github.com/yungbote/waxfeed-backend/internal/domain/aggregates"
	"github.com/yungbote/waxfeed-backend/internal/observability"
	"github.com/yungbote/waxfeed-backend/internal/platform/logger"
	"github.com/yungbote/waxfeed-backend/internal/services"
	"github.com/yungbote/waxfeed-backend/internal/wax"
)

type Services struct {
	Auth      services.AuthService
	WaxLedger domainagg.WaxLedgerAggregate
	Wax       services.WaxService
	Taste     services.TasteService
	Rating    services.RatingService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, repos Repos, clients Clients, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")

	rules := wax.Load(log)

	ledger := aggregates.NewWaxLedgerAggregate(aggregates.WaxLedgerAggregateDeps{
		Base: aggregates.BaseDeps{
			DB:          db,
			Log:         log,
			Hooks:       aggregates.NewObservabilityHooks(metrics),
			MaxRetries:  aggregates.DefaultLedgerRetries,
			LockTimeout: aggregates.DefaultLedgerLockTimeout,
		},
		Balances:     repos.WaxBalance,
		Transactions: repos.WaxTransaction,
		Metrics:      metrics,
	})
	if err := aggregates.RequireOwnedTx(ledger); err != nil {
		return Services{}, fmt.Errorf("wire wax ledger: %w", err)
	}
	log.Info("Aggregate contract", "aggregate", ledger.Contract().Name, "reads", ledger.Contract().ReadPolicy)

	waxService := services.NewWaxService(services.WaxServiceDeps{
		DB:           db,
		Log:          log,
		Users:        repos.User,
		Balances:     repos.WaxBalance,
		Transactions: repos.WaxTransaction,
		Ledger:       ledger,
		Rules:        rules,
	})

	tasteService := services.NewTasteService(services.TasteServiceDeps{
		DB:             db,
		Log:            log,
		Ratings:        repos.Rating,
		Albums:         repos.Album,
		Profiles:       repos.TasteProfile,
		Snapshots:      repos.TasteProfileSnapshot,
		Cache:          clients.MatchCache,
		CacheTTL:       cfg.MatchCacheTTL,
		CandidateLimit: cfg.MatchCandidateLimit,
		Metrics:        metrics,
	})

	ratingService := services.NewRatingService(services.RatingServiceDeps{
		Log:     log,
		Albums:  repos.Album,
		Ratings: repos.Rating,
		Badges:  repos.UserBadge,
		Taste:   tasteService,
		Wax:     waxService,
	})

	return Services{
		Auth:      services.NewAuthService(log, cfg.JWTSecretKey, cfg.AccessTokenTTL),
		WaxLedger: ledger,
		Wax:       waxService,
		Taste:     tasteService,
		Rating:    ratingService,
	}, nil
}
