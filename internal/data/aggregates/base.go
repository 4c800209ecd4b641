package aggregates

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	domainagg "github.com/yungbote/waxfeed-backend/internal/domain/aggregates"
	"github.com/yungbote/waxfeed-backend/internal/platform/ctxutil"
	"github.com/yungbote/waxfeed-backend/internal/platform/dbctx"
	"github.com/yungbote/waxfeed-backend/internal/platform/logger"
)

type BaseDeps struct {
	DB       *gorm.DB
	Log      *logger.Logger
	Runner   TxRunner
	Hooks    Hooks
	CASGuard CASGuard

	// MaxRetries is how many extra attempts a write gets after a conflict or retryable failure.
	MaxRetries   int
	RetryBackoff time.Duration
	// LockTimeout bounds row lock waits for the default runner.
	LockTimeout time.Duration
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Runner == nil {
		d.Runner = NewGormTxRunner(d.DB, d.LockTimeout)
	}
	if d.Hooks == nil {
		d.Hooks = noopHooks{}
	}
	if d.CASGuard.db == nil {
		d.CASGuard = NewCASGuard(d.DB)
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.MaxRetries < 0 {
		d.MaxRetries = 0
	}
	return d
}

// executeWrite runs fn in one transaction per attempt. Conflicts and retryable failures roll the
// attempt back and start over, up to deps.MaxRetries times. fn must reset any result it captures.
func executeWrite(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error) error {
	start := time.Now()
	deps = deps.withDefaults()
	op = strings.TrimSpace(op)
	if op == "" {
		op = "aggregate.write"
	}
	log := deps.Log.With("op", op)
	if td := ctxutil.GetTraceData(ctx); td != nil {
		log = log.With("request_id", td.RequestID, "trace_id", td.TraceID)
	}

	var mapped error
	for attempt := 0; ; attempt++ {
		mapped = MapError(op, deps.Runner.InTx(ctx, fn))
		if mapped == nil {
			break
		}
		if domainagg.IsCode(mapped, domainagg.CodeConflict) {
			deps.Hooks.IncConflict(op)
		}
		if domainagg.IsCode(mapped, domainagg.CodeRetryable) {
			deps.Hooks.IncRetry(op)
		}
		if attempt >= deps.MaxRetries || !domainagg.Retryable(mapped) || ctx.Err() != nil {
			break
		}
		log.Debug("aggregate write retry", "attempt", attempt+1, "error", mapped)
		if !sleepCtx(ctx, deps.RetryBackoff*time.Duration(attempt+1)) {
			break
		}
	}

	status := "success"
	if mapped != nil {
		status = aggregateErrorStatus(mapped)
		if !domainagg.IsCode(mapped, domainagg.CodeValidation) {
			log.Warn("aggregate write failed", "status", status, "error", mapped)
		}
	}
	deps.Hooks.ObserveOperation(op, status, time.Since(start))
	return mapped
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func aggregateErrorStatus(err error) string {
	if err == nil {
		return "success"
	}
	code := strings.TrimSpace(string(domainagg.CodeOf(err)))
	if code == "" {
		code = strings.TrimSpace(string(domainagg.CodeOf(MapError("aggregate.status", err))))
	}
	if code == "" {
		return "failure"
	}
	return code
}
