package redis

import (
	"context"
	"testing"
	"time"

	"github.com/yungbote/waxfeed-backend/internal/platform/logger"
)

func TestNewMatchCacheRequiresAddr(t *testing.T) {
	t.Setenv("REDIS_ADDR", "")
	if _, err := NewMatchCache(logger.Nop()); err == nil {
		t.Fatalf("expected error without REDIS_ADDR")
	}
	if _, err := NewMatchCache(nil); err == nil {
		t.Fatalf("expected error without logger")
	}
}

func TestNoopMatchCacheAlwaysMisses(t *testing.T) {
	var c MatchCache = NoopMatchCache{}
	ctx := context.Background()
	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	val, ok, err := c.Get(ctx, "k")
	if err != nil || ok || val != nil {
		t.Fatalf("Get: val=%q ok=%v err=%v", val, ok, err)
	}
}
