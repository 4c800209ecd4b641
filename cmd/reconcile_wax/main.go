package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/waxfeed-backend/internal/app"
	types "github.com/yungbote/waxfeed-backend/internal/domain"
	"github.com/yungbote/waxfeed-backend/internal/platform/dbctx"
)

type idList []string

func (l *idList) String() string { return strings.Join(*l, ",") }
func (l *idList) Set(v string) error {
	v = strings.TrimSpace(v)
	if v != "" {
		*l = append(*l, v)
	}
	return nil
}

func main() {
	var users idList
	var dryRun bool
	var unfreeze bool
	var limit int
	flag.Var(&users, "user", "user_id to reconcile (repeatable); default is every wax account")
	flag.BoolVar(&dryRun, "dry-run", false, "report mismatches without freezing")
	flag.BoolVar(&unfreeze, "unfreeze", false, "lift the freeze on accounts whose balance matches the ledger again")
	flag.IntVar(&limit, "limit", 0, "limit number of accounts processed")
	flag.Parse()

	application, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}

	var ids []uuid.UUID
	if len(users) > 0 {
		for _, s := range users {
			id, err := uuid.Parse(strings.TrimSpace(s))
			if err == nil && id != uuid.Nil {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			fmt.Println("no valid user_id values provided")
			return
		}
	} else {
		err = application.DB.WithContext(ctx).Model(&types.WaxBalance{}).Order("user_id").Pluck("user_id", &ids).Error
		if err != nil {
			fmt.Printf("load wax accounts: %v\n", err)
			os.Exit(1)
		}
	}
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	mismatched, frozen, unfrozen := 0, 0, 0
	for _, id := range ids {
		if dryRun {
			bal, err := application.Repos.WaxBalance.GetByUserID(dbc, id)
			if err != nil || bal == nil {
				continue
			}
			sum, err := application.Repos.WaxTransaction.SumDelta(dbc, id)
			if err != nil {
				fmt.Printf("sum ledger for %s: %v\n", id, err)
				continue
			}
			if bal.Balance != sum {
				mismatched++
				fmt.Printf("[dry-run] mismatch user_id=%s balance=%d ledger_sum=%d frozen=%v\n", id, bal.Balance, sum, bal.Frozen)
			}
			continue
		}
		if unfreeze {
			res, err := application.Services.WaxLedger.Unfreeze(ctx, id)
			if err != nil {
				fmt.Printf("unfreeze refused for %s: %v\n", id, err)
				continue
			}
			if !res.Frozen {
				unfrozen++
			}
			continue
		}
		res, err := application.Services.WaxLedger.Reconcile(ctx, id)
		if !res.Consistent && res.LedgerSum != res.Balance {
			mismatched++
			if res.Frozen {
				frozen++
			}
			fmt.Printf("mismatch user_id=%s balance=%d ledger_sum=%d frozen=%v\n", id, res.Balance, res.LedgerSum, res.Frozen)
			continue
		}
		if err != nil {
			fmt.Printf("reconcile failed for %s: %v\n", id, err)
		}
	}

	fmt.Printf("done; checked=%d mismatched=%d frozen=%d unfrozen=%d\n", len(ids), mismatched, frozen, unfrozen)
}
