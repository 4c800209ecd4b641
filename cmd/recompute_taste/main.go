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
	var limit int
	flag.Var(&users, "user", "user_id to recompute (repeatable); default is every user with ratings")
	flag.IntVar(&limit, "limit", 0, "limit number of users processed")
	flag.Parse()

	application, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	ctx := context.Background()

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
		err = application.DB.WithContext(ctx).Model(&types.Rating{}).Distinct("user_id").Order("user_id").Pluck("user_id", &ids).Error
		if err != nil {
			fmt.Printf("load rating users: %v\n", err)
			os.Exit(1)
		}
	}
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	computed, insufficient := 0, 0
	for _, id := range ids {
		res, err := application.Services.Taste.ComputeProfile(ctx, id)
		if err != nil {
			fmt.Printf("recompute failed for %s: %v\n", id, err)
			continue
		}
		if res.Profile == nil {
			insufficient++
			continue
		}
		computed++
		fmt.Printf("recomputed user_id=%s ratings=%d primary=%s\n", id, res.RatingCount, res.Profile.Primary)
	}

	fmt.Printf("done; computed=%d insufficient=%d\n", computed, insufficient)
}
