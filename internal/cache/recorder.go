package cache

import (
	"context"
	"errors"

	"github.com/aman-zulfiqar/drift-toolkit/internal/models"
)

// SwapRecorder writes executed swaps to Redis and ClickHouse. Either may be nil.
type SwapRecorder struct {
	Redis      *RedisCache
	ClickHouse *ClickHouseStore
}

func (r SwapRecorder) RecordSwap(ctx context.Context, ev *models.SwapEvent) error {
	var errs []error
	if r.Redis != nil {
		errs = append(errs, r.Redis.RecordSwap(ctx, ev))
	}
	if r.ClickHouse != nil {
		errs = append(errs, r.ClickHouse.InsertSwap(ctx, ev))
	}
	return errors.Join(errs...)
}
