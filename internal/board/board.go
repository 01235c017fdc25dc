// Package board is the public display side: recent calls and queue lengths.
// It only reads queue state; the dispatch engine is the sole writer.
package board

import (
	"context"
	"time"

	"office-queue/internal/models"
)

type Store interface {
	RecentCalls(ctx context.Context, limit int) ([]models.BoardCall, error)
	QueueLengths(ctx context.Context, from, to time.Time) ([]models.QueueLength, error)
}

type Aggregator struct {
	store       Store
	recentLimit int
	now         func() time.Time
}

func NewAggregator(store Store, recentLimit int) *Aggregator {
	if recentLimit <= 0 {
		recentLimit = 10
	}
	return &Aggregator{
		store:       store,
		recentLimit: recentLimit,
		now:         time.Now,
	}
}

// Recent reads the latest served calls from the store rather than the hub's
// ring, so the board endpoint survives restarts.
func (a *Aggregator) Recent(ctx context.Context) ([]models.BoardCall, error) {
	return a.store.RecentCalls(ctx, a.recentLimit)
}

// Queues reports today's waiting count for every service, zero-filled.
func (a *Aggregator) Queues(ctx context.Context) ([]models.QueueLength, error) {
	from, to := models.DayBounds(a.now())
	return a.store.QueueLengths(ctx, from, to)
}
