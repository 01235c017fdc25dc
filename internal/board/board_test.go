package board

import (
	"context"
	"testing"
	"time"

	"office-queue/internal/models"
)

type fakeBoardStore struct {
	recentCalls  func(ctx context.Context, limit int) ([]models.BoardCall, error)
	queueLengths func(ctx context.Context, from, to time.Time) ([]models.QueueLength, error)
}

func (f *fakeBoardStore) RecentCalls(ctx context.Context, limit int) ([]models.BoardCall, error) {
	return f.recentCalls(ctx, limit)
}

func (f *fakeBoardStore) QueueLengths(ctx context.Context, from, to time.Time) ([]models.QueueLength, error) {
	return f.queueLengths(ctx, from, to)
}

func TestAggregatorRecentUsesConfiguredLimit(t *testing.T) {
	st := &fakeBoardStore{
		recentCalls: func(_ context.Context, limit int) ([]models.BoardCall, error) {
			if limit != 7 {
				t.Fatalf("expected limit 7, got %d", limit)
			}
			return []models.BoardCall{{Ticket: 1}}, nil
		},
	}
	agg := NewAggregator(st, 7)

	calls, err := agg.Recent(context.Background())
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
}

func TestAggregatorQueuesScopedToToday(t *testing.T) {
	fixed := time.Date(2026, time.March, 14, 15, 9, 0, 0, time.Local)
	st := &fakeBoardStore{
		queueLengths: func(_ context.Context, from, to time.Time) ([]models.QueueLength, error) {
			wantFrom, wantTo := models.DayBounds(fixed)
			if !from.Equal(wantFrom) || !to.Equal(wantTo) {
				t.Fatalf("expected [%v, %v), got [%v, %v)", wantFrom, wantTo, from, to)
			}
			return []models.QueueLength{{ServiceID: 1, ServiceName: "shipping", Queue: 0}}, nil
		},
	}
	agg := NewAggregator(st, 10)
	agg.now = func() time.Time { return fixed }

	lengths, err := agg.Queues(context.Background())
	if err != nil {
		t.Fatalf("Queues: %v", err)
	}
	if len(lengths) != 1 || lengths[0].Queue != 0 {
		t.Fatalf("unexpected lengths: %+v", lengths)
	}
}

func TestAggregatorDefaultLimit(t *testing.T) {
	st := &fakeBoardStore{
		recentCalls: func(_ context.Context, limit int) ([]models.BoardCall, error) {
			if limit != 10 {
				t.Fatalf("expected default limit 10, got %d", limit)
			}
			return nil, nil
		},
	}
	agg := NewAggregator(st, 0)

	if _, err := agg.Recent(context.Background()); err != nil {
		t.Fatalf("Recent: %v", err)
	}
}
