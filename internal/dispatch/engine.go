// Package dispatch decides which waiting ticket an officer serves next.
package dispatch

import (
	"context"
	"errors"
	"time"

	"office-queue/internal/models"
	"office-queue/internal/store"
)

// Store is the slice of the queue store the engine needs. All mutation goes
// through ClaimOldestWaiting and CloseEntry; the engine never writes state
// any other way.
type Store interface {
	ServicesForCounter(ctx context.Context, counterID int64) ([]models.Service, error)
	ActiveEntryForCounter(ctx context.Context, counterID int64) (models.QueueEntry, bool, error)
	WaitingCounts(ctx context.Context, serviceIDs []int64, from, to time.Time) (map[int64]int, error)
	ClaimOldestWaiting(ctx context.Context, input store.ClaimInput) (models.Ticket, models.QueueEntry, error)
	CloseEntry(ctx context.Context, ticketCode int64, closedAt time.Time) (models.QueueEntry, error)
}

// Notifier receives a board call after every successful serve.
type Notifier interface {
	PublishCall(call models.BoardCall)
}

type Engine struct {
	store    Store
	notifier Notifier
	now      func() time.Time
}

func New(store Store, notifier Notifier) *Engine {
	return &Engine{
		store:    store,
		notifier: notifier,
		now:      time.Now,
	}
}

// claimAttempts bounds the recompute loop: the first pass plus one retry
// after a lost race.
const claimAttempts = 2

// CallNext serves the next ticket for the counter: among the counter's
// services it picks the one with the longest waiting queue today, breaking
// ties by smallest average handling time and then by lowest service id, and
// claims the oldest waiting entry of that service.
//
// Returns store.ErrNoTicket when every authorized queue is empty,
// store.ErrCounterNotFound for unknown counters, store.ErrCounterBusy when
// the counter already has an unclosed served ticket, and store.ErrConflict
// when the claim loses the race twice in a row.
func (e *Engine) CallNext(ctx context.Context, counterID int64) (models.Ticket, error) {
	services, err := e.store.ServicesForCounter(ctx, counterID)
	if err != nil {
		return models.Ticket{}, err
	}
	if len(services) == 0 {
		return models.Ticket{}, store.ErrNoTicket
	}

	if _, busy, err := e.store.ActiveEntryForCounter(ctx, counterID); err != nil {
		return models.Ticket{}, err
	} else if busy {
		return models.Ticket{}, store.ErrCounterBusy
	}

	serviceIDs := make([]int64, len(services))
	for i, svc := range services {
		serviceIDs[i] = svc.ID
	}

	from, to := models.DayBounds(e.now())

	for attempt := 0; attempt < claimAttempts; attempt++ {
		counts, err := e.store.WaitingCounts(ctx, serviceIDs, from, to)
		if err != nil {
			return models.Ticket{}, err
		}

		selected, ok := pickService(services, counts)
		if !ok {
			return models.Ticket{}, store.ErrNoTicket
		}

		ticket, entry, err := e.store.ClaimOldestWaiting(ctx, store.ClaimInput{
			ServiceID: selected.ID,
			CounterID: counterID,
			From:      from,
			To:        to,
			CalledAt:  e.now(),
		})
		if errors.Is(err, store.ErrNoTicket) {
			// Another counter drained the selected queue between the count
			// and the claim; recompute once.
			continue
		}
		if err != nil {
			return models.Ticket{}, err
		}

		if e.notifier != nil {
			at := entry.CreatedAt
			if entry.ServedAt != nil {
				at = *entry.ServedAt
			}
			e.notifier.PublishCall(models.BoardCall{
				Ticket:  ticket.TicketCode,
				Counter: counterID,
				Service: ticket.Service.Name,
				At:      at,
			})
		}
		return ticket, nil
	}

	return models.Ticket{}, store.ErrConflict
}

// CloseTicket finishes (or skips) the ticket currently served at a counter.
func (e *Engine) CloseTicket(ctx context.Context, ticketCode int64) (models.QueueEntry, error) {
	return e.store.CloseEntry(ctx, ticketCode, e.now())
}

// pickService applies the dispatch rule to the waiting counts: longest queue
// wins; ties go to the smallest average handling time, then to the lowest
// service id. Services with empty queues never win; ok is false when all
// queues are empty.
func pickService(services []models.Service, counts map[int64]int) (models.Service, bool) {
	var best models.Service
	bestCount := 0
	for _, svc := range services {
		count := counts[svc.ID]
		if count == 0 {
			continue
		}
		switch {
		case count > bestCount:
		case count < bestCount:
			continue
		case svc.AverageServiceTime < best.AverageServiceTime:
		case svc.AverageServiceTime > best.AverageServiceTime:
			continue
		case svc.ID < best.ID:
		default:
			continue
		}
		best = svc
		bestCount = count
	}
	return best, bestCount > 0
}
