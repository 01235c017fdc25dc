package store

import (
	"context"
	"time"

	"office-queue/internal/models"
)

type CreateServiceInput struct {
	Name               string
	Description        string
	AverageServiceTime int
}

type CreateCustomerInput struct {
	FirstName   string
	LastName    string
	PhoneNumber string
}

type CreateTicketInput struct {
	CustomerID int64
	ServiceID  int64
	CreatedAt  time.Time
}

// ClaimInput identifies the head waiting entry to serve: the oldest unserved
// entry for ServiceID created within [From, To).
type ClaimInput struct {
	ServiceID int64
	CounterID int64
	From      time.Time
	To        time.Time
	CalledAt  time.Time
}

// Store is the full persistence contract. The dispatch engine depends only on
// the narrow subset it declares for itself; handlers consume this interface.
type Store interface {
	CreateService(ctx context.Context, input CreateServiceInput) (models.Service, error)
	GetService(ctx context.Context, serviceID int64) (models.Service, error)
	ListServices(ctx context.Context) ([]models.Service, error)
	DeleteService(ctx context.Context, serviceID int64) error

	CreateCustomer(ctx context.Context, input CreateCustomerInput) (models.Customer, error)
	GetCustomer(ctx context.Context, customerID int64) (models.Customer, error)
	ListCustomers(ctx context.Context) ([]models.Customer, error)
	DeleteCustomer(ctx context.Context, customerID int64) error

	CreateCounter(ctx context.Context, counterID int64, serviceIDs []int64) (models.Counter, error)
	UpdateCounterServices(ctx context.Context, counterID int64, serviceIDs []int64) (models.Counter, error)
	GetCounter(ctx context.Context, counterID int64) (models.Counter, error)
	ListCounters(ctx context.Context) ([]models.Counter, error)
	ServicesForCounter(ctx context.Context, counterID int64) ([]models.Service, error)

	CreateTicket(ctx context.Context, input CreateTicketInput) (models.Ticket, error)
	GetTicket(ctx context.Context, ticketCode int64) (models.Ticket, error)
	ListTickets(ctx context.Context) ([]models.Ticket, error)

	WaitingCounts(ctx context.Context, serviceIDs []int64, from, to time.Time) (map[int64]int, error)
	WaitingEntries(ctx context.Context, serviceID int64, from, to time.Time) ([]models.QueueEntry, error)
	AllWaitingEntries(ctx context.Context, from, to time.Time) ([]models.QueueEntry, error)
	ClaimOldestWaiting(ctx context.Context, input ClaimInput) (models.Ticket, models.QueueEntry, error)
	ActiveEntryForCounter(ctx context.Context, counterID int64) (models.QueueEntry, bool, error)
	CloseEntry(ctx context.Context, ticketCode int64, closedAt time.Time) (models.QueueEntry, error)
	ServedByCounter(ctx context.Context, counterID int64, from, to time.Time) ([]models.QueueEntry, error)
	RecentCalls(ctx context.Context, limit int) ([]models.BoardCall, error)
	QueueLengths(ctx context.Context, from, to time.Time) ([]models.QueueLength, error)
}
