package store

import "errors"

var (
	ErrServiceNotFound   = errors.New("service not found")
	ErrCustomerNotFound  = errors.New("customer not found")
	ErrCounterNotFound   = errors.New("counter not found")
	ErrTicketNotFound    = errors.New("ticket not found")
	ErrNoTicket          = errors.New("no ticket available")
	ErrAlreadyClosed     = errors.New("queue entry already closed")
	ErrCounterBusy       = errors.New("counter has an open ticket")
	ErrConflict          = errors.New("lost race, retry")
	ErrDuplicateService  = errors.New("service name already exists")
	ErrDuplicateCustomer = errors.New("customer name already exists")
	ErrDuplicateCounter  = errors.New("counter already exists")
	ErrServiceInUse      = errors.New("service has tickets")
	ErrCustomerInUse     = errors.New("customer has tickets")
)
