package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"office-queue/internal/models"
	"office-queue/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// activeCounterIdx backs the one-open-ticket-per-counter invariant; claims
// racing on the same counter trip it and must surface as a busy conflict.
const activeCounterIdx = "queue_entries_active_counter_idx"

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == constraint
}

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) CreateService(ctx context.Context, input store.CreateServiceInput) (models.Service, error) {
	var svc models.Service
	var descNull sql.NullString
	row := s.pool.QueryRow(ctx, `
		INSERT INTO services (name, description, avg_service_time)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO NOTHING
		RETURNING id, name, description, avg_service_time
	`, input.Name, nullIfEmpty(input.Description), input.AverageServiceTime)
	if err := row.Scan(&svc.ID, &svc.Name, &descNull, &svc.AverageServiceTime); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Service{}, store.ErrDuplicateService
		}
		return models.Service{}, err
	}
	if descNull.Valid {
		svc.Description = descNull.String
	}
	return svc, nil
}

func (s *Store) GetService(ctx context.Context, serviceID int64) (models.Service, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, COALESCE(description, ''), avg_service_time
		FROM services
		WHERE id = $1
	`, serviceID)
	var svc models.Service
	if err := row.Scan(&svc.ID, &svc.Name, &svc.Description, &svc.AverageServiceTime); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Service{}, store.ErrServiceNotFound
		}
		return models.Service{}, err
	}
	return svc, nil
}

func (s *Store) ListServices(ctx context.Context) ([]models.Service, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, COALESCE(description, ''), avg_service_time
		FROM services
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var services []models.Service
	for rows.Next() {
		var svc models.Service
		if err := rows.Scan(&svc.ID, &svc.Name, &svc.Description, &svc.AverageServiceTime); err != nil {
			return nil, err
		}
		services = append(services, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return services, nil
}

func (s *Store) DeleteService(ctx context.Context, serviceID int64) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM services
		WHERE id = $1 AND NOT EXISTS (
			SELECT 1 FROM tickets WHERE service_id = $1
		)
	`, serviceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	row := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM services WHERE id = $1)`, serviceID)
	if err := row.Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return store.ErrServiceNotFound
	}
	return store.ErrServiceInUse
}

func (s *Store) CreateCustomer(ctx context.Context, input store.CreateCustomerInput) (models.Customer, error) {
	var customer models.Customer
	var phoneNull sql.NullString
	row := s.pool.QueryRow(ctx, `
		INSERT INTO customers (first_name, last_name, phone)
		VALUES ($1, $2, $3)
		ON CONFLICT (first_name, last_name) DO NOTHING
		RETURNING id, first_name, last_name, phone
	`, input.FirstName, input.LastName, nullIfEmpty(input.PhoneNumber))
	if err := row.Scan(&customer.ID, &customer.FirstName, &customer.LastName, &phoneNull); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Customer{}, store.ErrDuplicateCustomer
		}
		return models.Customer{}, err
	}
	if phoneNull.Valid {
		customer.PhoneNumber = phoneNull.String
	}
	return customer, nil
}

func (s *Store) GetCustomer(ctx context.Context, customerID int64) (models.Customer, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, first_name, last_name, COALESCE(phone, '')
		FROM customers
		WHERE id = $1
	`, customerID)
	var customer models.Customer
	if err := row.Scan(&customer.ID, &customer.FirstName, &customer.LastName, &customer.PhoneNumber); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Customer{}, store.ErrCustomerNotFound
		}
		return models.Customer{}, err
	}
	return customer, nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, first_name, last_name, COALESCE(phone, '')
		FROM customers
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []models.Customer
	for rows.Next() {
		var customer models.Customer
		if err := rows.Scan(&customer.ID, &customer.FirstName, &customer.LastName, &customer.PhoneNumber); err != nil {
			return nil, err
		}
		customers = append(customers, customer)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

func (s *Store) DeleteCustomer(ctx context.Context, customerID int64) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM customers
		WHERE id = $1 AND NOT EXISTS (
			SELECT 1 FROM tickets WHERE customer_id = $1
		)
	`, customerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	row := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1)`, customerID)
	if err := row.Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return store.ErrCustomerNotFound
	}
	return store.ErrCustomerInUse
}

func (s *Store) CreateCounter(ctx context.Context, counterID int64, serviceIDs []int64) (models.Counter, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Counter{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = ensureServicesExist(ctx, tx, serviceIDs); err != nil {
		return models.Counter{}, err
	}

	var inserted int64
	row := tx.QueryRow(ctx, `
		INSERT INTO counters (id)
		VALUES ($1)
		ON CONFLICT (id) DO NOTHING
		RETURNING id
	`, counterID)
	if err = row.Scan(&inserted); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrDuplicateCounter
		}
		return models.Counter{}, err
	}

	if err = replaceCounterServices(ctx, tx, counterID, serviceIDs); err != nil {
		return models.Counter{}, err
	}

	counter, err := counterWithServices(ctx, tx, counterID)
	if err != nil {
		return models.Counter{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Counter{}, err
	}
	return counter, nil
}

func (s *Store) UpdateCounterServices(ctx context.Context, counterID int64, serviceIDs []int64) (models.Counter, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Counter{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var exists bool
	row := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM counters WHERE id = $1)`, counterID)
	if err = row.Scan(&exists); err != nil {
		return models.Counter{}, err
	}
	if !exists {
		err = store.ErrCounterNotFound
		return models.Counter{}, err
	}

	if err = ensureServicesExist(ctx, tx, serviceIDs); err != nil {
		return models.Counter{}, err
	}

	if err = replaceCounterServices(ctx, tx, counterID, serviceIDs); err != nil {
		return models.Counter{}, err
	}

	counter, err := counterWithServices(ctx, tx, counterID)
	if err != nil {
		return models.Counter{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Counter{}, err
	}
	return counter, nil
}

func (s *Store) GetCounter(ctx context.Context, counterID int64) (models.Counter, error) {
	var exists bool
	row := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM counters WHERE id = $1)`, counterID)
	if err := row.Scan(&exists); err != nil {
		return models.Counter{}, err
	}
	if !exists {
		return models.Counter{}, store.ErrCounterNotFound
	}

	services, err := s.ServicesForCounter(ctx, counterID)
	if err != nil {
		return models.Counter{}, err
	}
	return models.Counter{ID: counterID, Services: services}, nil
}

func (s *Store) ListCounters(ctx context.Context) ([]models.Counter, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM counters ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var counters []models.Counter
	for _, id := range ids {
		services, err := s.ServicesForCounter(ctx, id)
		if err != nil {
			return nil, err
		}
		counters = append(counters, models.Counter{ID: id, Services: services})
	}
	return counters, nil
}

func (s *Store) ServicesForCounter(ctx context.Context, counterID int64) ([]models.Service, error) {
	var exists bool
	row := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM counters WHERE id = $1)`, counterID)
	if err := row.Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, store.ErrCounterNotFound
	}

	rows, err := s.pool.Query(ctx, `
		SELECT s.id, s.name, COALESCE(s.description, ''), s.avg_service_time
		FROM counter_services cs
		JOIN services s ON s.id = cs.service_id
		WHERE cs.counter_id = $1
		ORDER BY s.id ASC
	`, counterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var services []models.Service
	for rows.Next() {
		var svc models.Service
		if err := rows.Scan(&svc.ID, &svc.Name, &svc.Description, &svc.AverageServiceTime); err != nil {
			return nil, err
		}
		services = append(services, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return services, nil
}

func (s *Store) CreateTicket(ctx context.Context, input store.CreateTicketInput) (models.Ticket, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Ticket{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var ticket models.Ticket
	row := tx.QueryRow(ctx, `
		SELECT id, first_name, last_name, COALESCE(phone, '')
		FROM customers
		WHERE id = $1
	`, input.CustomerID)
	if err = row.Scan(&ticket.Customer.ID, &ticket.Customer.FirstName, &ticket.Customer.LastName, &ticket.Customer.PhoneNumber); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrCustomerNotFound
		}
		return models.Ticket{}, err
	}

	row = tx.QueryRow(ctx, `
		SELECT id, name, COALESCE(description, ''), avg_service_time
		FROM services
		WHERE id = $1
	`, input.ServiceID)
	if err = row.Scan(&ticket.Service.ID, &ticket.Service.Name, &ticket.Service.Description, &ticket.Service.AverageServiceTime); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrServiceNotFound
		}
		return models.Ticket{}, err
	}

	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	row = tx.QueryRow(ctx, `
		INSERT INTO tickets (customer_id, service_id)
		VALUES ($1, $2)
		RETURNING ticket_code
	`, input.CustomerID, input.ServiceID)
	if err = row.Scan(&ticket.TicketCode); err != nil {
		return models.Ticket{}, err
	}

	// The waiting queue entry is born with the ticket; one entry per ticket.
	_, err = tx.Exec(ctx, `
		INSERT INTO queue_entries (ticket_code, created_at, served)
		VALUES ($1, $2, FALSE)
	`, ticket.TicketCode, createdAt)
	if err != nil {
		return models.Ticket{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Ticket{}, err
	}
	return ticket, nil
}

func (s *Store) GetTicket(ctx context.Context, ticketCode int64) (models.Ticket, error) {
	row := s.pool.QueryRow(ctx, ticketSelect+` WHERE t.ticket_code = $1`, ticketCode)
	ticket, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Ticket{}, store.ErrTicketNotFound
		}
		return models.Ticket{}, err
	}
	return ticket, nil
}

func (s *Store) ListTickets(ctx context.Context) ([]models.Ticket, error) {
	rows, err := s.pool.Query(ctx, ticketSelect+` ORDER BY t.ticket_code ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []models.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (s *Store) WaitingCounts(ctx context.Context, serviceIDs []int64, from, to time.Time) (map[int64]int, error) {
	counts := make(map[int64]int, len(serviceIDs))
	for _, id := range serviceIDs {
		counts[id] = 0
	}
	if len(serviceIDs) == 0 {
		return counts, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT t.service_id, COUNT(*)
		FROM queue_entries q
		JOIN tickets t ON t.ticket_code = q.ticket_code
		WHERE NOT q.served
			AND q.created_at >= $1 AND q.created_at < $2
			AND t.service_id = ANY($3)
		GROUP BY t.service_id
	`, from, to, serviceIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var serviceID int64
		var count int
		if err := rows.Scan(&serviceID, &count); err != nil {
			return nil, err
		}
		counts[serviceID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}

func (s *Store) WaitingEntries(ctx context.Context, serviceID int64, from, to time.Time) ([]models.QueueEntry, error) {
	if _, err := s.GetService(ctx, serviceID); err != nil {
		return nil, err
	}
	return s.queryEntries(ctx, entrySelect+`
		WHERE NOT q.served
			AND t.service_id = $1
			AND q.created_at >= $2 AND q.created_at < $3
		ORDER BY q.created_at ASC, q.id ASC
	`, serviceID, from, to)
}

func (s *Store) AllWaitingEntries(ctx context.Context, from, to time.Time) ([]models.QueueEntry, error) {
	return s.queryEntries(ctx, entrySelect+`
		WHERE NOT q.served
			AND q.created_at >= $1 AND q.created_at < $2
		ORDER BY q.created_at ASC, q.id ASC
	`, from, to)
}

// ClaimOldestWaiting is the serve transition. Selection and update are one
// statement: the head entry is locked with SKIP LOCKED so concurrent claims
// on the same service take successive heads instead of colliding, and the
// update re-checks served=FALSE so an entry can never be served twice.
func (s *Store) ClaimOldestWaiting(ctx context.Context, input store.ClaimInput) (models.Ticket, models.QueueEntry, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Ticket{}, models.QueueEntry{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var entry models.QueueEntry
	var servedAtNull sql.NullTime
	var counterIDNull sql.NullInt64
	var closedAtNull sql.NullTime
	row := tx.QueryRow(ctx, `
		WITH head AS (
			SELECT q.id
			FROM queue_entries q
			JOIN tickets t ON t.ticket_code = q.ticket_code
			WHERE NOT q.served
				AND t.service_id = $1
				AND q.created_at >= $2 AND q.created_at < $3
			ORDER BY q.created_at ASC, q.id ASC
			FOR UPDATE OF q SKIP LOCKED
			LIMIT 1
		)
		UPDATE queue_entries
		SET served = TRUE,
			served_at = $4,
			counter_id = $5
		FROM head
		WHERE queue_entries.id = head.id AND NOT queue_entries.served
		RETURNING queue_entries.id, queue_entries.ticket_code, queue_entries.created_at,
			queue_entries.served, queue_entries.served_at, queue_entries.counter_id, queue_entries.closed_at
	`, input.ServiceID, input.From, input.To, input.CalledAt, input.CounterID)
	if err = row.Scan(&entry.ID, &entry.TicketCode, &entry.CreatedAt, &entry.Served, &servedAtNull, &counterIDNull, &closedAtNull); err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			err = store.ErrNoTicket
		case isUniqueViolation(err, activeCounterIdx):
			err = store.ErrCounterBusy
		}
		return models.Ticket{}, models.QueueEntry{}, err
	}
	entry.ServedAt = nullTimePtr(servedAtNull)
	entry.CounterID = nullInt64Ptr(counterIDNull)
	entry.ClosedAt = nullTimePtr(closedAtNull)

	row = tx.QueryRow(ctx, ticketSelect+` WHERE t.ticket_code = $1`, entry.TicketCode)
	ticket, err := scanTicket(row)
	if err != nil {
		return models.Ticket{}, models.QueueEntry{}, err
	}
	entry.ServiceID = ticket.Service.ID
	entry.ServiceName = ticket.Service.Name

	if err = tx.Commit(ctx); err != nil {
		if isUniqueViolation(err, activeCounterIdx) {
			err = store.ErrCounterBusy
		}
		return models.Ticket{}, models.QueueEntry{}, err
	}
	return ticket, entry, nil
}

func (s *Store) ActiveEntryForCounter(ctx context.Context, counterID int64) (models.QueueEntry, bool, error) {
	row := s.pool.QueryRow(ctx, entrySelect+`
		WHERE q.counter_id = $1 AND q.served AND q.closed_at IS NULL
		LIMIT 1
	`, counterID)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.QueueEntry{}, false, nil
		}
		return models.QueueEntry{}, false, err
	}
	return entry, true, nil
}

func (s *Store) CloseEntry(ctx context.Context, ticketCode int64, closedAt time.Time) (models.QueueEntry, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE queue_entries q
		SET closed_at = $2
		FROM tickets t
		JOIN services sv ON sv.id = t.service_id
		WHERE q.ticket_code = $1 AND t.ticket_code = q.ticket_code
			AND q.served AND q.closed_at IS NULL
		RETURNING q.id, q.ticket_code, t.service_id, sv.name, q.created_at, q.served, q.served_at, q.counter_id, q.closed_at
	`, ticketCode, closedAt)
	entry, err := scanEntry(row)
	if err == nil {
		return entry, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return models.QueueEntry{}, err
	}

	// Zero rows: either the ticket is unknown, never served, or already
	// closed. The transition table decides which conflict to report.
	existing, err := s.entryByTicket(ctx, ticketCode)
	if err != nil {
		return models.QueueEntry{}, err
	}
	if store.ValidTransition("close", existing.State()) {
		// Claimed between our update and this read; the retried close wins.
		return models.QueueEntry{}, store.ErrConflict
	}
	if existing.State() == models.StateClosed {
		return models.QueueEntry{}, store.ErrAlreadyClosed
	}
	return models.QueueEntry{}, store.ErrTicketNotFound
}

func (s *Store) ServedByCounter(ctx context.Context, counterID int64, from, to time.Time) ([]models.QueueEntry, error) {
	return s.queryEntries(ctx, entrySelect+`
		WHERE q.counter_id = $1 AND q.served
			AND q.served_at >= $2 AND q.served_at < $3
		ORDER BY q.served_at DESC, q.id DESC
	`, counterID, from, to)
}

func (s *Store) RecentCalls(ctx context.Context, limit int) ([]models.BoardCall, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx, `
		SELECT q.ticket_code, q.counter_id, sv.name, q.served_at
		FROM queue_entries q
		JOIN tickets t ON t.ticket_code = q.ticket_code
		JOIN services sv ON sv.id = t.service_id
		WHERE q.served AND q.counter_id IS NOT NULL
		ORDER BY q.served_at DESC, q.id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var calls []models.BoardCall
	for rows.Next() {
		var call models.BoardCall
		if err := rows.Scan(&call.Ticket, &call.Counter, &call.Service, &call.At); err != nil {
			return nil, err
		}
		calls = append(calls, call)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return calls, nil
}

func (s *Store) QueueLengths(ctx context.Context, from, to time.Time) ([]models.QueueLength, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT sv.id, sv.name, COUNT(q.id)
		FROM services sv
		LEFT JOIN tickets t ON t.service_id = sv.id
		LEFT JOIN queue_entries q ON q.ticket_code = t.ticket_code
			AND NOT q.served
			AND q.created_at >= $1 AND q.created_at < $2
		GROUP BY sv.id, sv.name
		ORDER BY sv.id ASC
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lengths []models.QueueLength
	for rows.Next() {
		var length models.QueueLength
		if err := rows.Scan(&length.ServiceID, &length.ServiceName, &length.Queue); err != nil {
			return nil, err
		}
		lengths = append(lengths, length)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lengths, nil
}

const ticketSelect = `
	SELECT t.ticket_code,
		c.id, c.first_name, c.last_name, COALESCE(c.phone, ''),
		sv.id, sv.name, COALESCE(sv.description, ''), sv.avg_service_time
	FROM tickets t
	JOIN customers c ON c.id = t.customer_id
	JOIN services sv ON sv.id = t.service_id
`

const entrySelect = `
	SELECT q.id, q.ticket_code, t.service_id, sv.name, q.created_at, q.served, q.served_at, q.counter_id, q.closed_at
	FROM queue_entries q
	JOIN tickets t ON t.ticket_code = q.ticket_code
	JOIN services sv ON sv.id = t.service_id
`

func scanTicket(row pgx.Row) (models.Ticket, error) {
	var ticket models.Ticket
	err := row.Scan(&ticket.TicketCode,
		&ticket.Customer.ID, &ticket.Customer.FirstName, &ticket.Customer.LastName, &ticket.Customer.PhoneNumber,
		&ticket.Service.ID, &ticket.Service.Name, &ticket.Service.Description, &ticket.Service.AverageServiceTime)
	return ticket, err
}

func scanEntry(row pgx.Row) (models.QueueEntry, error) {
	var entry models.QueueEntry
	var servedAtNull sql.NullTime
	var counterIDNull sql.NullInt64
	var closedAtNull sql.NullTime
	err := row.Scan(&entry.ID, &entry.TicketCode, &entry.ServiceID, &entry.ServiceName,
		&entry.CreatedAt, &entry.Served, &servedAtNull, &counterIDNull, &closedAtNull)
	if err != nil {
		return models.QueueEntry{}, err
	}
	entry.ServedAt = nullTimePtr(servedAtNull)
	entry.CounterID = nullInt64Ptr(counterIDNull)
	entry.ClosedAt = nullTimePtr(closedAtNull)
	return entry, nil
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...interface{}) ([]models.QueueEntry, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.QueueEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) entryByTicket(ctx context.Context, ticketCode int64) (models.QueueEntry, error) {
	row := s.pool.QueryRow(ctx, entrySelect+` WHERE q.ticket_code = $1`, ticketCode)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.QueueEntry{}, store.ErrTicketNotFound
		}
		return models.QueueEntry{}, err
	}
	return entry, nil
}

func ensureServicesExist(ctx context.Context, tx pgx.Tx, serviceIDs []int64) error {
	if len(serviceIDs) == 0 {
		return nil
	}
	var count int
	row := tx.QueryRow(ctx, `SELECT COUNT(DISTINCT id) FROM services WHERE id = ANY($1)`, serviceIDs)
	if err := row.Scan(&count); err != nil {
		return err
	}
	if count != len(uniqueIDs(serviceIDs)) {
		return store.ErrServiceNotFound
	}
	return nil
}

func replaceCounterServices(ctx context.Context, tx pgx.Tx, counterID int64, serviceIDs []int64) error {
	if _, err := tx.Exec(ctx, `DELETE FROM counter_services WHERE counter_id = $1`, counterID); err != nil {
		return err
	}
	for _, serviceID := range uniqueIDs(serviceIDs) {
		if _, err := tx.Exec(ctx, `
			INSERT INTO counter_services (counter_id, service_id)
			VALUES ($1, $2)
		`, counterID, serviceID); err != nil {
			return err
		}
	}
	return nil
}

func counterWithServices(ctx context.Context, tx pgx.Tx, counterID int64) (models.Counter, error) {
	rows, err := tx.Query(ctx, `
		SELECT s.id, s.name, COALESCE(s.description, ''), s.avg_service_time
		FROM counter_services cs
		JOIN services s ON s.id = cs.service_id
		WHERE cs.counter_id = $1
		ORDER BY s.id ASC
	`, counterID)
	if err != nil {
		return models.Counter{}, err
	}
	defer rows.Close()

	counter := models.Counter{ID: counterID}
	for rows.Next() {
		var svc models.Service
		if err := rows.Scan(&svc.ID, &svc.Name, &svc.Description, &svc.AverageServiceTime); err != nil {
			return models.Counter{}, err
		}
		counter.Services = append(counter.Services, svc)
	}
	if err := rows.Err(); err != nil {
		return models.Counter{}, err
	}
	return counter, nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}

func nullTimePtr(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	t := value.Time
	return &t
}

func nullInt64Ptr(value sql.NullInt64) *int64 {
	if !value.Valid {
		return nil
	}
	v := value.Int64
	return &v
}
