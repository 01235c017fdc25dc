package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"office-queue/internal/models"
	"office-queue/internal/store"
)

type fakeDispatcher struct {
	callNext    func(ctx context.Context, counterID int64) (models.Ticket, error)
	closeTicket func(ctx context.Context, ticketCode int64) (models.QueueEntry, error)
}

func (f *fakeDispatcher) CallNext(ctx context.Context, counterID int64) (models.Ticket, error) {
	return f.callNext(ctx, counterID)
}

func (f *fakeDispatcher) CloseTicket(ctx context.Context, ticketCode int64) (models.QueueEntry, error) {
	return f.closeTicket(ctx, ticketCode)
}

type fakeBoard struct {
	recent func(ctx context.Context) ([]models.BoardCall, error)
	queues func(ctx context.Context) ([]models.QueueLength, error)
}

func (f *fakeBoard) Recent(ctx context.Context) ([]models.BoardCall, error) {
	return f.recent(ctx)
}

func (f *fakeBoard) Queues(ctx context.Context) ([]models.QueueLength, error) {
	return f.queues(ctx)
}

// fakeAPIStore embeds the interface so tests only implement what they touch.
type fakeAPIStore struct {
	store.Store
	createTicket      func(ctx context.Context, input store.CreateTicketInput) (models.Ticket, error)
	getTicket         func(ctx context.Context, ticketCode int64) (models.Ticket, error)
	createService     func(ctx context.Context, input store.CreateServiceInput) (models.Service, error)
	deleteService     func(ctx context.Context, serviceID int64) error
	createCounter     func(ctx context.Context, counterID int64, serviceIDs []int64) (models.Counter, error)
	servedByCounter   func(ctx context.Context, counterID int64, from, to time.Time) ([]models.QueueEntry, error)
	waitingEntries    func(ctx context.Context, serviceID int64, from, to time.Time) ([]models.QueueEntry, error)
	allWaitingEntries func(ctx context.Context, from, to time.Time) ([]models.QueueEntry, error)
}

func (f *fakeAPIStore) CreateTicket(ctx context.Context, input store.CreateTicketInput) (models.Ticket, error) {
	return f.createTicket(ctx, input)
}

func (f *fakeAPIStore) GetTicket(ctx context.Context, ticketCode int64) (models.Ticket, error) {
	return f.getTicket(ctx, ticketCode)
}

func (f *fakeAPIStore) CreateService(ctx context.Context, input store.CreateServiceInput) (models.Service, error) {
	return f.createService(ctx, input)
}

func (f *fakeAPIStore) DeleteService(ctx context.Context, serviceID int64) error {
	return f.deleteService(ctx, serviceID)
}

func (f *fakeAPIStore) CreateCounter(ctx context.Context, counterID int64, serviceIDs []int64) (models.Counter, error) {
	return f.createCounter(ctx, counterID, serviceIDs)
}

func (f *fakeAPIStore) ServedByCounter(ctx context.Context, counterID int64, from, to time.Time) ([]models.QueueEntry, error) {
	return f.servedByCounter(ctx, counterID, from, to)
}

func (f *fakeAPIStore) WaitingEntries(ctx context.Context, serviceID int64, from, to time.Time) ([]models.QueueEntry, error) {
	return f.waitingEntries(ctx, serviceID, from, to)
}

func (f *fakeAPIStore) AllWaitingEntries(ctx context.Context, from, to time.Time) ([]models.QueueEntry, error) {
	return f.allWaitingEntries(ctx, from, to)
}

func newTestHandler(st store.Store, d Dispatcher, b Board) http.Handler {
	return NewHandler(st, d, b, nil).Routes()
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCallNextReturnsTicket(t *testing.T) {
	var gotCounter int64
	d := &fakeDispatcher{
		callNext: func(_ context.Context, counterID int64) (models.Ticket, error) {
			gotCounter = counterID
			return models.Ticket{
				TicketCode: 42,
				Customer:   models.Customer{ID: 5, FirstName: "Ada", LastName: "Lovelace"},
				Service:    models.Service{ID: 2, Name: "accounts", AverageServiceTime: 5},
			}, nil
		},
	}
	h := newTestHandler(nil, d, nil)

	rec := doRequest(t, h, http.MethodPost, "/queues/next/3", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotCounter != 3 {
		t.Fatalf("expected counter 3, got %d", gotCounter)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload["ticket_code"].(float64) != 42 {
		t.Fatalf("unexpected ticket_code: %v", payload["ticket_code"])
	}
	svc := payload["service"].(map[string]interface{})
	if svc["name"] != "accounts" {
		t.Fatalf("unexpected service payload: %v", svc)
	}
}

func TestCallNextEmptyQueues(t *testing.T) {
	d := &fakeDispatcher{
		callNext: func(context.Context, int64) (models.Ticket, error) {
			return models.Ticket{}, store.ErrNoTicket
		},
	}
	h := newTestHandler(nil, d, nil)

	rec := doRequest(t, h, http.MethodPost, "/queues/next/3", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("expected empty body, got %q", rec.Body.String())
	}
}

func TestCallNextErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"unknown counter", store.ErrCounterNotFound, http.StatusNotFound, "counter_not_found"},
		{"busy counter", store.ErrCounterBusy, http.StatusConflict, "counter_busy"},
		{"lost race", store.ErrConflict, http.StatusConflict, "conflict"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := &fakeDispatcher{
				callNext: func(context.Context, int64) (models.Ticket, error) {
					return models.Ticket{}, tc.err
				},
			}
			h := newTestHandler(nil, d, nil)

			rec := doRequest(t, h, http.MethodPost, "/queues/next/3", "")
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
			var payload errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if payload.Error.Code != tc.code {
				t.Fatalf("expected code %q, got %q", tc.code, payload.Error.Code)
			}
		})
	}
}

func TestCallNextRejectsBadCounterID(t *testing.T) {
	h := newTestHandler(nil, &fakeDispatcher{}, nil)

	rec := doRequest(t, h, http.MethodPost, "/queues/next/abc", "")
	if rec.Code != http.StatusNotFound && rec.Code != http.StatusBadRequest {
		t.Fatalf("expected route rejection, got %d", rec.Code)
	}
}

func TestCloseTicket(t *testing.T) {
	now := time.Now()
	d := &fakeDispatcher{
		closeTicket: func(_ context.Context, ticketCode int64) (models.QueueEntry, error) {
			served := now.Add(-time.Minute)
			counter := int64(3)
			return models.QueueEntry{
				ID:          1,
				TicketCode:  ticketCode,
				ServiceName: "accounts",
				Served:      true,
				ServedAt:    &served,
				CounterID:   &counter,
				ClosedAt:    &now,
			}, nil
		},
	}
	h := newTestHandler(nil, d, nil)

	rec := doRequest(t, h, http.MethodPost, "/queues/42/close", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload["number"].(float64) != 42 {
		t.Fatalf("unexpected number: %v", payload["number"])
	}
	if payload["closedAt"] == nil {
		t.Fatalf("expected closedAt in payload")
	}
}

func TestCloseTicketConflicts(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"already closed", store.ErrAlreadyClosed, http.StatusConflict},
		{"never served", store.ErrTicketNotFound, http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := &fakeDispatcher{
				closeTicket: func(context.Context, int64) (models.QueueEntry, error) {
					return models.QueueEntry{}, tc.err
				},
			}
			h := newTestHandler(nil, d, nil)

			rec := doRequest(t, h, http.MethodPost, "/queues/42/close", "")
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
		})
	}
}

func TestCreateTicket(t *testing.T) {
	st := &fakeAPIStore{
		createTicket: func(_ context.Context, input store.CreateTicketInput) (models.Ticket, error) {
			if input.CustomerID != 5 || input.ServiceID != 2 {
				t.Fatalf("unexpected input: %+v", input)
			}
			return models.Ticket{TicketCode: 7}, nil
		},
	}
	h := newTestHandler(st, nil, nil)

	rec := doRequest(t, h, http.MethodPost, "/tickets", `{"customer_id":5,"service_id":2}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateTicketValidation(t *testing.T) {
	h := newTestHandler(&fakeAPIStore{}, nil, nil)

	cases := []struct {
		name string
		body string
	}{
		{"missing customer", `{"service_id":2}`},
		{"missing service", `{"customer_id":5}`},
		{"unknown field", `{"customer_id":5,"service_id":2,"extra":true}`},
		{"garbage", `{`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, h, http.MethodPost, "/tickets", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestCreateTicketUnknownReferences(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{"unknown customer", store.ErrCustomerNotFound},
		{"unknown service", store.ErrServiceNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := &fakeAPIStore{
				createTicket: func(context.Context, store.CreateTicketInput) (models.Ticket, error) {
					return models.Ticket{}, tc.err
				},
			}
			h := newTestHandler(st, nil, nil)

			rec := doRequest(t, h, http.MethodPost, "/tickets", `{"customer_id":5,"service_id":2}`)
			if rec.Code != http.StatusNotFound {
				t.Fatalf("expected 404, got %d", rec.Code)
			}
		})
	}
}

func TestCreateServiceValidation(t *testing.T) {
	h := newTestHandler(&fakeAPIStore{}, nil, nil)

	cases := []struct {
		name string
		body string
	}{
		{"blank name", `{"name":"  ","average_service_time":5}`},
		{"zero time", `{"name":"info","average_service_time":0}`},
		{"negative time", `{"name":"info","average_service_time":-3}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, h, http.MethodPost, "/services", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestCreateServiceDuplicate(t *testing.T) {
	st := &fakeAPIStore{
		createService: func(context.Context, store.CreateServiceInput) (models.Service, error) {
			return models.Service{}, store.ErrDuplicateService
		},
	}
	h := newTestHandler(st, nil, nil)

	rec := doRequest(t, h, http.MethodPost, "/services", `{"name":"info","average_service_time":5}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestDeleteServiceInUse(t *testing.T) {
	st := &fakeAPIStore{
		deleteService: func(context.Context, int64) error {
			return store.ErrServiceInUse
		},
	}
	h := newTestHandler(st, nil, nil)

	rec := doRequest(t, h, http.MethodDelete, "/services/2", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestCreateCounterUnknownService(t *testing.T) {
	st := &fakeAPIStore{
		createCounter: func(context.Context, int64, []int64) (models.Counter, error) {
			return models.Counter{}, store.ErrServiceNotFound
		},
	}
	h := newTestHandler(st, nil, nil)

	rec := doRequest(t, h, http.MethodPost, "/counters", `{"counter_id":1,"service_ids":[99]}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestServedByCounterScopesToToday(t *testing.T) {
	var gotFrom, gotTo time.Time
	st := &fakeAPIStore{
		servedByCounter: func(_ context.Context, counterID int64, from, to time.Time) ([]models.QueueEntry, error) {
			gotFrom, gotTo = from, to
			return nil, nil
		},
	}
	h := newTestHandler(st, nil, nil)

	rec := doRequest(t, h, http.MethodGet, "/queues/served/3", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "[]\n" {
		t.Fatalf("expected empty array, got %q", rec.Body.String())
	}

	wantFrom, wantTo := models.DayBounds(time.Now())
	if !gotFrom.Equal(wantFrom) || !gotTo.Equal(wantTo) {
		t.Fatalf("expected today window [%v, %v), got [%v, %v)", wantFrom, wantTo, gotFrom, gotTo)
	}
}

func TestWaitingQueuesByService(t *testing.T) {
	st := &fakeAPIStore{
		waitingEntries: func(_ context.Context, serviceID int64, _, _ time.Time) ([]models.QueueEntry, error) {
			if serviceID != 2 {
				t.Fatalf("expected service 2, got %d", serviceID)
			}
			return []models.QueueEntry{
				{ID: 1, TicketCode: 10, ServiceName: "accounts", CreatedAt: time.Now()},
			}, nil
		},
	}
	h := newTestHandler(st, nil, nil)

	rec := doRequest(t, h, http.MethodGet, "/queues/2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var entries []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry["number"].(float64) != 10 || entry["service"] != "accounts" || entry["served"] != false {
		t.Fatalf("unexpected entry payload: %v", entry)
	}
}

func TestBoardEndpoints(t *testing.T) {
	now := time.Now()
	b := &fakeBoard{
		recent: func(context.Context) ([]models.BoardCall, error) {
			return []models.BoardCall{{Ticket: 42, Counter: 3, Service: "accounts", At: now}}, nil
		},
		queues: func(context.Context) ([]models.QueueLength, error) {
			return []models.QueueLength{
				{ServiceID: 1, ServiceName: "shipping", Queue: 0},
				{ServiceID: 2, ServiceName: "accounts", Queue: 4},
			}, nil
		},
	}
	h := newTestHandler(nil, nil, b)

	rec := doRequest(t, h, http.MethodGet, "/board/current", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var calls []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &calls); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(calls) != 1 || calls[0]["ticket"].(float64) != 42 || calls[0]["counter"].(float64) != 3 {
		t.Fatalf("unexpected board payload: %v", calls)
	}

	rec = doRequest(t, h, http.MethodGet, "/board/queues", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var lengths []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &lengths); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(lengths) != 2 || lengths[1]["queue"].(float64) != 4 {
		t.Fatalf("unexpected queue lengths: %v", lengths)
	}
}

func TestCreateCustomerDuplicate(t *testing.T) {
	h := newTestHandler(&customerStore{err: store.ErrDuplicateCustomer}, nil, nil)

	rec := doRequest(t, h, http.MethodPost, "/customers", `{"first_name":"Ada","last_name":"Lovelace"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

type customerStore struct {
	store.Store
	err error
}

func (s *customerStore) CreateCustomer(context.Context, store.CreateCustomerInput) (models.Customer, error) {
	return models.Customer{}, s.err
}
