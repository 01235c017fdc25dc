package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"net/http"
	"strconv"
	"strings"
	"time"

	"office-queue/internal/models"
	"office-queue/internal/store"

	"github.com/gorilla/mux"
)

// Dispatcher is the dispatch engine as seen by the HTTP layer.
type Dispatcher interface {
	CallNext(ctx context.Context, counterID int64) (models.Ticket, error)
	CloseTicket(ctx context.Context, ticketCode int64) (models.QueueEntry, error)
}

// Board is the read-only public display projection.
type Board interface {
	Recent(ctx context.Context) ([]models.BoardCall, error)
	Queues(ctx context.Context) ([]models.QueueLength, error)
}

type Handler struct {
	store    store.Store
	dispatch Dispatcher
	board    Board
	stream   http.Handler
	now      func() time.Time
}

func NewHandler(st store.Store, dispatcher Dispatcher, board Board, stream http.Handler) *Handler {
	return &Handler{
		store:    st,
		dispatch: dispatcher,
		board:    board,
		stream:   stream,
		now:      time.Now,
	}
}

func (h *Handler) Routes() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", h.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", expvar.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/tickets", h.handleCreateTicket).Methods(http.MethodPost)
	r.HandleFunc("/tickets", h.handleListTickets).Methods(http.MethodGet)
	r.HandleFunc("/tickets/{ticketCode:[0-9]+}", h.handleGetTicket).Methods(http.MethodGet)

	r.HandleFunc("/queues", h.handleWaitingQueues).Methods(http.MethodGet)
	r.HandleFunc("/queues/next/{counterId:[0-9]+}", h.handleCallNext).Methods(http.MethodPost)
	r.HandleFunc("/queues/served/{counterId:[0-9]+}", h.handleServedByCounter).Methods(http.MethodGet)
	r.HandleFunc("/queues/{ticketId:[0-9]+}/close", h.handleCloseTicket).Methods(http.MethodPost)
	r.HandleFunc("/queues/{serviceId:[0-9]+}", h.handleQueueByService).Methods(http.MethodGet)

	r.HandleFunc("/board/current", h.handleBoardCurrent).Methods(http.MethodGet)
	r.HandleFunc("/board/queues", h.handleBoardQueues).Methods(http.MethodGet)
	if h.stream != nil {
		r.PathPrefix("/board/stream").Handler(h.stream)
	}

	r.HandleFunc("/services", h.handleCreateService).Methods(http.MethodPost)
	r.HandleFunc("/services", h.handleListServices).Methods(http.MethodGet)
	r.HandleFunc("/services/{serviceId:[0-9]+}", h.handleGetService).Methods(http.MethodGet)
	r.HandleFunc("/services/{serviceId:[0-9]+}", h.handleDeleteService).Methods(http.MethodDelete)

	r.HandleFunc("/counters", h.handleCreateCounter).Methods(http.MethodPost)
	r.HandleFunc("/counters", h.handleListCounters).Methods(http.MethodGet)
	r.HandleFunc("/counters/{counterId:[0-9]+}", h.handleGetCounter).Methods(http.MethodGet)
	r.HandleFunc("/counters/{counterId:[0-9]+}", h.handleUpdateCounter).Methods(http.MethodPut)

	r.HandleFunc("/customers", h.handleCreateCustomer).Methods(http.MethodPost)
	r.HandleFunc("/customers", h.handleListCustomers).Methods(http.MethodGet)
	r.HandleFunc("/customers/{customerId:[0-9]+}", h.handleGetCustomer).Methods(http.MethodGet)
	r.HandleFunc("/customers/{customerId:[0-9]+}", h.handleDeleteCustomer).Methods(http.MethodDelete)

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleCallNext(w http.ResponseWriter, r *http.Request) {
	counterID, ok := pathID(w, r, "counterId")
	if !ok {
		return
	}

	ticket, err := h.dispatch.CallNext(r.Context(), counterID)
	if err != nil {
		if errors.Is(err, store.ErrNoTicket) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		status, code, msg := mapError(err)
		writeError(w, requestID(r), status, code, msg)
		return
	}

	writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) handleCloseTicket(w http.ResponseWriter, r *http.Request) {
	ticketCode, ok := pathID(w, r, "ticketId")
	if !ok {
		return
	}

	entry, err := h.dispatch.CloseTicket(r.Context(), ticketCode)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, requestID(r), status, code, msg)
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) handleServedByCounter(w http.ResponseWriter, r *http.Request) {
	counterID, ok := pathID(w, r, "counterId")
	if !ok {
		return
	}

	from, to := models.DayBounds(h.now())
	entries, err := h.store.ServedByCounter(r.Context(), counterID, from, to)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, requestID(r), status, code, msg)
		return
	}

	writeJSON(w, http.StatusOK, emptyIfNilEntries(entries))
}

func (h *Handler) handleWaitingQueues(w http.ResponseWriter, r *http.Request) {
	from, to := models.DayBounds(h.now())
	entries, err := h.store.AllWaitingEntries(r.Context(), from, to)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, requestID(r), status, code, msg)
		return
	}

	writeJSON(w, http.StatusOK, emptyIfNilEntries(entries))
}

func (h *Handler) handleQueueByService(w http.ResponseWriter, r *http.Request) {
	serviceID, ok := pathID(w, r, "serviceId")
	if !ok {
		return
	}

	from, to := models.DayBounds(h.now())
	entries, err := h.store.WaitingEntries(r.Context(), serviceID, from, to)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, requestID(r), status, code, msg)
		return
	}

	writeJSON(w, http.StatusOK, emptyIfNilEntries(entries))
}

func (h *Handler) handleBoardCurrent(w http.ResponseWriter, r *http.Request) {
	calls, err := h.board.Recent(r.Context())
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, requestID(r), status, code, msg)
		return
	}
	if calls == nil {
		calls = []models.BoardCall{}
	}
	writeJSON(w, http.StatusOK, calls)
}

func (h *Handler) handleBoardQueues(w http.ResponseWriter, r *http.Request) {
	lengths, err := h.board.Queues(r.Context())
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, requestID(r), status, code, msg)
		return
	}
	if lengths == nil {
		lengths = []models.QueueLength{}
	}
	writeJSON(w, http.StatusOK, lengths)
}

type createTicketRequest struct {
	CustomerID int64 `json:"customer_id"`
	ServiceID  int64 `json:"service_id"`
}

func (h *Handler) handleCreateTicket(w http.ResponseWriter, r *http.Request) {
	var req createTicketRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.CustomerID <= 0 || req.ServiceID <= 0 {
		writeError(w, requestID(r), http.StatusBadRequest, "invalid_request", "customer_id and service_id are required")
		return
	}

	ticket, err := h.store.CreateTicket(r.Context(), store.CreateTicketInput{
		CustomerID: req.CustomerID,
		ServiceID:  req.ServiceID,
		CreatedAt:  h.now(),
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, requestID(r), status, code, msg)
		return
	}

	writeJSON(w, http.StatusCreated, ticket)
}

func (h *Handler) handleListTickets(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.store.ListTickets(r.Context())
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, requestID(r), status, code, msg)
		return
	}
	if tickets == nil {
		tickets = []models.Ticket{}
	}
	writeJSON(w, http.StatusOK, tickets)
}

func (h *Handler) handleGetTicket(w http.ResponseWriter, r *http.Request) {
	ticketCode, ok := pathID(w, r, "ticketCode")
	if !ok {
		return
	}

	ticket, err := h.store.GetTicket(r.Context(), ticketCode)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, requestID(r), status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

type createServiceRequest struct {
	Name               string `json:"name"`
	Description        string `json:"description"`
	AverageServiceTime int    `json:"average_service_time"`
}

func (h *Handler) handleCreateService(w http.ResponseWriter, r *http.Request) {
	var req createServiceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if req.Name == "" {
		writeError(w, requestID(r), http.StatusBadRequest, "invalid_request", "name is required")
		return
	}
	if req.AverageServiceTime <= 0 {
		writeError(w, requestID(r), http.StatusBadRequest, "invalid_request", "average_service_time must be positive")
		return
	}

	svc, err := h.store.CreateService(r.Context(), store.CreateServiceInput{
		Name:               req.Name,
		Description:        req.Description,
		AverageServiceTime: req.AverageServiceTime,
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, requestID(r), status, code, msg)
		return
	}
	writeJSON(w, http.StatusCreated, svc)
}

func (h *Handler) handleListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.store.ListServices(r.Context())
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, requestID(r), status, code, msg)
		return
	}
	if services == nil {
		services = []models.Service{}
	}
	writeJSON(w, http.StatusOK, services)
}

func (h *Handler) handleGetService(w http.ResponseWriter, r *http.Request) {
	serviceID, ok := pathID(w, r, "serviceId")
	if !ok {
		return
	}

	svc, err := h.store.GetService(r.Context(), serviceID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, requestID(r), status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, svc)
}

func (h *Handler) handleDeleteService(w http.ResponseWriter, r *http.Request) {
	serviceID, ok := pathID(w, r, "serviceId")
	if !ok {
		return
	}

	if err := h.store.DeleteService(r.Context(), serviceID); err != nil {
		status, code, msg := mapError(err)
		writeError(w, requestID(r), status, code, msg)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createCounterRequest struct {
	CounterID  int64   `json:"counter_id"`
	ServiceIDs []int64 `json:"service_ids"`
}

type updateCounterRequest struct {
	ServiceIDs []int64 `json:"service_ids"`
}

func (h *Handler) handleCreateCounter(w http.ResponseWriter, r *http.Request) {
	var req createCounterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.CounterID <= 0 {
		writeError(w, requestID(r), http.StatusBadRequest, "invalid_request", "counter_id is required")
		return
	}

	counter, err := h.store.CreateCounter(r.Context(), req.CounterID, req.ServiceIDs)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, requestID(r), status, code, msg)
		return
	}
	writeJSON(w, http.StatusCreated, counter)
}

func (h *Handler) handleListCounters(w http.ResponseWriter, r *http.Request) {
	counters, err := h.store.ListCounters(r.Context())
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, requestID(r), status, code, msg)
		return
	}
	if counters == nil {
		counters = []models.Counter{}
	}
	writeJSON(w, http.StatusOK, counters)
}

func (h *Handler) handleGetCounter(w http.ResponseWriter, r *http.Request) {
	counterID, ok := pathID(w, r, "counterId")
	if !ok {
		return
	}

	counter, err := h.store.GetCounter(r.Context(), counterID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, requestID(r), status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, counter)
}

func (h *Handler) handleUpdateCounter(w http.ResponseWriter, r *http.Request) {
	counterID, ok := pathID(w, r, "counterId")
	if !ok {
		return
	}

	var req updateCounterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	counter, err := h.store.UpdateCounterServices(r.Context(), counterID, req.ServiceIDs)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, requestID(r), status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, counter)
}

type createCustomerRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
}

func (h *Handler) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req createCustomerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	if req.FirstName == "" || req.LastName == "" {
		writeError(w, requestID(r), http.StatusBadRequest, "invalid_request", "first_name and last_name are required")
		return
	}

	customer, err := h.store.CreateCustomer(r.Context(), store.CreateCustomerInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, requestID(r), status, code, msg)
		return
	}
	writeJSON(w, http.StatusCreated, customer)
}

func (h *Handler) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.store.ListCustomers(r.Context())
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, requestID(r), status, code, msg)
		return
	}
	if customers == nil {
		customers = []models.Customer{}
	}
	writeJSON(w, http.StatusOK, customers)
}

func (h *Handler) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	customerID, ok := pathID(w, r, "customerId")
	if !ok {
		return
	}

	customer, err := h.store.GetCustomer(r.Context(), customerID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, requestID(r), status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

func (h *Handler) handleDeleteCustomer(w http.ResponseWriter, r *http.Request) {
	customerID, ok := pathID(w, r, "customerId")
	if !ok {
		return
	}

	if err := h.store.DeleteCustomer(r.Context(), customerID); err != nil {
		status, code, msg := mapError(err)
		writeError(w, requestID(r), status, code, msg)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, requestID(r), http.StatusBadRequest, "invalid_request", name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, target interface{}) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		writeError(w, requestID(r), http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return false
	}
	return true
}

func emptyIfNilEntries(entries []models.QueueEntry) []models.QueueEntry {
	if entries == nil {
		return []models.QueueEntry{}
	}
	return entries
}

func requestID(r *http.Request) string {
	return r.Header.Get("X-Request-ID")
}

func mapError(err error) (int, string, string) {
	switch {
	case errors.Is(err, store.ErrServiceNotFound):
		return http.StatusNotFound, "service_not_found", "service not found"
	case errors.Is(err, store.ErrCustomerNotFound):
		return http.StatusNotFound, "customer_not_found", "customer not found"
	case errors.Is(err, store.ErrCounterNotFound):
		return http.StatusNotFound, "counter_not_found", "counter not found"
	case errors.Is(err, store.ErrTicketNotFound):
		return http.StatusNotFound, "ticket_not_found", "no open served entry for ticket"
	case errors.Is(err, store.ErrAlreadyClosed):
		return http.StatusConflict, "already_closed", "queue entry already closed"
	case errors.Is(err, store.ErrCounterBusy):
		return http.StatusConflict, "counter_busy", "counter already has an open ticket"
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict, "conflict", "lost a concurrent update, retry"
	case errors.Is(err, store.ErrDuplicateService):
		return http.StatusConflict, "duplicate_service", "service name already exists"
	case errors.Is(err, store.ErrDuplicateCustomer):
		return http.StatusConflict, "duplicate_customer", "customer name already exists"
	case errors.Is(err, store.ErrDuplicateCounter):
		return http.StatusConflict, "duplicate_counter", "counter already exists"
	case errors.Is(err, store.ErrServiceInUse):
		return http.StatusConflict, "service_in_use", "service has tickets"
	case errors.Is(err, store.ErrCustomerInUse):
		return http.StatusConflict, "customer_in_use", "customer has tickets"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}

type errorResponse struct {
	RequestID string        `json:"request_id,omitempty"`
	Error     responseError `json:"error"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, requestID string, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		RequestID: requestID,
		Error: responseError{
			Code:    code,
			Message: message,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
