package models

// Ticket is a customer's request for one service. It is created once and
// never updated; all queue state lives on the ticket's QueueEntry.
type Ticket struct {
	TicketCode int64    `json:"ticket_code"`
	Customer   Customer `json:"customer"`
	Service    Service  `json:"service"`
}
