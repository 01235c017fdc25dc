package models

import "time"

// BoardCall is one "now serving" announcement for the public board.
type BoardCall struct {
	Ticket  int64     `json:"ticket"`
	Counter int64     `json:"counter"`
	Service string    `json:"service"`
	At      time.Time `json:"at"`
}

// QueueLength is the board's per-service waiting count, zero-filled for
// services with empty queues.
type QueueLength struct {
	ServiceID   int64  `json:"service_id"`
	ServiceName string `json:"service_name"`
	Queue       int    `json:"queue"`
}
