package models

// Service is something an office serves customers for. AverageServiceTime is
// the configured average handling duration in minutes; dispatch uses it to
// break ties between equally long queues.
type Service struct {
	ID                 int64  `json:"service_id"`
	Name               string `json:"name"`
	Description        string `json:"description,omitempty"`
	AverageServiceTime int    `json:"average_service_time"`
}
