package models

// Counter is a service point staffed by one officer, authorized for a subset
// of services. The service set is replaced wholesale by admin updates and
// does not change during a serving session.
type Counter struct {
	ID       int64     `json:"counter_id"`
	Services []Service `json:"services"`
}
