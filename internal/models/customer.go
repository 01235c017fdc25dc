package models

// Customer is identified by the (first name, last name) pair; two customers
// may not share both.
type Customer struct {
	ID          int64  `json:"customer_id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number,omitempty"`
}
