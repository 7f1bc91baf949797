package entity

import "time"

// Notification is an in-app message for one user about one request
type Notification struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	RequestID string     `json:"request_id"`
	Kind      string     `json:"kind"`
	Message   string     `json:"message"`
	CreatedAt time.Time  `json:"created_at"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
}
