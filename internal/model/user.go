package model

import "time"

// User represents an account whose portfolio performance is tracked.
// Authentication and profile management live outside this service.
type User struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
}
