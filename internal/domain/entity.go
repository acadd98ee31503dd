package domain

import "time"

// Entity holds the fields every stored record carries.
// An empty ID means the record has not been persisted yet.
type Entity struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasID reports whether the record carries an identifier.
func (e *Entity) HasID() bool {
	return e.ID != ""
}

// InitTimestamps sets both CreatedAt and UpdatedAt to now.
func (e *Entity) InitTimestamps(now time.Time) {
	e.CreatedAt = now
	e.UpdatedAt = now
}

// Touch updates the UpdatedAt timestamp.
func (e *Entity) Touch(now time.Time) {
	e.UpdatedAt = now
}
