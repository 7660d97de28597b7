package domain

import "time"

const (
	EventStatusScheduled  = "scheduled"
	EventStatusInProgress = "in_progress"
	EventStatusCompleted  = "completed"
	EventStatusCancelled  = "cancelled"
)

var EventStatuses = []string{EventStatusScheduled, EventStatusInProgress, EventStatusCompleted, EventStatusCancelled}

type Event struct {
	ID            uint      `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Hours         string    `json:"hours"`
	Date          time.Time `json:"date"`
	Location      string    `json:"location"`
	Status        string    `json:"status"`
	ResponsibleID *uint     `json:"responsible_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IsResponsible reports whether userID is the staff member in charge of the event.
func (e Event) IsResponsible(userID uint) bool {
	return e.ResponsibleID != nil && *e.ResponsibleID == userID
}
