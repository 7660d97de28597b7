package domain

import "time"

const (
	ActivationStatusActive   = "active"
	ActivationStatusInactive = "inactive"

	DefaultActivationPoints = 10
)

// Activation is a point-granting check-in target of an event.
type Activation struct {
	ID      uint   `json:"id"`
	EventID uint   `json:"event_id"`
	Name    string `json:"name"`
	Points  int    `json:"points"`
	Status  string `json:"status"`
	// Token is the long-lived identifier printed in legacy QR codes.
	Token     string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a Activation) IsActive() bool {
	return a.Status == ActivationStatusActive
}

// ActivationSummary is the slice of an activation echoed back to scanners.
type ActivationSummary struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	Points  int    `json:"points"`
	EventID uint   `json:"event_id"`
}

func (a Activation) Summary() ActivationSummary {
	return ActivationSummary{
		ID:      a.ID,
		Name:    a.Name,
		Points:  a.Points,
		EventID: a.EventID,
	}
}
