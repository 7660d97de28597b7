package domain

import "time"

type CheckIn struct {
	ID            uint      `json:"id"`
	UserID        uint      `json:"user_id"`
	ActivationID  uint      `json:"activation_id"`
	PointsGranted int       `json:"points_granted"`
	Location      string    `json:"location"`
	CreatedAt     time.Time `json:"created_at"`
}

type CheckinResult struct {
	Success     bool              `json:"success"`
	Message     string            `json:"message"`
	CheckIn     CheckIn           `json:"checkin"`
	TotalPoints int               `json:"total_points"`
	Activation  ActivationSummary `json:"activation"`
}

type ActivationPreview struct {
	Activation       ActivationSummary `json:"activation"`
	AlreadyCheckedIn bool              `json:"already_checked_in"`
}

// CheckinEvent is what the live feed broadcasts after each committed check-in.
type CheckinEvent struct {
	Type         string    `json:"type"`
	EventID      uint      `json:"event_id"`
	ActivationID uint      `json:"activation_id"`
	Activation   string    `json:"activation"`
	UserID       uint      `json:"user_id"`
	Points       int       `json:"points"`
	CreatedAt    time.Time `json:"created_at"`
}

type HistoryEntry struct {
	CheckIn
	Activation ActivationSummary `json:"activation"`
}
