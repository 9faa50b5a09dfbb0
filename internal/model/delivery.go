package model

import "time"

// Outcome names the terminal state of one relay request.
type Outcome string

const (
	OutcomeOK            Outcome = "ok"
	OutcomeNoImage       Outcome = "no_image"
	OutcomeMisconfigured Outcome = "misconfigured"
	OutcomeDelivery      Outcome = "delivery_failed"
	OutcomeServerError   Outcome = "server_error"
)

// Delivery is the metadata of one relay attempt. Frame bytes are never stored.
type Delivery struct {
	ID         int64     `json:"id"`
	Filename   string    `json:"filename"`
	Size       int64     `json:"size"`
	Status     int       `json:"status"`
	Outcome    Outcome   `json:"outcome"`
	SinkError  string    `json:"sinkError,omitempty"`
	DurationMS int64     `json:"durationMs"`
	CreatedAt  time.Time `json:"createdAt"`
}

// RelayEvent is broadcast to live viewers after each relay attempt.
type RelayEvent struct {
	Filename   string    `json:"filename,omitempty"`
	Size       int64     `json:"size"`
	Status     int       `json:"status"`
	Outcome    Outcome   `json:"outcome"`
	DurationMS int64     `json:"durationMs"`
	At         time.Time `json:"at"`
}

// Event returns the viewer event for d.
func (d *Delivery) Event() RelayEvent {
	return RelayEvent{
		Filename:   d.Filename,
		Size:       d.Size,
		Status:     d.Status,
		Outcome:    d.Outcome,
		DurationMS: d.DurationMS,
		At:         d.CreatedAt,
	}
}
