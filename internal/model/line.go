package model

import "time"

// LineStatus is the latest known operational status of a single transit line.
// One row per line; the status batch entry point is the only writer.
type LineStatus struct {
	LineID    string    `json:"line_id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Section   string    `json:"section,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Color     string    `json:"color,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatusChange is a detected difference between a line's stored status and a
// newly submitted one. It is derived per batch and never persisted.
type StatusChange struct {
	LineID     string   `json:"line_id"`
	Name       string   `json:"name"`
	NewStatus  string   `json:"new_status"`
	NewDetail  string   `json:"new_detail,omitempty"`
	PrevStatus string   `json:"prev_status"`
	PrevDetail string   `json:"prev_detail,omitempty"`
	Category   Category `json:"category"`
}
