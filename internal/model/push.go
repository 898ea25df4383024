package model

import "time"

// PushEndpoint is a browser push registration. The endpoint URL is the
// natural key: re-registering the same endpoint updates the row in place.
// Endpoints are deactivated, never deleted, when the transport reports them
// gone.
type PushEndpoint struct {
	ID            string    `json:"id"`
	SubscriberKey string    `json:"subscriber_key"`
	Endpoint      string    `json:"endpoint"`
	P256dh        string    `json:"p256dh"`
	Auth          string    `json:"auth"`
	IsActive      bool      `json:"is_active"`
	DeviceType    string    `json:"device_type,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
