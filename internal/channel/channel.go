// Package channel holds the delivery capabilities: templated email and
// browser push. Both senders are safe for concurrent use across disjoint
// recipients and report failures per recipient.
package channel

import (
	"context"
	"errors"

	"github.com/rosenban/rosenban/internal/model"
)

// ErrEndpointGone marks a permanent push transport failure: the endpoint no
// longer exists and should be deactivated by the caller.
var ErrEndpointGone = errors.New("push endpoint gone")

// EmailMessage is a rendered email notification for one recipient.
type EmailMessage struct {
	To       string
	Subject  string
	HTML     string
	LineID   string
	Category model.Category
}

// PushMessage is the payload transmitted to a push endpoint.
type PushMessage struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Tag   string            `json:"tag"`
	Data  map[string]string `json:"data,omitempty"`
}

// EmailSender transmits rendered HTML email.
type EmailSender interface {
	// Enabled reports whether the transport is configured; dispatch skips
	// the channel entirely when it is not.
	Enabled() bool
	Send(ctx context.Context, msg EmailMessage) error
}

// PushSender transmits a small JSON payload to a browser push endpoint.
// A wrapped ErrEndpointGone means the endpoint should be deactivated.
type PushSender interface {
	Enabled() bool
	Send(ctx context.Context, ep model.PushEndpoint, msg PushMessage) error
}
