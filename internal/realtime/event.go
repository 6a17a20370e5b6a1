package realtime

import "github.com/mediayaseer-arch/questpark-backend/pkg/enums"

// EventType names the wire events pushed over the dashboard stream.
type EventType string

const (
	// EventReady is sent once when a stream attaches.
	EventReady EventType = "ready"
	// EventCheckoutChanged signals that a submission was created or its
	// payment review status moved.
	EventCheckoutChanged EventType = "checkout_changed"
	// EventPing is the keep-alive heartbeat.
	EventPing EventType = "ping"
)

// Event is one message on the dashboard stream.
type Event struct {
	Type         EventType            `json:"type"`
	SubmissionID string               `json:"submissionId,omitempty"`
	Status       enums.CheckoutStatus `json:"status,omitempty"`
	At           string               `json:"at,omitempty"`
}
