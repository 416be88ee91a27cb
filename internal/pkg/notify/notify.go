package notify

import "context"

// Kind selects the message template the external sender renders. The core
// never formats message bodies; it only supplies structured data.
type Kind string

const (
	KindBooking      Kind = "booking"
	KindSubscription Kind = "subscription"
	KindExpiry       Kind = "expiry"
)

// Notification is one dispatch request for the external sender.
type Notification struct {
	Kind           Kind              `json:"kind"`
	RecipientPhone string            `json:"recipient_phone"`
	Data           map[string]string `json:"data"`
}

// Dispatcher accepts notifications for at-least-once delivery. Dispatch
// failures must never affect payment or account state; callers log and move
// on.
type Dispatcher interface {
	Dispatch(ctx context.Context, n Notification) error
}
