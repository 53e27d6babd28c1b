package adapter

import "context"

// Notification is a member-facing message staged for delivery.
type Notification struct {
	UserID  string
	Email   string
	Subject string
	Body    string
}

// Notifier is the fire-and-forget notification port. Implementations must
// never be awaited for correctness: a delivery failure is logged and
// dropped, it never rolls back a financial state change.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}
