package ports

import "context"

// Mailer delivers account emails. Code emails are sent synchronously and a
// delivery error fails the calling operation.
type Mailer interface {
	SendVerificationCode(ctx context.Context, to, name, code string) error
	SendPasswordResetCode(ctx context.Context, to, code string) error
	SendWelcome(ctx context.Context, to, name string) error
	SendPasswordChanged(ctx context.Context, to, name string) error
}

// NotificationKind selects the template of an asynchronous notice.
type NotificationKind string

const (
	NotifyWelcome         NotificationKind = "welcome"
	NotifyPasswordChanged NotificationKind = "password_changed"
)

// Notification is a non-critical email handed to the background dispatcher.
type Notification struct {
	Kind  NotificationKind
	Email string
	Name  string
}

// NotificationQueue accepts notices for background delivery.
type NotificationQueue interface {
	Enqueue(n Notification)
}
