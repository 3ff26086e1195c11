package notify

// Severity levels for notifications.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Notifier delivers operator notifications. Delivery is best-effort: a
// failed notification must never affect a trading decision, so
// implementations log failures instead of returning them.
type Notifier interface {
	Notify(message, severity string)
}

// Noop discards all notifications.
type Noop struct{}

func (Noop) Notify(message, severity string) {}
