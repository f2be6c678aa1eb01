package notify

import (
	"context"
	"time"
)

// Logger defines the logging interface used by the dispatcher.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Contact is the reachable-address snapshot for one user.
type Contact struct {
	Email string
	Phone string
}

// ContactSource provides the current userID-to-contact snapshot.
// The session cache implements this.
type ContactSource interface {
	Contacts() map[int64]Contact
}

// EmailSender delivers a plain-text message to an email address.
// Fire-and-forget; no delivery confirmation is expected.
type EmailSender interface {
	Send(to, text string) error
}

// PhoneMessenger delivers a plain-text message to a phone number.
type PhoneMessenger interface {
	Send(phone, text string) error
}

// defaultDrainInterval is how often the queue is drained.
const defaultDrainInterval = 5 * time.Second

// Dispatcher periodically drains the queue and delivers each message to the
// owning user over every contact channel on record.
type Dispatcher struct {
	queue    *Queue
	source   ContactSource
	email    EmailSender
	phone    PhoneMessenger
	interval time.Duration
	logger   Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewDispatcher creates a dispatcher. Either sender may be nil, in which case
// that channel is skipped.
func NewDispatcher(queue *Queue, source ContactSource, email EmailSender, phone PhoneMessenger, interval time.Duration) *Dispatcher {
	if interval <= 0 {
		interval = defaultDrainInterval
	}
	return &Dispatcher{
		queue:    queue,
		source:   source,
		email:    email,
		phone:    phone,
		interval: interval,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the dispatcher.
func (d *Dispatcher) SetLogger(logger Logger) {
	d.logger = logger
}

// Start launches the drain loop in a background goroutine.
func (d *Dispatcher) Start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)
	d.done = make(chan struct{})

	go d.run(ctx)
	d.logger.Info("notification dispatcher started", "interval", d.interval)
}

func (d *Dispatcher) run(ctx context.Context) {
	defer close(d.done)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Drain()
		}
	}
}

// Close stops the drain loop and waits for the current drain to finish.
func (d *Dispatcher) Close() {
	if d.cancel == nil {
		return
	}
	d.cancel()
	<-d.done
	d.logger.Info("notification dispatcher stopped")
}

// Drain processes every currently-queued notification exactly once in
// arrival order. Messages whose user is unknown, or who has neither an email
// nor a phone on record, are logged and dropped. Delivery failures on one
// channel do not block the other channel or later queue items.
func (d *Dispatcher) Drain() {
	pending := d.queue.TakeAll()
	if len(pending) == 0 {
		return
	}

	contacts := d.source.Contacts()

	for _, msg := range pending {
		contact, ok := contacts[msg.UserID]
		if !ok {
			d.logger.Warn("dropping notification for unknown user",
				"user_id", msg.UserID,
				"device_id", msg.DeviceID,
			)
			continue
		}

		if contact.Email == "" && contact.Phone == "" {
			d.logger.Warn("dropping notification, user has no email or phone",
				"user_id", msg.UserID,
				"device_id", msg.DeviceID,
			)
			continue
		}

		if contact.Email != "" && d.email != nil {
			if err := d.email.Send(contact.Email, msg.Message); err != nil {
				d.logger.Error("email delivery failed",
					"user_id", msg.UserID,
					"device_id", msg.DeviceID,
					"error", err,
				)
			}
		}

		if contact.Phone != "" && d.phone != nil {
			if err := d.phone.Send(contact.Phone, msg.Message); err != nil {
				d.logger.Error("whatsapp delivery failed",
					"user_id", msg.UserID,
					"device_id", msg.DeviceID,
					"error", err,
				)
			}
		}
	}
}
