package device

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/antarticdonkeys/rentstate-hub/internal/result"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
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

// Enqueuer accepts outbound notifications for later dispatch. Enqueue must be
// non-blocking; the notify package's queue satisfies this.
type Enqueuer interface {
	Enqueue(userID int64, deviceID, message string)
}

// TelemetrySink receives non-report device messages and lost-connection
// alerts as time-series points. Optional; a nil sink disables telemetry.
type TelemetrySink interface {
	WriteDeviceMessage(deviceID string, severity string, text string, ts time.Time)
	WriteLivenessAlert(deviceID string, missedWindows int)
}

// defaultLivenessThreshold is the number of consecutive silent monitor
// windows before a device is considered disconnected.
const defaultLivenessThreshold = 3

// Registry owns the in-memory working set of device records and their
// persistence. All mutations happen behind a single mutex and are written
// back to the Store before the operation returns.
type Registry struct {
	store     Store
	queue     Enqueuer
	catalog   *Catalog
	telemetry TelemetrySink
	logger    Logger

	mu      sync.Mutex
	records map[string]*Record

	threshold int
	now       func() time.Time
}

// NewRegistry creates a device registry. Call Load before serving requests.
func NewRegistry(store Store, queue Enqueuer) *Registry {
	return &Registry{
		store:     store,
		queue:     queue,
		catalog:   NewCatalog(nil),
		logger:    noopLogger{},
		records:   make(map[string]*Record),
		threshold: defaultLivenessThreshold,
		now:       time.Now,
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// SetCatalog sets the device-type catalog used by FullView.
func (r *Registry) SetCatalog(catalog *Catalog) {
	if catalog != nil {
		r.catalog = catalog
	}
}

// SetTelemetry sets the optional telemetry sink for ingested messages.
func (r *Registry) SetTelemetry(sink TelemetrySink) {
	r.telemetry = sink
}

// SetLivenessThreshold overrides the silent-window threshold.
func (r *Registry) SetLivenessThreshold(threshold int) {
	if threshold > 0 {
		r.threshold = threshold
	}
}

// Load reads all device records from the store into memory.
// This must be called once at startup; a load failure is fatal because
// continuing with a torn working set would corrupt the store on write-back.
func (r *Registry) Load(ctx context.Context) error {
	records, err := r.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading device records: %w", err)
	}

	r.mu.Lock()
	r.records = records
	r.mu.Unlock()

	r.logger.Info("device registry loaded", "devices", len(records))
	return nil
}

// Count returns the number of registered devices.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// Register creates the device on first contact and validates its credentials.
// A previously-unseen device ID is persisted immediately with defaults
// (disabled, unlinked) before the credential check runs, so a device that
// mistypes its own password on a later call does not re-create the record.
func (r *Registry) Register(ctx context.Context, deviceID, password string, deviceTypeID int) (View, *result.Error) {
	if deviceID == "" || password == "" {
		return View{}, result.BadRequest("id and password are required")
	}
	if deviceTypeID == 0 {
		deviceTypeID = DefaultDeviceTypeID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[deviceID]
	if !ok {
		rec = &Record{
			DeviceID:        deviceID,
			Password:        password,
			UserID:          NoUserID,
			PropertyID:      NoPropertyID,
			Enabled:         defaultEnabled,
			DeactivationKey: defaultDeactivationKey,
			DeviceTypeID:    deviceTypeID,
			Messages:        []Message{},
		}
		if err := r.store.Save(ctx, rec); err != nil {
			r.logger.Error("persisting new device failed", "device_id", deviceID, "error", err)
			return View{}, result.Internal(result.CodeInternalError, "unable to persist device")
		}
		r.records[deviceID] = rec
		r.logger.Info("device registered", "device_id", deviceID, "device_type_id", deviceTypeID)
	}

	if rec.Password != password {
		return View{}, result.Unauthorized(result.CodeInvalidPassword, "Invalid password")
	}
	return rec.view(), nil
}

// Authenticate validates device credentials without mutating anything.
func (r *Registry) Authenticate(deviceID, password string) *result.Error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.authenticateLocked(deviceID, password)
}

// authenticateLocked is the credential check shared by all operations.
// Caller must hold r.mu.
func (r *Registry) authenticateLocked(deviceID, password string) *result.Error {
	if deviceID == "" || password == "" {
		return result.BadRequest("id and password are required")
	}
	rec, ok := r.records[deviceID]
	if !ok {
		return result.NotFound(result.CodeDeviceNotFound, "Device not found")
	}
	if rec.Password != password {
		return result.Unauthorized(result.CodeInvalidPassword, "Invalid password")
	}
	return nil
}

// IngestMessage handles an inbound device message. Any authenticated message
// is the heartbeat signal: it resets the liveness counter and the alert latch.
// Messages above the report tier are appended to the device log and fan out
// as a notification to the owning user.
func (r *Registry) IngestMessage(ctx context.Context, deviceID, password, text, severity string) *result.Error {
	if deviceID == "" || password == "" || text == "" {
		return result.BadRequest("id, password and message are required")
	}

	sev, ok := ParseSeverity(severity)
	if !ok {
		return result.BadRequestCode(result.CodeInvalidSeverity, "Invalid severity")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if rerr := r.authenticateLocked(deviceID, password); rerr != nil {
		return rerr
	}
	rec := r.records[deviceID]

	rec.TicksWithoutMessages = 0
	rec.NotificationSent = false

	if sev != SeverityReport {
		rec.Messages = append(rec.Messages, Message{
			Severity:  sev,
			Text:      text,
			Timestamp: r.now().UTC(),
		})
		r.queue.Enqueue(rec.UserID, deviceID, text)
		if r.telemetry != nil {
			r.telemetry.WriteDeviceMessage(deviceID, string(sev), text, r.now().UTC())
		}
	}

	if err := r.store.Save(ctx, rec); err != nil {
		r.logger.Error("persisting device message failed", "device_id", deviceID, "error", err)
		return result.Internal(result.CodeInternalError, "unable to persist device")
	}

	r.logger.Debug("device message ingested", "device_id", deviceID, "severity", string(sev))
	return nil
}

// ChangePassword replaces the device's shared secret.
func (r *Registry) ChangePassword(ctx context.Context, deviceID, newPassword string) *result.Error {
	if deviceID == "" || newPassword == "" {
		return result.BadRequest("id and new password are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[deviceID]
	if !ok {
		return result.NotFound(result.CodeDeviceNotFound, "Device not found")
	}
	rec.Password = newPassword
	if err := r.store.Save(ctx, rec); err != nil {
		r.logger.Error("persisting password change failed", "device_id", deviceID, "error", err)
		return result.Internal(result.CodeInternalError, "unable to persist device")
	}
	r.logger.Info("device password updated", "device_id", deviceID)
	return nil
}

// LinkToUser attaches the device to a user and property. It validates device
// credentials only; property ownership is checked by the linking protocol in
// the user package before this is called.
func (r *Registry) LinkToUser(ctx context.Context, deviceID, password string, userID, propertyID int64) (View, *result.Error) {
	if deviceID == "" || password == "" || userID == NoUserID || propertyID == NoPropertyID {
		return View{}, result.BadRequest("deviceId, devicePassword, userId and propertyId are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if rerr := r.authenticateLocked(deviceID, password); rerr != nil {
		return View{}, rerr
	}
	rec := r.records[deviceID]

	rec.UserID = userID
	rec.PropertyID = propertyID
	if err := r.store.Save(ctx, rec); err != nil {
		r.logger.Error("persisting device link failed", "device_id", deviceID, "error", err)
		return View{}, result.Internal(result.CodeInternalError, "unable to persist device")
	}

	r.logger.Info("device linked", "device_id", deviceID, "user_id", userID, "property_id", propertyID)
	return rec.view(), nil
}

// Unlink detaches the device from its user and property.
func (r *Registry) Unlink(ctx context.Context, deviceID, password string) (View, *result.Error) {
	if deviceID == "" || password == "" {
		return View{}, result.BadRequest("deviceId and devicePassword are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if rerr := r.authenticateLocked(deviceID, password); rerr != nil {
		return View{}, rerr
	}
	rec := r.records[deviceID]

	rec.UserID = NoUserID
	rec.PropertyID = NoPropertyID
	if err := r.store.Save(ctx, rec); err != nil {
		r.logger.Error("persisting device unlink failed", "device_id", deviceID, "error", err)
		return View{}, result.Internal(result.CodeInternalError, "unable to persist device")
	}

	r.logger.Info("device unlinked", "device_id", deviceID)
	return rec.view(), nil
}

// DetachAllDevicesOf resets UserID on every device owned by the given user.
// PropertyID is left untouched: the superseded identity's property cache is
// discarded wholesale by the caller, so the dangling reference is corrected
// by the next link/unlink cycle.
func (r *Registry) DetachAllDevicesOf(ctx context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var detached int
	for _, rec := range r.records {
		if rec.UserID != userID {
			continue
		}
		rec.UserID = NoUserID
		if err := r.store.Save(ctx, rec); err != nil {
			return fmt.Errorf("persisting detach of device %s: %w", rec.DeviceID, err)
		}
		detached++
	}
	if detached > 0 {
		r.logger.Info("devices detached from user", "user_id", userID, "count", detached)
	}
	return nil
}

// View returns the filtered projection of a device, if it exists.
func (r *Registry) View(deviceID string) (View, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[deviceID]
	if !ok {
		return View{}, false
	}
	return rec.view(), true
}

// FullView joins a device record with its catalog metadata.
func (r *Registry) FullView(deviceID string) (FullView, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[deviceID]
	if !ok {
		return FullView{}, false
	}

	messages := make([]Message, len(rec.Messages))
	copy(messages, rec.Messages)

	return FullView{
		DeviceID:             rec.DeviceID,
		UserID:               rec.UserID,
		PropertyID:           rec.PropertyID,
		Enabled:              rec.Enabled,
		DeactivationKey:      rec.DeactivationKey,
		DeviceTypeID:         rec.DeviceTypeID,
		Messages:             messages,
		TicksWithoutMessages: rec.TicksWithoutMessages,
		NotificationSent:     rec.NotificationSent,
		DeviceType:           r.catalog.Lookup(rec.DeviceTypeID),
	}, true
}

// Liveness reports the monitor state of a device.
func (r *Registry) Liveness(deviceID string) (LivenessState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[deviceID]
	if !ok {
		return "", false
	}
	return rec.Liveness(r.threshold), true
}

// lostConnectionText is the device-log entry appended when a device is
// declared disconnected.
const lostConnectionText = "Lost communication with the IoT device"

// Sweep advances the liveness counter of every enabled device by one window
// and raises the one-shot lost-connection alert for devices that crossed the
// threshold. Disabled devices have their counter held at zero. Called by the
// Monitor once per window.
func (r *Registry) Sweep(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for deviceID, rec := range r.records {
		if !rec.Enabled {
			if rec.TicksWithoutMessages != 0 {
				rec.TicksWithoutMessages = 0
				r.saveLocked(ctx, rec)
			}
			continue
		}

		rec.TicksWithoutMessages++

		if rec.TicksWithoutMessages >= r.threshold && !rec.NotificationSent {
			rec.Messages = append(rec.Messages, Message{
				Severity:  SeverityCritical,
				Text:      lostConnectionText,
				Timestamp: r.now().UTC(),
			})
			r.queue.Enqueue(rec.UserID, deviceID,
				fmt.Sprintf("Lost connection to IoT device #%s", deviceID))
			rec.NotificationSent = true
			if r.telemetry != nil {
				r.telemetry.WriteLivenessAlert(deviceID, rec.TicksWithoutMessages)
			}
			r.logger.Warn("device is not sending messages",
				"device_id", deviceID,
				"silent_windows", rec.TicksWithoutMessages,
			)
		}

		r.saveLocked(ctx, rec)
	}
}

// saveLocked persists a record during a sweep. Persistence failures here are
// logged and skipped so one bad write does not abort the whole sweep.
// Caller must hold r.mu.
func (r *Registry) saveLocked(ctx context.Context, rec *Record) {
	if err := r.store.Save(ctx, rec); err != nil {
		r.logger.Error("persisting device during sweep failed",
			"device_id", rec.DeviceID, "error", err)
	}
}
