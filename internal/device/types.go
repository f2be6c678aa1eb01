package device

import "time"

// Unlinked sentinel values. A device with UserID == NoUserID belongs to no
// account; PropertyID behaves the same way for properties.
const (
	NoUserID     int64 = 0
	NoPropertyID int64 = 0
)

// Defaults applied when a previously-unseen device registers.
const (
	DefaultDeviceTypeID    = 1
	defaultDeactivationKey = "1234"
	defaultEnabled         = false
)

// Severity classifies a device message. The tiers are ordered from routine
// telemetry up to critical faults; only SeverityReport stays local and never
// triggers an external notification.
type Severity string

const (
	SeverityReport   Severity = "report"
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// ParseSeverity validates a severity string. An empty string maps to
// SeverityReport; the HTTP and MQTT surfaces substitute SeverityInfo for a
// missing tier before it reaches here.
func ParseSeverity(s string) (Severity, bool) {
	switch Severity(s) {
	case SeverityReport, SeverityInfo, SeverityWarning, SeverityError, SeverityCritical:
		return Severity(s), true
	}
	if s == "" {
		return SeverityReport, true
	}
	return "", false
}

// Message is a single entry in a device's message log.
type Message struct {
	Severity  Severity  `json:"severity"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Record is the persisted state of a registered device.
//
// Invariant: UserID == NoUserID if and only if PropertyID == NoPropertyID.
// The linking protocol in the user package is the only caller of LinkToUser
// and Unlink, and it maintains the pairing.
type Record struct {
	DeviceID        string `json:"deviceId"`
	Password        string `json:"password"`
	UserID          int64  `json:"userId"`
	PropertyID      int64  `json:"propertyId"`
	Enabled         bool   `json:"enabled"`
	DeactivationKey string `json:"deactivationKey"`
	DeviceTypeID    int    `json:"deviceTypeId"`

	Messages []Message `json:"messages"`

	// Liveness bookkeeping. TicksWithoutMessages counts consecutive monitor
	// windows with no inbound message; NotificationSent latches once the
	// lost-connection alert has been enqueued so it cannot fire twice.
	TicksWithoutMessages int  `json:"ticksWithoutMessages"`
	NotificationSent     bool `json:"hasSentNotification"`
}

// DeepCopy returns an independent copy of the record. The registry hands out
// copies only; callers can never mutate the cached working set.
func (r *Record) DeepCopy() *Record {
	if r == nil {
		return nil
	}
	cpy := *r
	if r.Messages != nil {
		cpy.Messages = make([]Message, len(r.Messages))
		copy(cpy.Messages, r.Messages)
	}
	return &cpy
}

// View is the filtered projection of a Record returned to devices and users.
// It never carries the device password.
type View struct {
	UserID          int64  `json:"userId"`
	PropertyID      int64  `json:"propertyId"`
	DeviceID        string `json:"deviceId"`
	Enabled         bool   `json:"enabled"`
	DeactivationKey string `json:"deactivationKey"`
	DeviceTypeID    int    `json:"deviceTypeId"`
}

// view builds the filtered projection for a record.
func (r *Record) view() View {
	typeID := r.DeviceTypeID
	if typeID == 0 {
		typeID = DefaultDeviceTypeID
	}
	return View{
		UserID:          r.UserID,
		PropertyID:      r.PropertyID,
		DeviceID:        r.DeviceID,
		Enabled:         r.Enabled,
		DeactivationKey: r.DeactivationKey,
		DeviceTypeID:    typeID,
	}
}

// LivenessState is the monitor's view of a single device.
type LivenessState string

const (
	// LivenessIdle means the device is disabled; the counter is held at zero.
	LivenessIdle LivenessState = "idle"
	// LivenessLive means the device has reported within the threshold.
	LivenessLive LivenessState = "live"
	// LivenessSuspect means the threshold was reached but no alert has been
	// raised yet. The state is transient within a single sweep.
	LivenessSuspect LivenessState = "suspect"
	// LivenessAlerted means the lost-connection alert has been enqueued.
	LivenessAlerted LivenessState = "alerted"
)

// Liveness derives the monitor state from the counter/flag pair.
func (r *Record) Liveness(threshold int) LivenessState {
	switch {
	case !r.Enabled:
		return LivenessIdle
	case r.NotificationSent:
		return LivenessAlerted
	case r.TicksWithoutMessages >= threshold:
		return LivenessSuspect
	default:
		return LivenessLive
	}
}

// FullView joins a device record with its catalog metadata. Used by the
// owner-facing device detail endpoint; unlike View it includes the message
// log but still omits the password.
type FullView struct {
	DeviceID             string    `json:"deviceId"`
	UserID               int64     `json:"userId"`
	PropertyID           int64     `json:"propertyId"`
	Enabled              bool      `json:"enabled"`
	DeactivationKey      string    `json:"deactivationKey"`
	DeviceTypeID         int       `json:"deviceTypeId"`
	Messages             []Message `json:"messages"`
	TicksWithoutMessages int       `json:"ticksWithoutMessages"`
	NotificationSent     bool      `json:"hasSentNotification"`
	DeviceType           TypeInfo  `json:"deviceType"`
}
