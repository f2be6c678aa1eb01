package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/antarticdonkeys/rentstate-hub/internal/device"
	"github.com/antarticdonkeys/rentstate-hub/internal/infrastructure/mqtt"
	"github.com/antarticdonkeys/rentstate-hub/internal/result"
)

// Logger defines the logging interface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// MessageSink is the slice of the device registry the bridge feeds into.
type MessageSink interface {
	IngestMessage(ctx context.Context, deviceID, password, text, severity string) *result.Error
}

// Subscriber is the part of the MQTT client the bridge uses.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// payload is the wire format devices publish on their message topic.
type payload struct {
	Password string `json:"password"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// Bridge subscribes to the device message branch and routes each payload
// into the registry.
type Bridge struct {
	sink   MessageSink
	client Subscriber
	qos    byte
	logger Logger
}

// NewBridge creates a bridge. Call Start to begin consuming.
func NewBridge(sink MessageSink, client Subscriber, qos byte) (*Bridge, error) {
	if sink == nil {
		return nil, fmt.Errorf("message sink is required")
	}
	if client == nil {
		return nil, fmt.Errorf("mqtt client is required")
	}
	return &Bridge{
		sink:   sink,
		client: client,
		qos:    qos,
		logger: noopLogger{},
	}, nil
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.logger = logger
}

// Start subscribes to the device message branch.
func (b *Bridge) Start() error {
	topic := mqtt.Topics{}.AllDeviceMessages()
	if err := b.client.Subscribe(topic, b.qos, b.handleMessage); err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	return nil
}

// Close unsubscribes from the device message branch.
func (b *Bridge) Close() error {
	return b.client.Unsubscribe(mqtt.Topics{}.AllDeviceMessages())
}

// handleMessage parses one published payload and feeds it to the registry.
// A malformed or rejected message is logged and dropped; returning an error
// would only make the MQTT client log it a second time.
func (b *Bridge) handleMessage(topic string, raw []byte) error {
	deviceID := mqtt.DeviceIDFromTopic(topic)
	if deviceID == "" {
		b.logger.Warn("message on unrecognised topic", "topic", topic)
		return nil
	}

	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		b.logger.Warn("malformed device payload", "device_id", deviceID, "error", err)
		return nil
	}
	if p.Severity == "" {
		p.Severity = string(device.SeverityInfo)
	}

	if rerr := b.sink.IngestMessage(context.Background(), deviceID, p.Password, p.Message, p.Severity); rerr != nil {
		b.logger.Warn("device message rejected",
			"device_id", deviceID,
			"code", rerr.Code,
			"error", rerr.Message,
		)
		return nil
	}

	b.logger.Debug("device message ingested", "device_id", deviceID, "severity", p.Severity)
	return nil
}
