package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes for the RentState MQTT namespace.
//
// Devices publish to the iot branch: rentstate/iot/{deviceId}/{channel}
// The hub publishes its own lifecycle to the system branch.
const (
	// TopicPrefixIoT is the base for all device-originated topics.
	TopicPrefixIoT = "rentstate/iot"

	// TopicPrefixSystem is the base for hub lifecycle topics.
	TopicPrefixSystem = "rentstate/system"
)

// Topics provides builders for RentState MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	msgTopic := topics.DeviceMessage("device-42")
//	// Returns: "rentstate/iot/device-42/message"
type Topics struct{}

// DeviceMessage returns the topic a device publishes messages on.
//
// Example: rentstate/iot/device-42/message
func (Topics) DeviceMessage(deviceID string) string {
	return fmt.Sprintf("%s/%s/message", TopicPrefixIoT, deviceID)
}

// DeviceStatus returns the topic the hub publishes a device's liveness on.
//
// Example: rentstate/iot/device-42/status
func (Topics) DeviceStatus(deviceID string) string {
	return fmt.Sprintf("%s/%s/status", TopicPrefixIoT, deviceID)
}

// SystemStatus returns the hub status topic (also used for the LWT).
//
// Example: rentstate/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllDeviceMessages returns a pattern matching every device message topic.
//
// Pattern: rentstate/iot/+/message
func (Topics) AllDeviceMessages() string {
	return fmt.Sprintf("%s/+/message", TopicPrefixIoT)
}

// AllTopics returns a pattern matching all RentState topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: rentstate/#
func (Topics) AllTopics() string {
	return "rentstate/#"
}

// DeviceIDFromTopic extracts the device ID from an iot-branch topic.
// Returns "" if the topic does not match the expected layout.
func DeviceIDFromTopic(topic string) string {
	rest, ok := strings.CutPrefix(topic, TopicPrefixIoT+"/")
	if !ok {
		return ""
	}
	deviceID, channel, ok := strings.Cut(rest, "/")
	if !ok || deviceID == "" || channel == "" || strings.Contains(channel, "/") {
		return ""
	}
	return deviceID
}
