package mqtt

import "fmt"

// Topic prefixes for the supervisor's MQTT surface.
//
// All topics live under a single flat prefix: supervisor/{category}[/...].
// The wire protocol on the serial link is authoritative; these topics mirror
// it for network consumers and accept inbound sensor/mesh traffic.
const (
	// TopicPrefix is the base for all supervisor topics.
	TopicPrefix = "supervisor"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "supervisor/system"
)

// Topics provides builders for supervisor MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	topics.Telemetry() // "supervisor/telemetry"
type Topics struct{}

// Telemetry returns the topic telemetry events are mirrored to.
//
// Example: supervisor/telemetry
func (Topics) Telemetry() string {
	return fmt.Sprintf("%s/telemetry", TopicPrefix)
}

// Switch returns the topic the switch configuration is published to.
// Published retained so late subscribers see the current configuration.
//
// Example: supervisor/switch
func (Topics) Switch() string {
	return fmt.Sprintf("%s/switch", TopicPrefix)
}

// Sensor returns the topic inbound sensor readings arrive on.
//
// Example: supervisor/sensor
func (Topics) Sensor() string {
	return fmt.Sprintf("%s/sensor", TopicPrefix)
}

// MeshEvent returns the topic inbound mesh message notifications arrive on.
//
// Example: supervisor/mesh/event
func (Topics) MeshEvent() string {
	return fmt.Sprintf("%s/mesh/event", TopicPrefix)
}

// SystemStatus returns the system status topic, used for the online/offline
// lifecycle payloads including the Last Will message.
//
// Example: supervisor/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}
