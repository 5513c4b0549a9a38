package bridge

import (
	"encoding/json"
	"fmt"

	"github.com/nerrad567/mesh-supervisor/internal/infrastructure/mqtt"
	"github.com/nerrad567/mesh-supervisor/internal/supervisor"
)

// MQTTClient is the broker surface the bridge depends on.
// Satisfied by *mqtt.Client; tests substitute a mock.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	IsConnected() bool
}

// Options configures a Bridge.
type Options struct {
	// Client is the connected MQTT client.
	Client MQTTClient

	// Store is the supervisor status record mutated by inbound messages.
	Store *supervisor.Store

	// Log receives bridge diagnostics.
	Log supervisor.Logger

	// QoS is the quality of service level for all bridge traffic.
	QoS byte
}

// Bridge connects the supervisor's status record to the MQTT broker.
//
// Inbound, it applies sensor readings and mesh-arrival notifications from
// companion services to the store. Outbound, it mirrors telemetry events to
// the broker and publishes the switch configuration as a retained message
// so late joiners see the current setup immediately.
//
// The serial wire protocol stays authoritative: the bridge never writes to
// the serial transport and a broker outage never affects it.
type Bridge struct {
	client MQTTClient
	store  *supervisor.Store
	log    supervisor.Logger
	qos    byte
}

// New creates a bridge. Call Start to register subscriptions.
func New(opts Options) *Bridge {
	return &Bridge{
		client: opts.Client,
		store:  opts.Store,
		log:    opts.Log,
		qos:    opts.QoS,
	}
}

// Start subscribes to the inbound topics.
//
// Subscriptions are tracked by the client and restored automatically after
// a reconnect, so Start only needs to run once.
//
// Returns:
//   - error: nil on success, otherwise the first failed subscription
func (b *Bridge) Start() error {
	if err := b.client.Subscribe(mqtt.Topics{}.Sensor(), b.qos, b.handleSensor); err != nil {
		return fmt.Errorf("subscribing to sensor topic: %w", err)
	}
	if err := b.client.Subscribe(mqtt.Topics{}.MeshEvent(), b.qos, b.handleMeshEvent); err != nil {
		return fmt.Errorf("subscribing to mesh event topic: %w", err)
	}
	return nil
}

// sensorUpdate is the inbound sensor reading payload. All fields are
// optional; absent fields leave the current value untouched.
type sensorUpdate struct {
	BatteryPct *int     `json:"battery_pct,omitempty"`
	PackMV     *int     `json:"pack_mv,omitempty"`
	PackMA     *int     `json:"pack_ma,omitempty"`
	MCUTempC   *float64 `json:"mcu_temp_c,omitempty"`
	Heltec     *string  `json:"heltec,omitempty"`
}

// handleSensor applies an inbound sensor reading to the store.
func (b *Bridge) handleSensor(topic string, payload []byte) error {
	var update sensorUpdate
	if err := json.Unmarshal(payload, &update); err != nil {
		b.log.Warn("dropping malformed sensor payload", "topic", topic, "error", err)
		return nil
	}

	b.store.ApplySensorReadings(supervisor.SensorReadings{
		BatteryPct: update.BatteryPct,
		PackMV:     update.PackMV,
		PackMA:     update.PackMA,
		MCUTempC:   update.MCUTempC,
		Heltec:     update.Heltec,
	})
	return nil
}

// handleMeshEvent records a mesh message arrival.
//
// The payload carries no data the supervisor needs; arrival alone bumps the
// unread counter and the last-event timestamp.
func (b *Bridge) handleMeshEvent(_ string, _ []byte) error {
	b.store.RecordMeshEvent()
	return nil
}

// PublishTelemetry implements supervisor.Sink.
//
// It mirrors the wire telemetry event to the broker byte-for-byte. Publish
// failures are logged and swallowed: the broker is a mirror, not the
// authoritative surface.
func (b *Bridge) PublishTelemetry(snap supervisor.State, nowMicros uint64) {
	if !b.client.IsConnected() {
		return
	}

	payload, err := json.Marshal(supervisor.NewTelemetryEvent(snap, nowMicros))
	if err != nil {
		b.log.Error("failed to encode telemetry event", "error", err)
		return
	}

	if err := b.client.Publish(mqtt.Topics{}.Telemetry(), payload, b.qos, false); err != nil {
		b.log.Warn("failed to mirror telemetry event", "error", err)
	}
}

// PublishSwitches publishes the current switch configuration.
//
// The message is retained so consumers joining later still receive the
// current configuration without waiting for a change.
//
// Returns:
//   - error: nil on success, otherwise the publish error
func (b *Bridge) PublishSwitches(sw supervisor.SwitchState) error {
	payload, err := json.Marshal(supervisor.NewSwitchEvent(sw))
	if err != nil {
		return fmt.Errorf("encoding switch event: %w", err)
	}

	if err := b.client.Publish(mqtt.Topics{}.Switch(), payload, b.qos, true); err != nil {
		return fmt.Errorf("publishing switch event: %w", err)
	}
	return nil
}
