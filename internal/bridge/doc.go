// Package bridge links the supervisor's status record to the MQTT broker.
//
// The bridge is strictly a side channel. The serial wire protocol remains
// the authoritative surface; the bridge mirrors outbound events to network
// consumers and feeds inbound readings from companion services into the
// same mutation path every other writer uses.
//
// Inbound topics:
//   - supervisor/sensor: partial sensor readings (battery, pack, temperature)
//   - supervisor/mesh/event: mesh message arrival notifications
//
// Outbound topics:
//   - supervisor/telemetry: mirror of the periodic wire telemetry event
//   - supervisor/switch: retained switch configuration
//
// Because all inbound traffic funnels through the store's mutation methods,
// a sensor update arriving mid-telemetry-cycle can never produce a torn
// snapshot on either surface.
package bridge
