package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/mesh-supervisor/internal/supervisor"
)

// telemetryMeasurement is the measurement name for periodic status snapshots.
const telemetryMeasurement = "supervisor_telemetry"

// WriteTelemetry writes one status snapshot as a telemetry point.
//
// The write is non-blocking; data is batched and sent asynchronously.
// Tag cardinality stays low: one series per supervisor node.
//
// Parameters:
//   - node: Supervisor node identifier (e.g., "supervisor-001")
//   - snap: The status snapshot to record
//   - nowMicros: Boot-relative timestamp the snapshot was taken at
func (c *Client) WriteTelemetry(node string, snap supervisor.State, nowMicros uint64) {
	if !c.IsConnected() {
		return
	}

	// Same age rule as the wire status payload: zero when no mesh event has
	// been seen or the clock reads before the event.
	var lastMsgAge int64
	if snap.LastMeshEventUS != 0 && nowMicros >= snap.LastMeshEventUS {
		lastMsgAge = int64((nowMicros - snap.LastMeshEventUS) / 1_000_000)
	}

	point := write.NewPoint(
		telemetryMeasurement,
		map[string]string{
			"node": node,
		},
		map[string]interface{}{
			"battery_pct":    snap.BatteryPct,
			"pack_mv":        snap.PackMV,
			"pack_ma":        snap.PackMA,
			"mcu_temp_c":     snap.MCUTempC,
			"unread_ext":     snap.UnreadExt,
			"last_msg_age_s": lastMsgAge,
			"uptime_s":       int64(nowMicros / 1_000_000),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// TelemetrySink adapts the client to the telemetry publisher's fan-out.
//
// It records every published snapshot as a time-series point. Because the
// underlying write API batches asynchronously, the sink never blocks the
// publisher loop; write failures surface through the client's error callback.
type TelemetrySink struct {
	client *Client
	node   string
}

// NewTelemetrySink creates a sink recording snapshots for the given node.
func NewTelemetrySink(client *Client, node string) *TelemetrySink {
	return &TelemetrySink{client: client, node: node}
}

// PublishTelemetry implements supervisor.Sink.
func (s *TelemetrySink) PublishTelemetry(snap supervisor.State, nowMicros uint64) {
	s.client.WriteTelemetry(s.node, snap, nowMicros)
}
