package supervisor

import (
	"encoding/json"
	"io"
)

// statusFields is the telemetry field set shared by get_status replies and
// telemetry events. Field names and types are wire-normative; consumers of
// the protocol match on them exactly.
type statusFields struct {
	BatteryPct  int         `json:"battery_pct"`
	PackMV      int         `json:"pack_mv"`
	PackMA      int         `json:"pack_ma"`
	MCUTempC    float64     `json:"mcu_temp_c"`
	UnreadExt   int         `json:"unread_ext"`
	LastMsgAgeS int64       `json:"last_msg_age_s"`
	Heltec      string      `json:"heltec"`
	MCU         string      `json:"mcu"`
	UptimeS     uint64      `json:"uptime_s"`
	Switch      SwitchState `json:"switch"`
}

// newStatusFields derives the wire field set from a state snapshot and the
// timestamp the snapshot is being reported at.
func newStatusFields(st State, nowMicros uint64) statusFields {
	return statusFields{
		BatteryPct:  st.BatteryPct,
		PackMV:      st.PackMV,
		PackMA:      st.PackMA,
		MCUTempC:    st.MCUTempC,
		UnreadExt:   st.UnreadExt,
		LastMsgAgeS: lastMsgAge(st.LastMeshEventUS, nowMicros),
		Heltec:      st.Heltec,
		MCU:         st.MCU,
		UptimeS:     nowMicros / microsPerSecond,
		Switch:      st.Switches,
	}
}

// lastMsgAge returns whole seconds since the last mesh event. A zero event
// timestamp ("never") or a clock anomaly (now earlier than the event) yields
// 0. The difference in seconds always fits int64: a uint64 of microseconds
// caps out near 1.8e13 seconds.
func lastMsgAge(lastEventMicros, nowMicros uint64) int64 {
	if lastEventMicros == 0 || nowMicros < lastEventMicros {
		return 0
	}
	return int64((nowMicros - lastEventMicros) / microsPerSecond)
}

// Reply envelopes. A nil ID omits the field entirely; a non-nil ID echoes
// the request's correlation id verbatim, empty string included.

type okReply struct {
	ID *string `json:"id,omitempty"`
	OK bool    `json:"ok"`
}

type statusReply struct {
	ID     *string      `json:"id,omitempty"`
	OK     bool         `json:"ok"`
	Status statusFields `json:"status"`
}

type switchReply struct {
	ID     *string     `json:"id,omitempty"`
	OK     bool        `json:"ok"`
	Switch SwitchState `json:"switch"`
}

type poweroffReply struct {
	ID         *string `json:"id,omitempty"`
	OK         bool    `json:"ok"`
	PoweroffOK bool    `json:"poweroff_ok"`
}

type pingReply struct {
	ID      *string `json:"id,omitempty"`
	OK      bool    `json:"ok"`
	UptimeS uint64  `json:"uptime_s"`
}

type errorReply struct {
	ID    *string `json:"id,omitempty"`
	OK    bool    `json:"ok"`
	Error string  `json:"error"`
}

// TelemetryEvent is the unsolicited periodic status event. Its field set is
// identical to the `status` payload of get_status, inlined next to the
// event name.
type TelemetryEvent struct {
	Event string `json:"event"`
	statusFields
}

// NewTelemetryEvent builds a telemetry event from a state snapshot.
func NewTelemetryEvent(st State, nowMicros uint64) TelemetryEvent {
	return TelemetryEvent{
		Event:        "telemetry",
		statusFields: newStatusFields(st, nowMicros),
	}
}

// SwitchEvent announces the current switch configuration. One is emitted at
// startup before either loop begins.
type SwitchEvent struct {
	Event  string      `json:"event"`
	Switch SwitchState `json:"switch"`
}

// NewSwitchEvent builds a switch event from a switch snapshot.
func NewSwitchEvent(sw SwitchState) SwitchEvent {
	return SwitchEvent{Event: "switch", Switch: sw}
}

// LineWriter serialises wire envelopes onto the transport, one JSON object
// per line.
//
// Each envelope is written as a single Write call (payload plus trailing
// newline), so concurrent writers interleave only at line granularity when
// the underlying writer serialises Write calls. An envelope that fails to
// encode or write is logged and dropped, never retried.
type LineWriter struct {
	w   io.Writer
	log Logger
}

// NewLineWriter creates a writer for the transport's send side.
func NewLineWriter(w io.Writer, log Logger) *LineWriter {
	return &LineWriter{w: w, log: log}
}

// WriteEnvelope encodes v and writes it as one newline-terminated line.
func (lw *LineWriter) WriteEnvelope(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		lw.log.Error("failed to encode envelope", "error", err)
		return
	}
	payload = append(payload, '\n')
	if _, err := lw.w.Write(payload); err != nil {
		lw.log.Warn("failed to write envelope", "error", err)
	}
}
