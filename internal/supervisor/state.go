package supervisor

import "sync"

// maxVersionTag is the maximum length of the peer/local firmware tags.
// Longer values are truncated on write; the wire schema promises a bounded
// string to consumers.
const maxVersionTag = 15

// SwitchState holds the six independent device-mode flags. The JSON tags are
// the wire names of the `switch` object; there are no inter-field
// invariants.
type SwitchState struct {
	LTE           bool `json:"lte"`
	WiFi          bool `json:"wifi"`
	BT            bool `json:"bt"`
	BridgeEnable  bool `json:"bridge_enable"`
	LidOpen       bool `json:"lid_open"`
	ChargerOnline bool `json:"charger_online"`
}

// State is the full supervisor status record.
//
// It is a plain value: copies taken under the store's lock are immutable
// snapshots. Wire representations live in envelope.go; this struct is the
// internal model only.
type State struct {
	// BatteryPct is the pack charge level, 0-100. The store does not
	// enforce the domain; producers must respect it.
	BatteryPct int

	// PackMV is the pack voltage in millivolts.
	PackMV int

	// PackMA is the pack current in milliamps. Negative means discharging.
	PackMA int

	// MCUTempC is the MCU temperature in degrees Celsius.
	MCUTempC float64

	// UnreadExt counts unread external mesh messages.
	UnreadExt int

	// Heltec is the peer firmware status tag (at most maxVersionTag chars).
	Heltec string

	// MCU is the local firmware version tag (at most maxVersionTag chars).
	MCU string

	// PoweroffArmed is latched by arm_poweroff and never auto-cleared.
	PoweroffArmed bool

	// LastMeshEventUS is the boot-relative timestamp (microseconds) of the
	// most recent mesh event. 0 means "never". Monotonic non-decreasing.
	LastMeshEventUS uint64

	// Switches is the embedded switch sub-record.
	Switches SwitchState
}

// SensorReadings is a partial update applied through the store's mutation
// path. Nil fields leave the current value untouched.
type SensorReadings struct {
	BatteryPct *int
	PackMV     *int
	PackMA     *int
	MCUTempC   *float64
	Heltec     *string
}

// Store owns the supervisor status record.
//
// All reads and mutations run inside one exclusive critical section, so
// every snapshot observes a record fully written by exactly one prior
// mutation, never a partial update. Critical sections are O(1) struct
// copies or a couple of field writes and never perform I/O, so blocking
// acquisition carries no deadlock risk.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Store struct {
	clock Clock

	mu    sync.Mutex
	state State
}

// NewStore creates the status record with its fixed power-on defaults.
// State is volatile: every process start begins from these values.
func NewStore(clock Clock) *Store {
	return &Store{
		clock: clock,
		state: State{
			BatteryPct: 78,
			PackMV:     11750,
			PackMA:     -420,
			MCUTempC:   36.5,
			UnreadExt:  0,
			Heltec:     "ok",
			MCU:        "proto-0.1",
			Switches: SwitchState{
				LTE:           true,
				WiFi:          false,
				BT:            true,
				BridgeEnable:  true,
				LidOpen:       false,
				ChargerOnline: true,
			},
			LastMeshEventUS: clock.NowMicros(),
		},
	}
}

// Snapshot returns a consistent copy of the full status record.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SnapshotSwitches returns a consistent copy of the switch sub-record only.
func (s *Store) SnapshotSwitches() SwitchState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Switches
}

// mutate applies a bounded, side-effect-free transformation to the record
// inside the exclusive critical section. fn must not block or perform I/O;
// an O(1) clock read is fine.
func (s *Store) mutate(fn func(*State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
}

// ClearUnread resets the unread external-message count and refreshes the
// last-mesh-event timestamp to now. Idempotent on the count; the timestamp
// is non-decreasing across calls.
//
// The clock is read inside the critical section so concurrent mutators
// commit timestamps in lock order; a read taken before acquisition could
// land after a later one.
func (s *Store) ClearUnread() {
	s.mutate(func(st *State) {
		st.UnreadExt = 0
		st.LastMeshEventUS = s.clock.NowMicros()
	})
}

// ArmPoweroff latches the poweroff-armed flag. Nothing in this process
// clears it again.
func (s *Store) ArmPoweroff() {
	s.mutate(func(st *State) {
		st.PoweroffArmed = true
	})
}

// RecordMeshEvent notes the delivery of one external mesh message:
// the unread count grows by one and the last-mesh-event timestamp is
// refreshed to now. The clock read happens under the lock, as in
// ClearUnread.
func (s *Store) RecordMeshEvent() {
	s.mutate(func(st *State) {
		st.UnreadExt++
		st.LastMeshEventUS = s.clock.NowMicros()
	})
}

// ApplySensorReadings applies a partial sensor update through the same
// exclusive-lock mutation path used by the command handlers.
func (s *Store) ApplySensorReadings(r SensorReadings) {
	s.mutate(func(st *State) {
		if r.BatteryPct != nil {
			st.BatteryPct = *r.BatteryPct
		}
		if r.PackMV != nil {
			st.PackMV = *r.PackMV
		}
		if r.PackMA != nil {
			st.PackMA = *r.PackMA
		}
		if r.MCUTempC != nil {
			st.MCUTempC = *r.MCUTempC
		}
		if r.Heltec != nil {
			st.Heltec = truncateTag(*r.Heltec)
		}
	})
}

// truncateTag bounds a firmware tag to the wire limit.
func truncateTag(tag string) string {
	if len(tag) > maxVersionTag {
		return tag[:maxVersionTag]
	}
	return tag
}
