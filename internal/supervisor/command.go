package supervisor

import (
	"context"
	"encoding/json"
)

// Command names recognised by the dispatch table.
const (
	cmdGetStatus   = "get_status"
	cmdGetSwitches = "get_switches"
	cmdClearUnread = "clear_unread"
	cmdArmPoweroff = "arm_poweroff"
	cmdPing        = "ping"
)

// errUnknownCmd is the wire error string for unrecognised commands.
const errUnknownCmd = "unknown_cmd"

// Processor executes the line-delimited JSON command protocol against the
// store. One Processor serves one connection; ProcessLine is called from a
// single reader goroutine.
type Processor struct {
	store *Store
	clock Clock
	out   *LineWriter
	log   Logger
}

// NewProcessor creates a command processor writing replies through out.
func NewProcessor(store *Store, clock Clock, out *LineWriter, log Logger) *Processor {
	return &Processor{
		store: store,
		clock: clock,
		out:   out,
		log:   log,
	}
}

// Run consumes lines from the framer until ctx is cancelled. This is the
// command-dispatching execution context; it runs for the process lifetime.
func (p *Processor) Run(ctx context.Context, framer *LineFramer) {
	for {
		line, err := framer.Next(ctx)
		if err != nil {
			return
		}
		p.ProcessLine(line)
	}
}

// ProcessLine parses and dispatches one request line.
//
// Malformed input never produces a wire reply: a line that is not valid
// JSON, or that lacks a string `cmd`, is logged and dropped. Only a
// well-formed request reaches the dispatch table, where an unrecognised
// command is the one case surfaced to the caller as an error envelope.
func (p *Processor) ProcessLine(line []byte) {
	var req map[string]any
	if err := json.Unmarshal(line, &req); err != nil {
		p.log.Warn("dropping unparseable request line", "error", err)
		return
	}

	cmd, ok := req["cmd"].(string)
	if !ok {
		p.log.Warn("dropping request without string cmd")
		return
	}

	// Optional correlation id, echoed verbatim when present. A non-string
	// id is treated as absent.
	var id *string
	if v, ok := req["id"].(string); ok {
		id = &v
	}

	switch cmd {
	case cmdGetStatus:
		snap := p.store.Snapshot()
		p.out.WriteEnvelope(statusReply{
			ID:     id,
			OK:     true,
			Status: newStatusFields(snap, p.clock.NowMicros()),
		})

	case cmdGetSwitches:
		p.out.WriteEnvelope(switchReply{
			ID:     id,
			OK:     true,
			Switch: p.store.SnapshotSwitches(),
		})

	case cmdClearUnread:
		p.store.ClearUnread()
		p.out.WriteEnvelope(okReply{ID: id, OK: true})

	case cmdArmPoweroff:
		p.store.ArmPoweroff()
		p.out.WriteEnvelope(poweroffReply{ID: id, OK: true, PoweroffOK: true})

	case cmdPing:
		p.out.WriteEnvelope(pingReply{
			ID:      id,
			OK:      true,
			UptimeS: p.clock.NowMicros() / microsPerSecond,
		})

	default:
		p.out.WriteEnvelope(errorReply{ID: id, OK: false, Error: errUnknownCmd})
	}
}
