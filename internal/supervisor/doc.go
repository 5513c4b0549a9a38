// Package supervisor implements the protocol core of the mesh supervisor:
// the mutex-guarded device status record, the line-delimited JSON command
// protocol, and the periodic telemetry publisher.
//
// # Architecture
//
//	transport bytes ──▶ LineFramer ──▶ Processor ──▶ Store (read/mutate)
//	                                       │
//	                                       ▼
//	                                  LineWriter ──▶ transport
//
//	timer tick ──▶ Publisher ──▶ Store (snapshot) ──▶ LineWriter ──▶ transport
//	                   │
//	                   └──▶ Sinks (MQTT mirror, history, metrics)
//
// The command-dispatching context and the telemetry-publishing context are
// independent goroutines sharing exactly one resource, the Store, guarded by
// a single exclusive mutex. Neither context holds the lock across I/O, so
// lock acquisition is unconditionally blocking with no deadlock risk.
//
// # Wire protocol
//
// Requests and responses are UTF-8 JSON objects, one per line, terminated by
// '\n' (CR tolerated and stripped). Request lines longer than 511 bytes are
// dropped whole. A request is `{"cmd": string, "id"?: string}`; when `id` is
// present it is echoed verbatim in the response, when absent the response
// omits the field entirely. Lines that fail to parse, or parse to something
// without a string `cmd`, are discarded without a wire reply; only a
// recognisable request shape ever produces output.
//
// The package has no cancellation mechanism of its own beyond the context
// passed to the two Run loops: both run for the lifetime of the process.
package supervisor
