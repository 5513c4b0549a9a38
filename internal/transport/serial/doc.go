// Package serial provides the supervisor's wire transports.
//
// Two implementations exist behind the same byte-granular surface:
//   - Port: a real serial device via go.bug.st/serial
//   - Stdio: the process's stdin/stdout, for development and piped
//     deployments
//
// Both satisfy the protocol core's ByteReader on the receive side and
// io.Writer on the send side. The receive side belongs to exactly one
// reader goroutine; the send side serialises concurrent writers so lines
// never interleave.
//
// The "stdio" special value for serial.device in config.yaml selects the
// Stdio transport.
package serial
