package supervisor

import (
	"context"
	"time"
)

// Framing constants.
const (
	// MaxLineLen is the maximum usable request line length in bytes.
	// Longer lines are dropped whole, never truncated and processed.
	MaxLineLen = 511

	// defaultPollTimeout bounds each byte fetch so the reader goroutine
	// stays responsive to cancellation when no input is pending.
	defaultPollTimeout = 100 * time.Millisecond
)

// ByteReader is the receive half of the transport: a byte-granular source
// with a bounded wait per byte. Any line-oriented serial port, pipe or
// socket adapter satisfies it.
type ByteReader interface {
	// ReadByte returns the next byte from the transport. ok is false when
	// the poll timed out with no byte available; err reports a transport
	// fault (the caller decides whether to keep polling).
	ReadByte(timeout time.Duration) (b byte, ok bool, err error)
}

// LineFramer turns the transport's raw byte stream into complete,
// newline-terminated lines.
//
// CR bytes are treated as noise and ignored. When accumulation would exceed
// MaxLineLen the buffered partial line is discarded with a log entry and
// accumulation resumes from the next byte; the newline that would have
// terminated the dropped line then delivers an empty (or garbage-tail) line,
// which the command layer discards without a reply.
//
// A LineFramer is owned by a single reader goroutine; it is not safe for
// concurrent use.
type LineFramer struct {
	r           ByteReader
	log         Logger
	pollTimeout time.Duration
	buf         []byte
	faulted     bool
}

// NewLineFramer creates a framer over the transport's receive side.
func NewLineFramer(r ByteReader, log Logger) *LineFramer {
	return &LineFramer{
		r:           r,
		log:         log,
		pollTimeout: defaultPollTimeout,
		buf:         make([]byte, 0, MaxLineLen),
	}
}

// SetPollTimeout overrides the per-byte poll timeout. Non-positive values
// are ignored. Call before the reader loop starts.
func (f *LineFramer) SetPollTimeout(d time.Duration) {
	if d > 0 {
		f.pollTimeout = d
	}
}

// Next blocks until a complete non-empty line arrives or ctx is cancelled.
// The returned slice is valid only until the next call.
func (f *LineFramer) Next(ctx context.Context) ([]byte, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		b, ok, err := f.r.ReadByte(f.pollTimeout)
		if err != nil {
			// Transport faults are not fatal to the reader loop. Log the
			// start of a fault episode once, then back off one poll interval
			// per retry; a terminal fault such as EOF would otherwise emit
			// the same warning every poll for the life of the process.
			if !f.faulted {
				f.faulted = true
				f.log.Warn("transport read failed", "error", err)
			}
			f.sleep(ctx, f.pollTimeout)
			continue
		}
		f.faulted = false
		if !ok {
			continue // poll timeout, no data pending
		}

		switch b {
		case '\r':
			// CRLF terminals; CR is noise.
		case '\n':
			if len(f.buf) == 0 {
				continue
			}
			line := f.buf
			f.buf = f.buf[:0]
			return line, nil
		default:
			if len(f.buf) >= MaxLineLen {
				f.log.Warn("request line overflow, dropping partial line",
					"buffered", len(f.buf),
				)
				f.buf = f.buf[:0]
				continue
			}
			f.buf = append(f.buf, b)
		}
	}
}

// sleep waits d or until ctx is cancelled, whichever comes first.
func (f *LineFramer) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
