package serial

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/nerrad567/mesh-supervisor/internal/supervisor"
)

var (
	_ supervisor.ByteReader = (*Stdio)(nil)
	_ io.Writer             = (*Stdio)(nil)
)

// Stdio is a transport bound to standard input and output.
//
// It exists for development and for deployments where the supervisor runs
// as a child process of the serial host rather than behind a tty. A pump
// goroutine converts the blocking stdin read into the bounded-wait
// ReadByte the framer expects.
type Stdio struct {
	writeMu sync.Mutex
	out     io.Writer

	bytes chan byte

	errMu   sync.Mutex
	readErr error
}

// NewStdio creates a transport over the process's stdin and stdout.
//
// Wire traffic owns stdout; logging must go to stderr (the default).
func NewStdio() *Stdio {
	return newStdio(os.Stdin, os.Stdout)
}

// newStdio is the injectable constructor used by tests.
func newStdio(in io.Reader, out io.Writer) *Stdio {
	s := &Stdio{
		out:   out,
		bytes: make(chan byte, 512),
	}
	go s.pump(in)
	return s
}

// pump copies the input stream into the byte channel until read failure.
// The channel is closed afterwards so ReadByte surfaces the error.
func (s *Stdio) pump(in io.Reader) {
	buf := make([]byte, 256)
	for {
		n, err := in.Read(buf)
		for _, b := range buf[:n] {
			s.bytes <- b
		}
		if err != nil {
			s.errMu.Lock()
			s.readErr = err
			s.errMu.Unlock()
			close(s.bytes)
			return
		}
	}
}

// ReadByte returns the next byte from stdin, waiting at most timeout.
// ok is false when the wait expired with no byte available. After the
// input stream ends every call reports the terminal read error.
func (s *Stdio) ReadByte(timeout time.Duration) (byte, bool, error) {
	select {
	case b, ok := <-s.bytes:
		if !ok {
			s.errMu.Lock()
			defer s.errMu.Unlock()
			return 0, false, s.readErr
		}
		return b, true, nil
	case <-time.After(timeout):
		return 0, false, nil
	}
}

// Write sends bytes to stdout. Safe for concurrent use.
func (s *Stdio) Write(b []byte) (int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.out.Write(b)
}

// Close is a no-op; the process owns stdin and stdout.
func (s *Stdio) Close() error {
	return nil
}
