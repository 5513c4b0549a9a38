package serial

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"
)

// blockingReader never returns; it simulates an idle stdin.
type blockingReader struct{}

func (blockingReader) Read([]byte) (int, error) {
	select {} // block forever
}

// errorReader fails immediately with a non-EOF error.
type errorReader struct{ err error }

func (r errorReader) Read([]byte) (int, error) {
	return 0, r.err
}

// drainErr polls ReadByte until the pump's terminal error surfaces.
func drainErr(t *testing.T, s *Stdio) error {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for terminal read error")
		default:
		}
		_, ok, err := s.ReadByte(10 * time.Millisecond)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
	}
}

func TestStdioReadsBytesInOrder(t *testing.T) {
	s := newStdio(strings.NewReader("abc"), io.Discard)

	var got []byte
	for i := 0; i < 3; i++ {
		b, ok, err := s.ReadByte(time.Second)
		if err != nil {
			t.Fatalf("ReadByte() error = %v", err)
		}
		if !ok {
			t.Fatal("ReadByte() timed out with data pending")
		}
		got = append(got, b)
	}

	if string(got) != "abc" {
		t.Errorf("read %q, want %q", got, "abc")
	}
}

func TestStdioTimeoutWhenIdle(t *testing.T) {
	s := newStdio(blockingReader{}, io.Discard)

	b, ok, err := s.ReadByte(20 * time.Millisecond)
	if err != nil {
		t.Fatalf("ReadByte() error = %v", err)
	}
	if ok {
		t.Errorf("ReadByte() = %q, want timeout with no byte", b)
	}
}

func TestStdioSurfacesEOF(t *testing.T) {
	s := newStdio(strings.NewReader("x"), io.Discard)

	// Consume the single byte, then the stream end must surface.
	if _, ok, err := s.ReadByte(time.Second); err != nil || !ok {
		t.Fatalf("ReadByte() = (%v, %v), want byte", ok, err)
	}

	if err := drainErr(t, s); !errors.Is(err, io.EOF) {
		t.Errorf("terminal error = %v, want io.EOF", err)
	}
}

func TestStdioSurfacesReadError(t *testing.T) {
	readErr := errors.New("tty vanished")
	s := newStdio(errorReader{err: readErr}, io.Discard)

	if err := drainErr(t, s); !errors.Is(err, readErr) {
		t.Errorf("terminal error = %v, want %v", err, readErr)
	}
}

func TestStdioWritePassthrough(t *testing.T) {
	var out bytes.Buffer
	s := newStdio(blockingReader{}, &out)

	n, err := s.Write([]byte("{\"ok\":true}\n"))
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if n != 12 {
		t.Errorf("Write() n = %d, want 12", n)
	}
	if out.String() != "{\"ok\":true}\n" {
		t.Errorf("output = %q, want %q", out.String(), "{\"ok\":true}\n")
	}
}

// syncWriter guards a buffer so concurrent writes can be verified.
type syncWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (w *syncWriter) Write(b []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(b)
}

func (w *syncWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

func TestStdioConcurrentWrites(t *testing.T) {
	out := &syncWriter{}
	s := newStdio(blockingReader{}, out)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Write([]byte("line\n")); err != nil {
				t.Errorf("Write() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if got := strings.Count(out.String(), "line\n"); got != 10 {
		t.Errorf("complete lines = %d, want 10", got)
	}
}
