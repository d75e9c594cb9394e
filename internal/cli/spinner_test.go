package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

// lockedBuffer lets the spinner goroutine and the test share a buffer.
type lockedBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (l *lockedBuffer) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.Write(p)
}

func (l *lockedBuffer) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.String()
}

func TestSpinnerDraws(t *testing.T) {
	var out lockedBuffer
	s := newSpinnerTo(context.Background(), &out, true, "Computing layout...")
	s.Start()
	time.Sleep(3 * spinnerInterval)
	s.Update("Settling 12 courses...")
	time.Sleep(3 * spinnerInterval)
	s.Stop()

	got := out.String()
	for _, want := range []string{"Computing layout...", "Settling 12 courses..."} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if !strings.HasSuffix(got, "\r") {
		t.Error("Stop should leave the cursor at the start of a cleared line")
	}
}

func TestSpinnerSilentWithoutTerminal(t *testing.T) {
	var out lockedBuffer
	s := newSpinnerTo(context.Background(), &out, false, "Rendering...")
	s.Start()
	time.Sleep(2 * spinnerInterval)
	s.Stop()

	if got := out.String(); got != "" {
		t.Errorf("non-terminal output = %q, want nothing", got)
	}
}

func TestSpinnerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var out lockedBuffer
	s := newSpinnerTo(ctx, &out, true, "Fetching...")
	s.Start()
	time.Sleep(2 * spinnerInterval)
	cancel()

	select {
	case <-s.stopped:
	case <-time.After(time.Second):
		t.Fatal("spinner kept drawing after cancellation")
	}
	s.Stop()
}

func TestSpinnerStop(t *testing.T) {
	tests := []struct {
		name  string
		start bool
		tty   bool
	}{
		{"before start", false, true},
		{"terminal", true, true},
		{"non-terminal", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out lockedBuffer
			s := newSpinnerTo(context.Background(), &out, tt.tty, "x")
			if tt.start {
				s.Start()
			}
			s.Stop()
			s.Stop()
		})
	}
}

func TestSpinnerStopWithError(t *testing.T) {
	var buf bytes.Buffer
	old := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = old })

	s := newSpinnerTo(context.Background(), &lockedBuffer{}, false, "Loading...")
	s.Start()
	s.StopWithError("Load failed")

	if !strings.Contains(buf.String(), "Load failed") {
		t.Errorf("stdout = %q, want the failure message", buf.String())
	}
}
