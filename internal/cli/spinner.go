package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const spinnerInterval = 80 * time.Millisecond

// Spinner draws a progress line on stderr while a load, layout or render is
// running. On a non-terminal it draws nothing, so piped output stays clean.
type Spinner struct {
	out   io.Writer
	tty   bool
	ctx   context.Context
	start time.Time

	mu      sync.Mutex
	message string
	width   int

	cancel   context.CancelFunc
	started  bool
	stopOnce sync.Once
	stopped  chan struct{}
}

// newSpinnerWithContext returns a spinner that stops drawing once ctx is
// cancelled.
func newSpinnerWithContext(ctx context.Context, message string) *Spinner {
	return newSpinnerTo(ctx, os.Stderr, isatty.IsTerminal(os.Stderr.Fd()), message)
}

func newSpinnerTo(ctx context.Context, out io.Writer, tty bool, message string) *Spinner {
	ctx, cancel := context.WithCancel(ctx)
	return &Spinner{
		out:     out,
		tty:     tty,
		ctx:     ctx,
		cancel:  cancel,
		message: message,
		stopped: make(chan struct{}),
	}
}

// Start begins drawing. Calling it twice has no effect.
func (s *Spinner) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.start = time.Now()
	s.mu.Unlock()

	if !s.tty {
		close(s.stopped)
		return
	}
	go s.loop()
}

func (s *Spinner) loop() {
	defer close(s.stopped)
	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()

	for i := 0; ; i++ {
		select {
		case <-s.ctx.Done():
			s.clear()
			return
		case <-ticker.C:
			s.draw(spinnerFrames[i%len(spinnerFrames)])
		}
	}
}

func (s *Spinner) draw(frame string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	line := fmt.Sprintf("%s %s", frame, s.message)
	if elapsed := time.Since(s.start); elapsed >= time.Second {
		line += fmt.Sprintf(" (%s)", elapsed.Round(time.Second))
	}
	pad := ""
	if n := len([]rune(line)); n < s.width {
		pad = strings.Repeat(" ", s.width-n)
	} else {
		s.width = n
	}
	head, rest, _ := strings.Cut(line, " ")
	fmt.Fprintf(s.out, "\r%s %s%s", styleIconSpinner.Render(head), StyleDim.Render(rest), pad)
}

func (s *Spinner) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.width > 0 {
		fmt.Fprintf(s.out, "\r%s\r", strings.Repeat(" ", s.width))
		s.width = 0
	}
}

// Update replaces the message shown on the next frame.
func (s *Spinner) Update(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

// Stop clears the line. It is safe to call more than once and before Start.
func (s *Spinner) Stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		s.mu.Lock()
		started := s.started
		s.mu.Unlock()
		if started {
			<-s.stopped
		}
		s.clear()
	})
}

// StopWithError stops the spinner and reports the failure on stdout.
func (s *Spinner) StopWithError(message string) {
	s.Stop()
	printError("%s", message)
}
