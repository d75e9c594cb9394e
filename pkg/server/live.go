package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/prereqgraph/pkg/graph"
	"github.com/matzehuels/prereqgraph/pkg/layout"
	"github.com/matzehuels/prereqgraph/pkg/observability"
)

// errClosed is returned for events sent to a session whose loop has exited.
var errClosed = errors.New("session closed")

// frameBuffer is how many frames a slow stream client may lag behind before
// frames are dropped for it.
const frameBuffer = 8

// live is one loaded dataset with its running simulation. Every access to
// the session, the controller and the subscriber set happens on the loop
// goroutine; handlers submit closures through do.
type live struct {
	id     string
	dept   string
	s      *layout.Session
	ctrl   *layout.Controller
	events chan func()
	quit   chan struct{}
	done   chan struct{}
	logger *log.Logger

	subs map[chan []byte]struct{}

	// recordMu orders drag ends with their read-modify-write of the
	// stored record, so placements from concurrent drags all land.
	recordMu sync.Mutex
	quitOnce sync.Once
}

func newLive(id, dept string, s *layout.Session, logger *log.Logger) *live {
	l := &live{
		id:     id,
		dept:   dept,
		s:      s,
		events: make(chan func()),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
		logger: logger.With("session", id),
		subs:   make(map[chan []byte]struct{}),
	}
	l.ctrl = layout.NewController(s, nil)
	return l
}

// run is the event loop. It executes submitted events in order and ticks
// the simulation on every interval while it is active. A tick that leaves
// the simulation settled sends a final frame and the loop idles until the
// next event wakes it.
func (l *live) run(ctx context.Context, interval time.Duration) {
	defer close(l.done)
	defer l.closeSubscribers()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.quit:
			return
		case fn := <-l.events:
			fn()
		case <-ticker.C:
			if !l.s.Active() {
				continue
			}
			l.s.Tick()
			l.broadcast()
		}
	}
}

// do runs fn on the loop goroutine and waits for it to finish.
func (l *live) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	select {
	case l.events <- func() { fn(); close(finished) }:
	case <-l.done:
		return errClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return errClosed
	}
}

// stop ends the loop and waits for it to exit.
func (l *live) stop() {
	l.quitOnce.Do(func() { close(l.quit) })
	<-l.done
}

// snapshot must be called on the loop goroutine.
func (l *live) snapshot() graph.Layout {
	out := l.s.Snapshot()
	out.Department = l.dept
	return out
}

// subscribe must be called on the loop goroutine. The returned channel
// receives encoded frames until unsubscribe or the end of the session.
func (l *live) subscribe() chan []byte {
	ch := make(chan []byte, frameBuffer)
	l.subs[ch] = struct{}{}
	observability.Session().OnStreamClient(l.id, 1)
	return ch
}

// unsubscribe must be called on the loop goroutine.
func (l *live) unsubscribe(ch chan []byte) {
	if _, ok := l.subs[ch]; !ok {
		return
	}
	delete(l.subs, ch)
	close(ch)
	observability.Session().OnStreamClient(l.id, -1)
}

func (l *live) closeSubscribers() {
	for ch := range l.subs {
		l.unsubscribe(ch)
	}
}

// broadcast sends the current snapshot to every subscriber without
// blocking the loop.
func (l *live) broadcast() {
	if len(l.subs) == 0 {
		return
	}
	frame, err := json.Marshal(Frame{Type: FrameTick, Layout: l.snapshot()})
	if err != nil {
		l.logger.Error("encode frame", "error", err)
		return
	}
	for ch := range l.subs {
		select {
		case ch <- frame:
		default:
			l.logger.Debug("stream client lagging, frame dropped")
		}
	}
}
