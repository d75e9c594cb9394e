package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	perrors "github.com/matzehuels/prereqgraph/pkg/errors"
	"github.com/matzehuels/prereqgraph/pkg/graph"
)

// Frame types pushed to stream clients.
const (
	FrameSnapshot = "snapshot"
	FrameTick     = "tick"
	FrameDrag     = "drag"
	FrameError    = "error"
)

// Frame is one message sent to a stream client.
type Frame struct {
	Type   string       `json:"type"`
	Layout graph.Layout `json:"layout,omitzero"`
	Node   string       `json:"node,omitempty"`
	Column *int         `json:"column,omitempty"`
	Error  *ErrorDetail `json:"error,omitempty"`
}

// ClientMessage is one message read from a stream client. Type is "drag"
// or "tick"; drag messages carry Node, Phase and the pointer position,
// tick messages carry Count.
type ClientMessage struct {
	Type  string  `json:"type"`
	Node  string  `json:"node,omitempty"`
	Phase string  `json:"phase,omitempty"`
	X     float64 `json:"x,omitempty"`
	Y     float64 `json:"y,omitempty"`
	Count int     `json:"count,omitempty"`
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleStream upgrades to a websocket, sends the current layout, then
// forwards every frame the session broadcasts. Drag and tick messages from
// the client are applied like their HTTP counterparts; their results reach
// the client through the broadcast.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	e, err := s.lookup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "session", e.live.id, "error", err)
		return
	}
	defer conn.Close()

	e.streams.Add(1)
	defer func() {
		e.streams.Add(-1)
		e.touch()
	}()

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	var (
		frames chan []byte
		snap   graph.Layout
	)
	if err := e.live.do(ctx, func() {
		frames = e.live.subscribe()
		snap = e.live.snapshot()
	}); err != nil {
		_ = conn.WriteJSON(Frame{Type: FrameError, Error: detailOf(classify(err))})
		return
	}
	defer func() {
		// The loop may already be gone, in which case it closed frames.
		_ = e.live.do(context.Background(), func() { e.live.unsubscribe(frames) })
	}()

	replies := make(chan Frame, frameBuffer)
	replies <- Frame{Type: FrameSnapshot, Layout: snap}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer cancel()
		// Unblocks the reader once nothing more will be written.
		defer conn.Close()
		s.writeFrames(ctx, conn, frames, replies)
	}()

	s.readMessages(ctx, conn, e, replies)
	cancel()
	<-writerDone
}

// writeFrames is the only writer of conn.
func (s *Server) writeFrames(ctx context.Context, conn *websocket.Conn, frames <-chan []byte, replies <-chan Frame) {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case data, ok := <-frames:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"), time.Now().Add(writeWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case f := <-replies:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(f); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// readMessages applies client messages until the connection fails or ctx
// ends. Failures are answered with an error frame.
func (s *Server) readMessages(ctx context.Context, conn *websocket.Conn, e *entry, replies chan<- Frame) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("stream read failed", "session", e.live.id, "error", err)
			}
			return
		}
		e.touch()

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			err = perrors.Wrap(perrors.ErrCodeInvalidInput, err, "decode message")
			if !reply(ctx, replies, Frame{Type: FrameError, Error: detailOf(err)}) {
				return
			}
			continue
		}
		if f, err := s.apply(ctx, e, msg); err != nil {
			if !reply(ctx, replies, Frame{Type: FrameError, Node: msg.Node, Error: detailOf(classify(err))}) {
				return
			}
		} else if f != nil {
			if !reply(ctx, replies, *f) {
				return
			}
		}
	}
}

// apply runs one client message. A completed drag is answered with a drag
// frame naming the committed column.
func (s *Server) apply(ctx context.Context, e *entry, msg ClientMessage) (*Frame, error) {
	switch msg.Type {
	case "drag":
		if err := perrors.ValidateNodeID(msg.Node); err != nil {
			return nil, err
		}
		resp, err := s.drag(ctx, e, msg.Node, DragRequest{Phase: msg.Phase, X: msg.X, Y: msg.Y})
		if err != nil {
			return nil, err
		}
		if resp.Column == nil {
			return nil, nil
		}
		return &Frame{Type: FrameDrag, Node: resp.Node, Column: resp.Column, Layout: resp.Layout}, nil
	case "tick":
		_, err := s.tick(ctx, e, msg.Count)
		return nil, err
	default:
		return nil, perrors.New(perrors.ErrCodeInvalidInput, "unknown message type %q", msg.Type)
	}
}

func reply(ctx context.Context, replies chan<- Frame, f Frame) bool {
	select {
	case replies <- f:
		return true
	case <-ctx.Done():
		return false
	}
}

func detailOf(err error) *ErrorDetail {
	d := errorBody(err).Error
	return &d
}
