package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/prereqgraph/pkg/buildinfo"
	perrors "github.com/matzehuels/prereqgraph/pkg/errors"
	"github.com/matzehuels/prereqgraph/pkg/graph"
	"github.com/matzehuels/prereqgraph/pkg/pipeline"
	"github.com/matzehuels/prereqgraph/pkg/session"
)

const maxBodyBytes = 1 << 20

// Drag phases accepted by the drag endpoint and the stream.
const (
	PhaseStart = "start"
	PhaseMove  = "move"
	PhaseEnd   = "end"
)

// SessionInfo summarizes a running session.
type SessionInfo struct {
	ID         string `json:"id"`
	Department string `json:"department"`
	Nodes      int    `json:"nodes"`
	Streams    int    `json:"streams"`
}

// SessionResponse is returned when a session is created or read.
type SessionResponse struct {
	ID     string       `json:"id"`
	Layout graph.Layout `json:"layout"`
}

// TickRequest asks for count simulation ticks. A zero count means one.
type TickRequest struct {
	Count int `json:"count"`
}

// TickResponse reports the layout after a tick request.
type TickResponse struct {
	Ran    int          `json:"ran"`
	Active bool         `json:"active"`
	Layout graph.Layout `json:"layout"`
}

// DragRequest is one pointer event for a node.
type DragRequest struct {
	Phase string  `json:"phase"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// DragResponse reports the layout after a drag event. Column is set for
// the end phase only.
type DragResponse struct {
	Node   string       `json:"node"`
	Phase  string       `json:"phase"`
	Column *int         `json:"column,omitempty"`
	Layout graph.Layout `json:"layout"`
}

// Handler returns the HTTP handler for the API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.instrument)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, struct {
			Status string         `json:"status"`
			Build  buildinfo.Info `json:"build"`
		}{"ok", buildinfo.Get()})
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api/sessions", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Post("/", s.handleCreate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGet)
			r.Delete("/", s.handleDelete)
			r.Post("/ticks", s.handleTicks)
			r.Post("/nodes/{node}/drag", s.handleDrag)
			r.Get("/stream", s.handleStream)
			r.Get("/svg", s.handleSVG)
		})
	})
	return r
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sessions": s.list()})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var opts pipeline.Options
	if err := decodeBody(r, &opts); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.admit(&opts); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		s.writeError(w, r, err)
		return
	}

	rec, err := session.New(opts, s.cfg.SessionTTL)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ls, ds, err := s.runner.NewSession(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.Set(r.Context(), rec); err != nil {
		s.writeError(w, r, perrors.Wrap(perrors.ErrCodeInternal, err, "save session"))
		return
	}
	e, err := s.register(newLive(rec.ID, ds.Department, ls, s.logger))
	if err != nil {
		_ = s.store.Delete(r.Context(), rec.ID)
		s.writeError(w, r, err)
		return
	}

	var snap graph.Layout
	if err := e.live.do(r.Context(), func() { snap = e.live.snapshot() }); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("session created", "session", rec.ID, "department", ds.Department, "nodes", e.nodes)
	writeJSON(w, http.StatusCreated, SessionResponse{ID: rec.ID, Layout: snap})
}

// admit applies server policy to client-supplied options.
func (s *Server) admit(opts *pipeline.Options) error {
	opts.Logger = s.logger
	opts.Refresh = false
	if opts.Input != "" && !isRemote(opts.Input) && !s.cfg.AllowLocalFiles {
		return perrors.New(perrors.ErrCodeInvalidInput, "input must be an http(s) URL")
	}
	if opts.Input == "" && opts.CatalogURL == "" {
		opts.CatalogURL = s.cfg.CatalogURL
	}
	return nil
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	e, err := s.lookup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var snap graph.Layout
	if err := e.live.do(r.Context(), func() { snap = e.live.snapshot() }); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{ID: e.live.id, Layout: snap})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.remove(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("session deleted", "session", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTicks(w http.ResponseWriter, r *http.Request) {
	var req TickRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	e, err := s.lookup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp, err := s.tick(r.Context(), e, req.Count)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) tick(ctx context.Context, e *entry, count int) (TickResponse, error) {
	if count < 0 || count > s.cfg.MaxTicksPerRequest {
		return TickResponse{}, perrors.New(perrors.ErrCodeInvalidInput, "count must be between 0 and %d", s.cfg.MaxTicksPerRequest)
	}
	if count == 0 {
		count = 1
	}
	var resp TickResponse
	err := e.live.do(ctx, func() {
		for range count {
			e.live.s.Tick()
		}
		e.live.broadcast()
		resp = TickResponse{Ran: count, Active: e.live.s.Active(), Layout: e.live.snapshot()}
	})
	return resp, err
}

func (s *Server) handleDrag(w http.ResponseWriter, r *http.Request) {
	node := chi.URLParam(r, "node")
	if err := perrors.ValidateNodeID(node); err != nil {
		s.writeError(w, r, err)
		return
	}
	var req DragRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	e, err := s.lookup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp, err := s.drag(r.Context(), e, node, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// drag applies one pointer event on the session loop. A completed drag is
// recorded as a placement so that a restored session keeps it.
func (s *Server) drag(ctx context.Context, e *entry, node string, req DragRequest) (DragResponse, error) {
	resp := DragResponse{Node: node, Phase: req.Phase}
	if req.Phase == PhaseEnd {
		e.live.recordMu.Lock()
		defer e.live.recordMu.Unlock()
	}
	var opErr error
	err := e.live.do(ctx, func() {
		ctrl := e.live.ctrl
		switch req.Phase {
		case PhaseStart:
			opErr = ctrl.DragStart(node, req.X, req.Y)
		case PhaseMove:
			opErr = ctrl.DragMove(node, req.X, req.Y)
		case PhaseEnd:
			var col int
			col, opErr = ctrl.DragEnd(node, req.X, req.Y)
			if opErr == nil {
				resp.Column = &col
			}
		default:
			opErr = perrors.New(perrors.ErrCodeInvalidInput, "unknown drag phase %q", req.Phase)
		}
		if opErr == nil {
			e.live.broadcast()
			resp.Layout = e.live.snapshot()
		}
	})
	if err != nil {
		return resp, err
	}
	if opErr != nil {
		return resp, opErr
	}
	if resp.Column != nil {
		if err := s.persistPlacement(ctx, e.live.id, node, *resp.Column); err != nil {
			s.logger.Warn("placement not persisted", "session", e.live.id, "node", node, "error", err)
		}
	}
	return resp, nil
}

func (s *Server) persistPlacement(ctx context.Context, id, node string, col int) error {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return session.ErrNotFound
	}
	rec.Place(node, col)
	rec.Touch(s.cfg.SessionTTL)
	return s.store.Set(ctx, rec)
}

func (s *Server) handleSVG(w http.ResponseWriter, r *http.Request) {
	e, err := s.lookup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	engine := r.URL.Query().Get("engine")
	if engine == "" {
		engine = pipeline.EngineNative
	}
	if err := pipeline.ValidateEngine(engine); err != nil {
		s.writeError(w, r, err)
		return
	}
	opts := pipeline.Options{HideLabels: !queryBool(r, "labels", true), ShowColumns: queryBool(r, "columns", false)}

	var snap graph.Layout
	if err := e.live.do(r.Context(), func() { snap = e.live.snapshot() }); err != nil {
		s.writeError(w, r, err)
		return
	}
	svg, err := pipeline.RenderSVG(r.Context(), snap, engine, opts.RenderOptions())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(svg)
}

// decodeBody decodes a JSON request body into v. An empty body leaves v
// unchanged.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return perrors.Wrap(perrors.ErrCodeInvalidInput, err, "decode request body")
	}
	return nil
}

func queryBool(r *http.Request, key string, def bool) bool {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func isRemote(input string) bool {
	return strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://")
}

// instrument logs requests and records them in the metrics registry under
// their route pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		d := time.Since(start)
		if s.metrics != nil {
			s.metrics.RecordHTTPRequest(r.Method, route, status, d)
		}
		s.logger.Debug("request",
			"method", r.Method,
			"route", route,
			"status", status,
			"duration", d,
			"request_id", middleware.GetReqID(r.Context()))
	})
}
