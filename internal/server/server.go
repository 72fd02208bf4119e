// Package server exposes mask editing sessions over HTTP. Each session owns
// one mask.Engine; requests against a session are serialised by its mutex.
package server

import (
	"context"
	"errors"
	"image/color"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/flyermask/internal/mask"
	"github.com/example/flyermask/internal/render"
	"github.com/example/flyermask/internal/workflow"
)

const (
	DefaultSessionTTL = 30 * time.Minute
	DefaultMaxUpload  = 20 << 20
)

// Submitter runs inpaint jobs.
type Submitter interface {
	Submit(ctx context.Context, job workflow.Job) (*workflow.Outcome, error)
}

// Options configures a Server. Zero values take defaults.
type Options struct {
	SessionTTL   time.Duration
	MaxUpload    int64
	MaxDimension int
	BrushRadius  float64
	ZoomStep     float64
	Tint         color.RGBA
}

type session struct {
	mu       sync.Mutex
	id       string
	engine   *mask.Engine
	lastUsed time.Time
}

// Server holds the live sessions.
type Server struct {
	opts   Options
	log    *zap.Logger
	submit Submitter
	files  http.Handler
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

// New creates a Server. submit and files may be nil, which disables the
// inpaint and file routes.
func New(opts Options, submit Submitter, files http.Handler, log *zap.Logger) *Server {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}
	if opts.MaxUpload <= 0 {
		opts.MaxUpload = DefaultMaxUpload
	}
	if opts.Tint == (color.RGBA{}) {
		opts.Tint = render.DefaultTint
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		opts:     opts,
		log:      log,
		submit:   submit,
		files:    files,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

func (s *Server) newEngine() *mask.Engine {
	var opts []mask.Option
	if s.opts.MaxDimension > 0 {
		opts = append(opts, mask.WithMaxDimension(s.opts.MaxDimension))
	}
	if s.opts.BrushRadius > 0 {
		opts = append(opts, mask.WithBrushRadius(s.opts.BrushRadius))
	}
	if s.opts.ZoomStep > 0 {
		opts = append(opts, mask.WithZoomStep(s.opts.ZoomStep))
	}
	return mask.New(opts...)
}

func (s *Server) add(e *mask.Engine) *session {
	sess := &session{id: uuid.NewString(), engine: e, lastUsed: s.now()}
	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
	return sess
}

// lookup returns the session and refreshes its idle timer.
func (s *Server) lookup(id string) (*session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if ok {
		sess.lastUsed = s.now()
	}
	return sess, ok
}

func (s *Server) remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// Len returns the number of live sessions.
func (s *Server) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Expire drops sessions idle for longer than the TTL and returns how many
// were removed.
func (s *Server) Expire() int {
	cutoff := s.now().Add(-s.opts.SessionTTL)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, sess := range s.sessions {
		if sess.lastUsed.Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

func (s *Server) janitor(ctx context.Context) {
	interval := s.opts.SessionTTL / 4
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.Expire(); n > 0 {
				s.log.Info("expired idle sessions", zap.Int("count", n), zap.Int("live", s.Len()))
			}
		}
	}
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLog)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.files != nil {
		r.Handle("/files/*", http.StripPrefix("/files", s.files))
	}

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleState)
			r.Delete("/", s.handleDelete)
			r.Post("/strokes", s.handleStroke)
			r.Post("/script", s.handleScript)
			r.Post("/undo", s.handleUndo)
			r.Post("/redo", s.handleRedo)
			r.Post("/clear", s.handleClear)
			r.Put("/zoom", s.handleZoom)
			r.Get("/mask.png", s.handleMask)
			r.Get("/preview.png", s.handlePreview)
			r.Post("/inpaint", s.handleInpaint)
		})
	})
	return r
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// Serve handles requests on ln until ctx is cancelled, then shuts down
// gracefully. The idle-session janitor runs for the same lifetime.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	hs := &http.Server{
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	jctx, stop := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.janitor(jctx)
	}()
	defer func() {
		stop()
		wg.Wait()
	}()

	errc := make(chan error, 1)
	go func() { errc <- hs.Serve(ln) }()

	s.log.Info("serving", zap.String("addr", ln.Addr().String()))
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := hs.Shutdown(shutCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}
