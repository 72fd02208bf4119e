package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/flyermask/internal/inpaint"
	"github.com/example/flyermask/internal/mask"
	"github.com/example/flyermask/internal/render"
	"github.com/example/flyermask/internal/script"
	"github.com/example/flyermask/internal/workflow"
)

// State describes a session.
type State struct {
	ID         string  `json:"id"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Generation uint64  `json:"generation"`
	Zoom       float64 `json:"zoom"`
	Radius     float64 `json:"radius"`
	Cursor     int     `json:"cursor"`
	History    int     `json:"history"`
	Coverage   int     `json:"coverage"`
	CanUndo    bool    `json:"can_undo"`
	CanRedo    bool    `json:"can_redo"`
}

// StrokeRequest is one complete stroke in viewport coordinates.
type StrokeRequest struct {
	Mode   string      `json:"mode"`
	Radius float64     `json:"radius,omitempty"`
	Zoom   float64     `json:"zoom,omitempty"`
	Points [][]float64 `json:"points"`
}

// InpaintRequest carries the instruction for a submission.
type InpaintRequest struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	SourceURL      string `json:"source_url,omitempty"`
	Seed           *int   `json:"seed,omitempty"`
}

type historyResponse struct {
	Moved bool  `json:"moved"`
	State State `json:"state"`
}

func stateOf(sess *session) State {
	e := sess.engine
	st := State{
		ID:       sess.id,
		Zoom:     e.Zoom(),
		Radius:   e.BrushRadius(),
		Cursor:   e.Cursor(),
		History:  e.HistoryLen(),
		Coverage: e.Coverage(),
		CanUndo:  e.CanUndo(),
		CanRedo:  e.CanRedo(),
	}
	if h := e.Session(); h != nil {
		st.Width, st.Height, st.Generation = h.Width, h.Height, h.Generation
	}
	return st
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func writePNG(w http.ResponseWriter, img image.Image) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}

// statusFor maps engine and collaborator errors to HTTP codes.
func statusFor(err error) int {
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, mask.ErrInvalidImage):
		return http.StatusUnprocessableEntity
	case errors.Is(err, mask.ErrNoActiveSession):
		return http.StatusNotFound
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, inpaint.ErrEmptyPrompt):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

// withSession resolves {id} and runs fn with the session locked.
func (s *Server) withSession(w http.ResponseWriter, r *http.Request, fn func(*session)) {
	sess, ok := s.lookup(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown session %q", chi.URLParam(r, "id")))
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	fn(sess)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.MaxUpload))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	// The header is checked first so an oversized image is refused before
	// its pixel buffer is allocated.
	e := s.newEngine()
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode image: %w", err))
		return
	}
	if err := mask.CheckDimensions(cfg.Width, cfg.Height, e.MaxDimension()); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode image: %w", err))
		return
	}
	if _, err := e.LoadSource(img); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	sess := s.add(e)
	s.log.Info("session created", zap.String("id", sess.id),
		zap.Int("width", e.Session().Width), zap.Int("height", e.Session().Height))
	writeJSON(w, http.StatusCreated, stateOf(sess))
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session) {
		writeJSON(w, http.StatusOK, stateOf(sess))
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.remove(id) {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown session %q", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseMode(s string) (mask.Mode, error) {
	switch s {
	case "", "paint":
		return mask.Paint, nil
	case "erase":
		return mask.Erase, nil
	}
	return 0, fmt.Errorf("unknown mode %q", s)
}

func (s *Server) handleStroke(w http.ResponseWriter, r *http.Request) {
	var req StrokeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.opts.MaxUpload)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	mode, err := parseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sc := script.Stroke(mode, req.Radius, req.Points)
	sc.Zoom = req.Zoom
	s.applyScript(w, r, sc)
}

func (s *Server) handleScript(w http.ResponseWriter, r *http.Request) {
	sc, err := script.Parse(http.MaxBytesReader(w, r.Body, s.opts.MaxUpload))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.applyScript(w, r, sc)
}

func (s *Server) applyScript(w http.ResponseWriter, r *http.Request, sc *script.Script) {
	if err := sc.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.withSession(w, r, func(sess *session) {
		if err := sc.Apply(sess.engine); err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, stateOf(sess))
	})
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session) {
		moved := sess.engine.Undo()
		writeJSON(w, http.StatusOK, historyResponse{Moved: moved, State: stateOf(sess)})
	})
}

func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session) {
		moved := sess.engine.Redo()
		writeJSON(w, http.StatusOK, historyResponse{Moved: moved, State: stateOf(sess)})
	})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session) {
		if err := sess.engine.Clear(); err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, stateOf(sess))
	})
}

func (s *Server) handleZoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Zoom float64 `json:"zoom"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.withSession(w, r, func(sess *session) {
		sess.engine.SetZoom(req.Zoom)
		writeJSON(w, http.StatusOK, stateOf(sess))
	})
}

func (s *Server) handleMask(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session) {
		m, err := sess.engine.ExportBinaryMask()
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writePNG(w, m)
	})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session) {
		e := sess.engine
		if !e.Loaded() {
			writeError(w, http.StatusNotFound, mask.ErrNoActiveSession)
			return
		}
		writePNG(w, render.Overlay(e.Source(), e.Mask(), s.opts.Tint))
	})
}

func (s *Server) handleInpaint(w http.ResponseWriter, r *http.Request) {
	if s.submit == nil {
		writeError(w, http.StatusNotImplemented, errors.New("inpainting is not configured"))
		return
	}
	var req InpaintRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	// Export under the lock; the submission itself runs unlocked so the
	// session stays editable while the service works.
	var job workflow.Job
	var exportErr error
	found := false
	s.withSession(w, r, func(sess *session) {
		found = true
		m, err := sess.engine.ExportBinaryMask()
		if err != nil {
			exportErr = err
			return
		}
		job = workflow.Job{
			Source:         sess.engine.Source(),
			SourceURL:      req.SourceURL,
			Mask:           m,
			Owner:          r.Header.Get("X-User-ID"),
			Prompt:         req.Prompt,
			NegativePrompt: req.NegativePrompt,
			Seed:           req.Seed,
		}
	})
	if !found {
		return
	}
	if exportErr != nil {
		writeError(w, statusFor(exportErr), exportErr)
		return
	}

	out, err := s.submit.Submit(r.Context(), job)
	if err != nil {
		s.log.Warn("inpaint failed", zap.String("id", chi.URLParam(r, "id")), zap.Error(err))
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
