// Package script replays recorded mask edits described in YAML.
//
//	zoom: 1
//	radius: 20
//	steps:
//	  - paint: [[50, 50], [60, 60]]
//	  - erase: [[55, 55]]
//	    radius: 5
//	  - undo: 1
//	  - clear: true
package script

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/example/flyermask/internal/mask"
)

// Script is an ordered list of edits applied to a loaded engine.
type Script struct {
	Zoom   float64 `yaml:"zoom,omitempty"`
	Radius float64 `yaml:"radius,omitempty"`
	Steps  []Step  `yaml:"steps"`
}

// Step holds exactly one action. Radius may accompany a stroke or stand
// alone to change the brush for later steps.
type Step struct {
	Paint  [][]float64 `yaml:"paint,omitempty"`
	Erase  [][]float64 `yaml:"erase,omitempty"`
	Radius float64     `yaml:"radius,omitempty"`
	Undo   int         `yaml:"undo,omitempty"`
	Redo   int         `yaml:"redo,omitempty"`
	Clear  bool        `yaml:"clear,omitempty"`
	Zoom   float64     `yaml:"zoom,omitempty"`
}

// Parse decodes and validates a script.
func Parse(r io.Reader) (*Script, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var s Script
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty script")
		}
		return nil, fmt.Errorf("decode script: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Stroke builds a single-stroke script, used for edits given on the command line.
func Stroke(mode mask.Mode, radius float64, points [][]float64) *Script {
	st := Step{Radius: radius}
	if mode == mask.Erase {
		st.Erase = points
	} else {
		st.Paint = points
	}
	return &Script{Steps: []Step{st}}
}

// Validate checks that each step is well formed.
func (s *Script) Validate() error {
	if s.Zoom < 0 {
		return fmt.Errorf("zoom must be positive")
	}
	if s.Radius < 0 {
		return fmt.Errorf("radius must be positive")
	}
	for i, st := range s.Steps {
		if err := st.validate(); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return nil
}

func (st Step) actions() int {
	n := 0
	if st.Paint != nil {
		n++
	}
	if st.Erase != nil {
		n++
	}
	if st.Undo != 0 {
		n++
	}
	if st.Redo != 0 {
		n++
	}
	if st.Clear {
		n++
	}
	if st.Zoom != 0 {
		n++
	}
	return n
}

func (st Step) validate() error {
	switch n := st.actions(); {
	case n > 1:
		return fmt.Errorf("more than one action")
	case n == 0 && st.Radius == 0:
		return fmt.Errorf("no action")
	}
	if st.Radius < 0 || st.Zoom < 0 || st.Undo < 0 || st.Redo < 0 {
		return fmt.Errorf("negative value")
	}
	path := st.Paint
	if st.Erase != nil {
		path = st.Erase
	}
	if st.Paint != nil || st.Erase != nil {
		if len(path) == 0 {
			return fmt.Errorf("stroke needs at least one point")
		}
		for j, p := range path {
			if len(p) != 2 {
				return fmt.Errorf("point %d: want [x, y], got %d values", j+1, len(p))
			}
		}
	}
	return nil
}

// Apply replays the script. Each path becomes one committed stroke.
func (s *Script) Apply(e *mask.Engine) error {
	if !e.Loaded() {
		return mask.ErrNoActiveSession
	}
	if s.Zoom > 0 {
		e.SetZoom(s.Zoom)
	}
	if s.Radius > 0 {
		e.SetBrushRadius(s.Radius)
	}
	for _, st := range s.Steps {
		if st.Radius > 0 {
			e.SetBrushRadius(st.Radius)
		}
		switch {
		case st.Paint != nil:
			replay(e, mask.Paint, st.Paint)
		case st.Erase != nil:
			replay(e, mask.Erase, st.Erase)
		case st.Undo > 0:
			for i := 0; i < st.Undo; i++ {
				e.Undo()
			}
		case st.Redo > 0:
			for i := 0; i < st.Redo; i++ {
				e.Redo()
			}
		case st.Clear:
			if err := e.Clear(); err != nil {
				return err
			}
		case st.Zoom > 0:
			e.SetZoom(st.Zoom)
		}
	}
	return nil
}

func replay(e *mask.Engine, mode mask.Mode, path [][]float64) {
	e.BeginStroke(mask.Pt(path[0][0], path[0][1]), mode)
	for _, p := range path[1:] {
		e.ExtendStroke(mask.Pt(p[0], p[1]))
	}
	e.EndStroke()
}
