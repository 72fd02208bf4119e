package mask

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidImage reports a source image the engine refuses to load.
	ErrInvalidImage = errors.New("invalid source image")
	// ErrNoActiveSession is returned by operations that need a loaded source.
	ErrNoActiveSession = errors.New("no active mask session")
)

// InvalidImageError describes why a source image was rejected.
type InvalidImageError struct {
	Width  int
	Height int
	Reason string
}

func (e *InvalidImageError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%v: %dx%d", ErrInvalidImage, e.Width, e.Height)
	}
	return fmt.Sprintf("%v: %dx%d: %s", ErrInvalidImage, e.Width, e.Height, e.Reason)
}

func (e *InvalidImageError) Unwrap() error { return ErrInvalidImage }
