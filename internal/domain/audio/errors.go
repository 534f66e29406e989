package audio

import "errors"

// Sentinel kinds for capture errors.
var (
	ErrCaptureStarted    = errors.New("capture already started")
	ErrCaptureNotStarted = errors.New("capture not started")
	ErrCaptureStopped    = errors.New("capture already stopped")
)
