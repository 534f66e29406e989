package session

import "errors"

// Sentinel kinds for lifecycle errors. These allow errors.Is from callers,
// which is how the HTTP layer picks status codes and user-facing messages.
var (
	ErrUploadInFlight   = errors.New("upload already in flight")
	ErrAnalysisInFlight = errors.New("analysis already in flight")
	ErrAlreadyUploaded  = errors.New("recording already uploaded")
	ErrNotUploaded      = errors.New("recording not uploaded yet")
	ErrAlreadyAnalyzed  = errors.New("session already analyzed")

	// Classifier failure kinds. The classifier adapter wraps its errors
	// with one of these so callers can tell "retry later" apart from
	// "the audio itself was rejected".
	ErrAudioRejected         = errors.New("audio rejected by classifier")
	ErrClassifierUnavailable = errors.New("classifier unavailable")
)
