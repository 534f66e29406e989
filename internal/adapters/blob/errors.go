package blob

import "errors"

// Blob store errors.
var (
	ErrBlobNotFound     = errors.New("blob not found")
	ErrInvalidKey       = errors.New("invalid blob key")
	ErrInvalidSignature = errors.New("invalid or expired signature")
)
