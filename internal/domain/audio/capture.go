package audio

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"
)

// Chunk is one piece of encoded audio delivered by a media source.
type Chunk []byte

// Source abstracts the platform media stream so capture logic can run
// against a fake in tests. Chunks delivers encoded audio until the source
// stops; the channel must be closed once Close has released the underlying
// tracks.
type Source interface {
	Chunks() <-chan Chunk
	MIMEType() string
	// Close releases the underlying media tracks. Idempotent.
	Close() error
}

// Decoder abstracts the platform audio decoding capability: encoded bytes
// in whatever codec the source produced, decoded float PCM out.
type Decoder interface {
	Decode(ctx context.Context, data []byte, mimeType string) (PCM, error)
}

// Recording is the finalized output of one capture. When normalization
// succeeded, Bytes is a canonical WAV buffer; otherwise Bytes preserves the
// originally captured encoding and Encoded is false.
type Recording struct {
	Bytes    []byte
	MIMEType string
	Duration time.Duration
	Encoded  bool
}

// Capture owns one microphone stream for the duration of one recording.
// The source is exclusively held between Start and Stop and fully released
// on Stop regardless of whether encoding succeeds.
type Capture struct {
	src Source
	dec Decoder

	mu      sync.Mutex
	started bool
	stopped bool
	buf     bytes.Buffer
	drained chan struct{}
}

// NewCapture wraps a live source and a decoder into a capture session.
func NewCapture(src Source, dec Decoder) *Capture {
	return &Capture{
		src:     src,
		dec:     dec,
		drained: make(chan struct{}),
	}
}

// Start begins buffering chunks from the source. It may be called once.
func (c *Capture) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return ErrCaptureStarted
	}
	c.started = true

	go func() {
		defer close(c.drained)
		for chunk := range c.src.Chunks() {
			c.mu.Lock()
			c.buf.Write(chunk)
			c.mu.Unlock()
		}
	}()
	return nil
}

// Stop finalizes the capture: the source is released, buffered chunks are
// assembled, and the result is normalized to canonical WAV. Stopping
// mid-capture is always safe and keeps whatever audio was delivered so far.
// A decode failure is not fatal: the recording is preserved in its captured
// encoding instead of being discarded.
func (c *Capture) Stop(ctx context.Context) (Recording, error) {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return Recording{}, ErrCaptureNotStarted
	}
	if c.stopped {
		c.mu.Unlock()
		return Recording{}, ErrCaptureStopped
	}
	c.stopped = true
	c.mu.Unlock()

	// Release the tracks first so a later attempt can re-acquire the
	// device even if decoding goes wrong below.
	if err := c.src.Close(); err != nil {
		return Recording{}, fmt.Errorf("release source: %w", err)
	}

	select {
	case <-c.drained:
	case <-ctx.Done():
		return Recording{}, fmt.Errorf("waiting for source drain: %w", ctx.Err())
	}

	c.mu.Lock()
	captured := make([]byte, c.buf.Len())
	copy(captured, c.buf.Bytes())
	c.mu.Unlock()

	pcm, err := c.dec.Decode(ctx, captured, c.src.MIMEType())
	if err != nil {
		// Best-effort normalization only: keep the original encoding.
		return Recording{
			Bytes:    captured,
			MIMEType: c.src.MIMEType(),
			Encoded:  false,
		}, nil
	}

	return Recording{
		Bytes:    EncodeWAV(pcm),
		MIMEType: "audio/wav",
		Duration: pcm.Duration(),
		Encoded:  true,
	}, nil
}
