package audio_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	audio "github.com/cadencelab/cadence/internal/domain/audio"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeSource struct {
	ch   chan audio.Chunk
	mime string

	mu     sync.Mutex
	closed bool
}

func newFakeSource(mime string) *fakeSource {
	return &fakeSource{ch: make(chan audio.Chunk, 16), mime: mime}
}

func (s *fakeSource) Chunks() <-chan audio.Chunk { return s.ch }
func (s *fakeSource) MIMEType() string           { return s.mime }

func (s *fakeSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
	return nil
}

func (s *fakeSource) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeDecoder struct {
	pcm audio.PCM
	err error

	gotData []byte
	gotMime string
}

func (d *fakeDecoder) Decode(_ context.Context, data []byte, mime string) (audio.PCM, error) {
	d.gotData = data
	d.gotMime = mime
	if d.err != nil {
		return audio.PCM{}, d.err
	}
	return d.pcm, nil
}

func TestCapture(t *testing.T) {
	ctx := context.Background()

	Convey("Given a capture over a fake source", t, func() {
		src := newFakeSource("audio/webm")
		dec := &fakeDecoder{pcm: audio.PCM{
			SampleRate: 8000,
			Channels:   [][]float64{make([]float64, 800)},
		}}
		c := audio.NewCapture(src, dec)

		Convey("Stop before Start is rejected", func() {
			_, err := c.Stop(ctx)
			So(errors.Is(err, audio.ErrCaptureNotStarted), ShouldBeTrue)
		})

		Convey("When chunks are delivered and the capture stops", func() {
			So(c.Start(ctx), ShouldBeNil)
			src.ch <- audio.Chunk("abc")
			src.ch <- audio.Chunk("def")

			rec, err := c.Stop(ctx)

			Convey("Then the assembled bytes were decoded and re-encoded as WAV", func() {
				So(err, ShouldBeNil)
				So(string(dec.gotData), ShouldEqual, "abcdef")
				So(dec.gotMime, ShouldEqual, "audio/webm")
				So(rec.Encoded, ShouldBeTrue)
				So(rec.MIMEType, ShouldEqual, "audio/wav")
				So(audio.IsWAV(rec.Bytes), ShouldBeTrue)
				So(len(rec.Bytes), ShouldEqual, 44+800*2)
			})

			Convey("And the source tracks were released", func() {
				So(src.isClosed(), ShouldBeTrue)
			})

			Convey("And a second Stop is rejected", func() {
				_, err := c.Stop(ctx)
				So(errors.Is(err, audio.ErrCaptureStopped), ShouldBeTrue)
			})
		})

		Convey("A second Start is rejected", func() {
			So(c.Start(ctx), ShouldBeNil)
			So(errors.Is(c.Start(ctx), audio.ErrCaptureStarted), ShouldBeTrue)
			_, _ = c.Stop(ctx)
		})

		Convey("Stopping with no chunks yields a header-only recording", func() {
			dec.pcm = audio.PCM{SampleRate: 44100, Channels: [][]float64{{}}}
			So(c.Start(ctx), ShouldBeNil)

			rec, err := c.Stop(ctx)
			So(err, ShouldBeNil)
			So(rec.Encoded, ShouldBeTrue)
			So(len(rec.Bytes), ShouldEqual, 44)
		})
	})

	Convey("Given a decoder that fails", t, func() {
		src := newFakeSource("audio/ogg")
		dec := &fakeDecoder{err: errors.New("unsupported codec")}
		c := audio.NewCapture(src, dec)

		So(c.Start(ctx), ShouldBeNil)
		src.ch <- audio.Chunk("raw-opus-bytes")

		rec, err := c.Stop(ctx)

		Convey("The recording keeps the captured encoding instead of failing", func() {
			So(err, ShouldBeNil)
			So(rec.Encoded, ShouldBeFalse)
			So(string(rec.Bytes), ShouldEqual, "raw-opus-bytes")
			So(rec.MIMEType, ShouldEqual, "audio/ogg")
		})

		Convey("The source is still released", func() {
			So(src.isClosed(), ShouldBeTrue)
		})
	})
}
