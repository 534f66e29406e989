// Package audio holds the pure audio primitives of the pipeline: canonical
// WAV encoding, waveform summarization, and the capture session that turns a
// chunked media source into a finished recording.
package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

const (
	headerSize    = 44
	bitsPerSample = 16
	bytesPerSamp  = bitsPerSample / 8
	pcmFormat     = 1
	maxInt16      = 32767
)

// wavHeader is the canonical 44-byte RIFF/WAVE header.
type wavHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // 36 + data bytes
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32  // SampleRate * NumChannels * 2
	BlockAlign    uint16  // NumChannels * 2
	BitsPerSample uint16  // always 16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // data bytes
}

// PCM is decoded multi-channel floating-point audio. All channel slices
// must be the same length.
type PCM struct {
	SampleRate int
	Channels   [][]float64
}

// Frames returns the per-channel sample count.
func (p PCM) Frames() int {
	if len(p.Channels) == 0 {
		return 0
	}
	return len(p.Channels[0])
}

// Duration returns the playback duration of the PCM data.
func (p PCM) Duration() time.Duration {
	if p.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(p.Frames()) / float64(p.SampleRate) * float64(time.Second))
}

// clampSample converts one float sample to a signed 16-bit value. Samples
// outside [-1, 1] are clamped first so out-of-range input can never wrap
// around; this is a correctness requirement, not an optimization.
func clampSample(x float64) int16 {
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}
	return int16(math.Round(x * maxInt16))
}

// EncodeWAV encodes decoded float audio into a canonical WAV buffer:
// 44-byte computed header followed by interleaved 16-bit little-endian PCM.
// The function is total over well-formed input; zero frames produce a
// header-only buffer.
func EncodeWAV(p PCM) []byte {
	channels := len(p.Channels)
	frames := p.Frames()
	dataBytes := uint32(frames * channels * bytesPerSamp)

	header := wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataBytes,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   pcmFormat,
		NumChannels:   uint16(channels),
		SampleRate:    uint32(p.SampleRate),
		ByteRate:      uint32(p.SampleRate * channels * bytesPerSamp),
		BlockAlign:    uint16(channels * bytesPerSamp),
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataBytes,
	}

	buf := bytes.NewBuffer(make([]byte, 0, headerSize+int(dataBytes)))
	// Writing a fixed-layout struct of sized integers cannot fail on a
	// bytes.Buffer.
	_ = binary.Write(buf, binary.LittleEndian, header)

	// Interleave: for frame i, channel 0..N-1 in order (WAVE block layout).
	samples := make([]int16, 0, frames*channels)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			samples = append(samples, clampSample(p.Channels[ch][i]))
		}
	}
	_ = binary.Write(buf, binary.LittleEndian, samples)

	return buf.Bytes()
}

// Info is the metadata read back from a canonical WAV header.
type Info struct {
	SampleRate int
	Channels   int
	DataBytes  int
	Duration   time.Duration
}

// DecodeInfo parses and validates a canonical WAV header.
func DecodeInfo(data []byte) (Info, error) {
	if len(data) < headerSize {
		return Info{}, fmt.Errorf("wav data too short: need %d bytes, got %d", headerSize, len(data))
	}

	var header wavHeader
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &header); err != nil {
		return Info{}, fmt.Errorf("read wav header: %w", err)
	}

	switch {
	case string(header.ChunkID[:]) != "RIFF":
		return Info{}, fmt.Errorf("invalid wav: missing RIFF header")
	case string(header.Format[:]) != "WAVE":
		return Info{}, fmt.Errorf("invalid wav: missing WAVE format")
	case string(header.Subchunk1ID[:]) != "fmt ":
		return Info{}, fmt.Errorf("invalid wav: missing fmt chunk")
	case string(header.Subchunk2ID[:]) != "data":
		return Info{}, fmt.Errorf("invalid wav: missing data chunk")
	case header.AudioFormat != pcmFormat:
		return Info{}, fmt.Errorf("unsupported audio format: %d", header.AudioFormat)
	case header.BitsPerSample != bitsPerSample:
		return Info{}, fmt.Errorf("unsupported bit depth: %d", header.BitsPerSample)
	case header.NumChannels == 0:
		return Info{}, fmt.Errorf("invalid wav: zero channels")
	case header.SampleRate == 0:
		return Info{}, fmt.Errorf("invalid wav: zero sample rate")
	}

	frames := int(header.Subchunk2Size) / (int(header.NumChannels) * bytesPerSamp)
	duration := time.Duration(float64(frames) / float64(header.SampleRate) * float64(time.Second))

	return Info{
		SampleRate: int(header.SampleRate),
		Channels:   int(header.NumChannels),
		DataBytes:  int(header.Subchunk2Size),
		Duration:   duration,
	}, nil
}

// IsWAV reports whether data starts with a valid canonical WAV header.
func IsWAV(data []byte) bool {
	_, err := DecodeInfo(data)
	return err == nil
}

// DecodeSamples reads the PCM payload of a canonical WAV back into float
// samples in [-1, 1], mixing all channels down to one by averaging.
func DecodeSamples(data []byte) ([]float64, int, error) {
	info, err := DecodeInfo(data)
	if err != nil {
		return nil, 0, err
	}
	payload := data[headerSize:]
	if len(payload) > info.DataBytes {
		payload = payload[:info.DataBytes]
	}

	frames := len(payload) / (info.Channels * bytesPerSamp)
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for ch := 0; ch < info.Channels; ch++ {
			off := (i*info.Channels + ch) * bytesPerSamp
			v := int16(binary.LittleEndian.Uint16(payload[off : off+2]))
			sum += float64(v) / maxInt16
		}
		out[i] = sum / float64(info.Channels)
	}
	return out, info.SampleRate, nil
}
