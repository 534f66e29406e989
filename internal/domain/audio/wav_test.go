package audio

import (
	"encoding/binary"
	"math"
	"testing"
	"time"
)

func sine(frames int, sampleRate int, freq float64) []float64 {
	out := make([]float64, frames)
	for i := range out {
		out[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

func TestEncodeWAVHeaderRoundtrip(t *testing.T) {
	cases := []struct {
		name       string
		sampleRate int
		channels   int
		frames     int
	}{
		{"mono 8k", 8000, 1, 800},
		{"stereo 44.1k", 44100, 2, 4410},
		{"mono 16k single frame", 16000, 1, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			chans := make([][]float64, tc.channels)
			for ch := range chans {
				chans[ch] = sine(tc.frames, tc.sampleRate, 440)
			}
			data := EncodeWAV(PCM{SampleRate: tc.sampleRate, Channels: chans})

			info, err := DecodeInfo(data)
			if err != nil {
				t.Fatalf("DecodeInfo failed: %v", err)
			}
			if info.SampleRate != tc.sampleRate {
				t.Errorf("sample rate = %d, want %d", info.SampleRate, tc.sampleRate)
			}
			if info.Channels != tc.channels {
				t.Errorf("channels = %d, want %d", info.Channels, tc.channels)
			}
			wantBytes := tc.frames * tc.channels * 2
			if info.DataBytes != wantBytes {
				t.Errorf("data bytes = %d, want %d", info.DataBytes, wantBytes)
			}
			if len(data) != 44+wantBytes {
				t.Errorf("buffer length = %d, want %d", len(data), 44+wantBytes)
			}
		})
	}
}

func TestEncodeWAVClampsOutOfRange(t *testing.T) {
	// A sample of 2.0 must encode identically to 1.0; no wraparound.
	over := EncodeWAV(PCM{SampleRate: 8000, Channels: [][]float64{{2.0, -2.0}}})
	exact := EncodeWAV(PCM{SampleRate: 8000, Channels: [][]float64{{1.0, -1.0}}})

	if len(over) != len(exact) {
		t.Fatalf("buffer lengths differ: %d vs %d", len(over), len(exact))
	}
	for i := range over {
		if over[i] != exact[i] {
			t.Fatalf("byte %d differs: %x vs %x", i, over[i], exact[i])
		}
	}

	first := int16(binary.LittleEndian.Uint16(over[44:46]))
	if first != 32767 {
		t.Errorf("clamped positive sample = %d, want 32767", first)
	}
	second := int16(binary.LittleEndian.Uint16(over[46:48]))
	if second != -32767 {
		t.Errorf("clamped negative sample = %d, want -32767", second)
	}
}

func TestEncodeWAVEmptyInput(t *testing.T) {
	data := EncodeWAV(PCM{SampleRate: 44100, Channels: [][]float64{{}}})
	if len(data) != 44 {
		t.Fatalf("header-only buffer length = %d, want 44", len(data))
	}
	info, err := DecodeInfo(data)
	if err != nil {
		t.Fatalf("DecodeInfo failed: %v", err)
	}
	if info.DataBytes != 0 {
		t.Errorf("data bytes = %d, want 0", info.DataBytes)
	}
}

func TestEncodeWAVInterleavesChannels(t *testing.T) {
	left := []float64{0.25, 0.5}
	right := []float64{-0.25, -0.5}
	data := EncodeWAV(PCM{SampleRate: 8000, Channels: [][]float64{left, right}})

	want := []int16{
		int16(math.Round(0.25 * 32767)), int16(math.Round(-0.25 * 32767)),
		int16(math.Round(0.5 * 32767)), int16(math.Round(-0.5 * 32767)),
	}
	for i, w := range want {
		got := int16(binary.LittleEndian.Uint16(data[44+i*2 : 46+i*2]))
		if got != w {
			t.Errorf("sample %d = %d, want %d", i, got, w)
		}
	}
}

func TestThreeSecondsOfSilence(t *testing.T) {
	// 3s at 44.1kHz mono is the canonical end-to-end sizing case.
	frames := 3 * 44100
	data := EncodeWAV(PCM{SampleRate: 44100, Channels: [][]float64{make([]float64, frames)}})
	if want := 44 + frames*2; len(data) != want {
		t.Fatalf("buffer length = %d, want %d", len(data), want)
	}
	info, err := DecodeInfo(data)
	if err != nil {
		t.Fatalf("DecodeInfo failed: %v", err)
	}
	if info.Duration != 3*time.Second {
		t.Errorf("duration = %v, want 3s", info.Duration)
	}
}

func TestDecodeInfoRejectsGarbage(t *testing.T) {
	if _, err := DecodeInfo([]byte("too short")); err == nil {
		t.Error("expected error for short input")
	}
	bad := EncodeWAV(PCM{SampleRate: 8000, Channels: [][]float64{{0}}})
	bad[0] = 'X'
	if _, err := DecodeInfo(bad); err == nil {
		t.Error("expected error for corrupt RIFF marker")
	}
	if IsWAV(bad) {
		t.Error("IsWAV must reject corrupt header")
	}
}

func TestDecodeSamplesRoundtrip(t *testing.T) {
	src := sine(512, 8000, 200)
	data := EncodeWAV(PCM{SampleRate: 8000, Channels: [][]float64{src}})

	got, rate, err := DecodeSamples(data)
	if err != nil {
		t.Fatalf("DecodeSamples failed: %v", err)
	}
	if rate != 8000 {
		t.Errorf("sample rate = %d, want 8000", rate)
	}
	if len(got) != len(src) {
		t.Fatalf("frame count = %d, want %d", len(got), len(src))
	}
	for i := range got {
		if math.Abs(got[i]-src[i]) > 1.0/32767*2 {
			t.Fatalf("sample %d = %f, want ~%f", i, got[i], src[i])
		}
	}
}
