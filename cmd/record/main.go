// Command record drives a full practice session against a running
// service: it captures audio from a file (or a generated tone), uploads
// the recording, requests analysis, and prints the result.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/cadencelab/cadence/internal/domain/audio"
	"github.com/cadencelab/cadence/pkg/metrics"
)

// Default configuration constants.
const (
	defaultBaseURL     = "http://localhost:8090"
	defaultToneSeconds = 3
	defaultTimeout     = 30 * time.Second
	pollInterval       = 250 * time.Millisecond
	chunkSize          = 32 * 1024
)

func main() {
	var (
		baseURL = flag.String("url", defaultBaseURL, "Base URL of the service")
		owner   = flag.String("owner", "local-user", "Owner id for the session")
		prompt  = flag.String("prompt", "", "Prompt id for the session")
		file    = flag.String("file", "", "WAV file to upload (default: a generated tone)")
		timeout = flag.Duration("timeout", defaultTimeout, "Overall timeout")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, *baseURL, *owner, *prompt, *file); err != nil {
		os.Stderr.WriteString("record failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run(ctx context.Context, baseURL, owner, prompt, file string) error {
	rec, err := captureRecording(ctx, file)
	if err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	fmt.Printf("captured %d bytes (%s, %s)\n", len(rec.Bytes), rec.MIMEType, rec.Duration)

	client := &client{baseURL: baseURL, http: http.DefaultClient}

	sessionID, err := client.createSession(ctx, owner, prompt)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	fmt.Printf("session %s created\n", sessionID)

	if err := client.upload(ctx, sessionID, rec.Bytes, rec.MIMEType); err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	fmt.Println("recording uploaded, analysis queued")

	result, err := client.pollAnalysis(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("poll analysis: %w", err)
	}

	fmt.Printf("stutter rate: %.1f%%\n", result.StutterRate)
	fmt.Printf("percentages: %+v\n", result.Percentages)
	return nil
}

// captureRecording runs the capture pipeline over a file-backed source,
// or a synthesized tone when no file is given.
func captureRecording(ctx context.Context, file string) (audio.Recording, error) {
	var src audio.Source
	if file != "" {
		f, err := newFileSource(file)
		if err != nil {
			return audio.Recording{}, err
		}
		src = f
	} else {
		src = newToneSource(defaultToneSeconds)
	}

	capture := audio.NewCapture(src, wavDecoder{})
	if err := capture.Start(ctx); err != nil {
		return audio.Recording{}, err
	}

	start := time.Now()
	rec, err := capture.Stop(ctx)
	if err != nil {
		return audio.Recording{}, err
	}
	metrics.RecordEncodeDuration(float64(time.Since(start).Milliseconds()))
	return rec, nil
}

// fileSource streams a file's bytes through the capture pipeline in
// fixed-size chunks, the way a microphone delivers buffers.
type fileSource struct {
	chunks chan audio.Chunk
	mime   string
}

func newFileSource(path string) (*fileSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	mime := "application/octet-stream"
	if audio.IsWAV(data) {
		mime = "audio/wav"
	}

	s := &fileSource{chunks: make(chan audio.Chunk), mime: mime}
	go func() {
		defer close(s.chunks)
		for len(data) > 0 {
			n := chunkSize
			if n > len(data) {
				n = len(data)
			}
			s.chunks <- audio.Chunk(data[:n])
			data = data[n:]
		}
	}()
	return s, nil
}

func (s *fileSource) Chunks() <-chan audio.Chunk { return s.chunks }
func (s *fileSource) MIMEType() string           { return s.mime }
func (s *fileSource) Close() error               { return nil }

// toneSource synthesizes a sine tone so the tool works without input
// audio on hand.
type toneSource struct {
	chunks chan audio.Chunk
}

func newToneSource(seconds int) *toneSource {
	const sampleRate = 16000
	samples := make([]float64, seconds*sampleRate)
	for i := range samples {
		samples[i] = 0.4 * math.Sin(2*math.Pi*440*float64(i)/sampleRate)
	}
	wav := audio.EncodeWAV(audio.PCM{SampleRate: sampleRate, Channels: [][]float64{samples}})

	s := &toneSource{chunks: make(chan audio.Chunk, 1)}
	s.chunks <- audio.Chunk(wav)
	close(s.chunks)
	return s
}

func (s *toneSource) Chunks() <-chan audio.Chunk { return s.chunks }
func (s *toneSource) MIMEType() string           { return "audio/wav" }
func (s *toneSource) Close() error               { return nil }

// wavDecoder re-encodes captured WAV bytes through the canonical
// encoder. Non-WAV input is passed through by the capture fallback.
type wavDecoder struct{}

func (wavDecoder) Decode(_ context.Context, data []byte, _ string) (audio.PCM, error) {
	samples, sampleRate, err := audio.DecodeSamples(data)
	if err != nil {
		return audio.PCM{}, fmt.Errorf("decode wav: %w", err)
	}
	return audio.PCM{SampleRate: sampleRate, Channels: [][]float64{samples}}, nil
}

// client is a minimal typed wrapper over the service HTTP API.
type client struct {
	baseURL string
	http    *http.Client
}

type sessionBody struct {
	ID       string        `json:"id"`
	Status   string        `json:"status"`
	Analysis *analysisBody `json:"analysis"`
}

type analysisBody struct {
	StutterRate float64            `json:"stutter_rate"`
	Percentages map[string]float64 `json:"percentages"`
}

func (c *client) createSession(ctx context.Context, owner, prompt string) (string, error) {
	payload, _ := json.Marshal(map[string]string{"owner_id": owner, "prompt_id": prompt})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sessions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var body sessionBody
	if err := c.do(req, http.StatusCreated, &body); err != nil {
		return "", err
	}
	return body.ID, nil
}

func (c *client) upload(ctx context.Context, sessionID string, data []byte, contentType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sessions/"+sessionID+"/audio", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	return c.do(req, http.StatusOK, nil)
}

func (c *client) pollAnalysis(ctx context.Context, sessionID string) (*analysisBody, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/sessions/"+sessionID, nil)
		if err != nil {
			return nil, err
		}
		var body sessionBody
		if err := c.do(req, http.StatusOK, &body); err != nil {
			return nil, err
		}
		if body.Status == "analyzed" && body.Analysis != nil {
			return body.Analysis, nil
		}
	}
}

func (c *client) do(req *http.Request, wantStatus int, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, bytes.TrimSpace(body))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
