package codec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var commandContext = exec.CommandContext

// Device firmware requirements for audio payloads.
const (
	MP3Channels   = 1
	MP3SampleRate = 44100
)

// FFmpeg wraps the external ffmpeg binary for the audio conversions
// the converter needs. Payloads stream through stdin/stdout so no
// scratch files are involved.
type FFmpeg struct {
	binary string
}

// Option configures the FFmpeg wrapper.
type Option func(*FFmpeg)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(f *FFmpeg) {
		if binary != "" {
			f.binary = binary
		}
	}
}

// NewFFmpeg constructs an FFmpeg wrapper using defaults.
func NewFFmpeg(opts ...Option) *FFmpeg {
	f := &FFmpeg{binary: "ffmpeg"}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// WaveToOgg re-encodes a WAV payload as Ogg Vorbis.
func (f *FFmpeg) WaveToOgg(ctx context.Context, data []byte) ([]byte, error) {
	out, err := f.run(ctx, data, "-f", "wav", "-i", "pipe:0", "-c:a", "libvorbis", "-f", "ogg", "pipe:1")
	return out, opError("wav to ogg", err)
}

// OggToWave decodes an Ogg Vorbis payload to WAV.
func (f *FFmpeg) OggToWave(ctx context.Context, data []byte) ([]byte, error) {
	out, err := f.run(ctx, data, "-f", "ogg", "-i", "pipe:0", "-f", "wav", "pipe:1")
	return out, opError("ogg to wav", err)
}

// MP3ToWave decodes an MP3 payload to WAV.
func (f *FFmpeg) MP3ToWave(ctx context.Context, data []byte) ([]byte, error) {
	out, err := f.run(ctx, data, "-f", "mp3", "-i", "pipe:0", "-f", "wav", "pipe:1")
	return out, opError("mp3 to wav", err)
}

// AnyToMP3 re-encodes any supported audio payload as the device's
// native MP3 flavor: mono at 44100 Hz, with no metadata carried over.
func (f *FFmpeg) AnyToMP3(ctx context.Context, data []byte) ([]byte, error) {
	out, err := f.run(ctx, data,
		"-i", "pipe:0",
		"-ac", fmt.Sprint(MP3Channels),
		"-ar", fmt.Sprint(MP3SampleRate),
		"-map_metadata", "-1",
		"-c:a", "libmp3lame",
		"-f", "mp3", "pipe:1")
	return out, opError("to mp3", err)
}

func (f *FFmpeg) run(ctx context.Context, input []byte, args ...string) ([]byte, error) {
	if len(input) == 0 {
		return nil, errors.New("empty audio payload")
	}

	full := append([]string{"-hide_banner", "-loglevel", "error"}, args...)
	cmd := commandContext(ctx, f.binary, full...)
	cmd.Stdin = bytes.NewReader(input)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return nil, fmt.Errorf("%s: %w: %s", f.binary, err, detail)
		}
		return nil, fmt.Errorf("%s: %w", f.binary, err)
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("%s produced no output", f.binary)
	}
	return stdout.Bytes(), nil
}
