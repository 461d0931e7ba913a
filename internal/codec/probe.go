package codec

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// FFprobe wraps the external ffprobe binary. The converter uses it to
// verify encoder output, where looking at the first frame header is
// not enough.
type FFprobe struct {
	binary string
}

// ProbeOption configures the FFprobe wrapper.
type ProbeOption func(*FFprobe)

// WithProbeBinary overrides the default binary name.
func WithProbeBinary(binary string) ProbeOption {
	return func(f *FFprobe) {
		if binary != "" {
			f.binary = binary
		}
	}
}

// NewFFprobe constructs an FFprobe wrapper using defaults.
func NewFFprobe(opts ...ProbeOption) *FFprobe {
	f := &FFprobe{binary: "ffprobe"}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// StreamInfo describes the first audio stream of a payload.
type StreamInfo struct {
	CodecName  string
	Channels   int
	SampleRate int
}

// DeviceCompliant reports whether the stream matches the firmware's
// audio requirements.
func (s StreamInfo) DeviceCompliant() bool {
	return s.CodecName == "mp3" && s.Channels == MP3Channels && s.SampleRate == MP3SampleRate
}

type probeOutput struct {
	Streams []struct {
		CodecName  string `json:"codec_name"`
		Channels   int    `json:"channels"`
		SampleRate string `json:"sample_rate"`
	} `json:"streams"`
}

// Inspect probes the payload's first audio stream.
func (f *FFprobe) Inspect(ctx context.Context, data []byte) (StreamInfo, error) {
	if len(data) == 0 {
		return StreamInfo{}, opError("probe", errors.New("empty audio payload"))
	}

	cmd := commandContext(ctx, f.binary,
		"-hide_banner", "-loglevel", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=codec_name,channels,sample_rate",
		"-of", "json",
		"-i", "pipe:0")
	cmd.Stdin = bytes.NewReader(data)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return StreamInfo{}, opError("probe", fmt.Errorf("%s: %w: %s", f.binary, err, detail))
		}
		return StreamInfo{}, opError("probe", fmt.Errorf("%s: %w", f.binary, err))
	}

	var out probeOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return StreamInfo{}, opError("probe", fmt.Errorf("parse %s output: %w", f.binary, err))
	}
	if len(out.Streams) == 0 {
		return StreamInfo{}, opError("probe", errors.New("no audio stream found"))
	}

	stream := out.Streams[0]
	info := StreamInfo{CodecName: stream.CodecName, Channels: stream.Channels}
	if stream.SampleRate != "" {
		if _, err := fmt.Sscanf(stream.SampleRate, "%d", &info.SampleRate); err != nil {
			return StreamInfo{}, opError("probe", fmt.Errorf("sample rate %q: %w", stream.SampleRate, err))
		}
	}
	return info, nil
}
