package codec

import (
	"context"
	"os/exec"
	"strings"
	"testing"
)

// stubCommand captures the invoked arguments and substitutes a shell
// command that drains stdin and emits a fixed payload.
func stubCommand(t *testing.T, captured *[]string) {
	t.Helper()

	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		*captured = append([]string{name}, args...)
		return exec.CommandContext(ctx, "sh", "-c", "cat >/dev/null; printf converted")
	}
	t.Cleanup(func() { commandContext = original })
}

func TestWaveToOggInvocation(t *testing.T) {
	var captured []string
	stubCommand(t, &captured)

	out, err := NewFFmpeg().WaveToOgg(context.Background(), []byte("RIFF...."))
	if err != nil {
		t.Fatalf("WaveToOgg: %v", err)
	}
	if string(out) != "converted" {
		t.Errorf("unexpected output %q", out)
	}

	joined := strings.Join(captured, " ")
	for _, want := range []string{"ffmpeg", "-f wav", "-c:a libvorbis", "-f ogg"} {
		if !strings.Contains(joined, want) {
			t.Errorf("expected %q in invocation %q", want, joined)
		}
	}
}

func TestAnyToMP3Invocation(t *testing.T) {
	var captured []string
	stubCommand(t, &captured)

	if _, err := NewFFmpeg(WithBinary("/opt/ffmpeg")).AnyToMP3(context.Background(), []byte("audio")); err != nil {
		t.Fatalf("AnyToMP3: %v", err)
	}

	joined := strings.Join(captured, " ")
	for _, want := range []string{"/opt/ffmpeg", "-ac 1", "-ar 44100", "-map_metadata -1", "-c:a libmp3lame"} {
		if !strings.Contains(joined, want) {
			t.Errorf("expected %q in invocation %q", want, joined)
		}
	}
}

func TestRunRejectsEmptyPayload(t *testing.T) {
	var captured []string
	stubCommand(t, &captured)

	if _, err := NewFFmpeg().OggToWave(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty payload")
	}
	if len(captured) != 0 {
		t.Error("expected no invocation for empty payload")
	}
}
