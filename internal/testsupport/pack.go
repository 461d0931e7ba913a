package testsupport

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"testing"

	"golang.org/x/image/bmp"

	"fabula/internal/pack"
)

// GrayBitmap encodes a small grayscale BMP whose pixel values are all
// multiples of 17, which keeps it lossless under the device's 16-level
// palette.
func GrayBitmap(t testing.TB, width, height int) []byte {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			level := uint8((x + y) % 16)
			img.SetGray(x, y, color.Gray{Y: level * 17})
		}
	}
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, img); err != nil {
		t.Fatalf("encode bmp: %v", err)
	}
	return buf.Bytes()
}

// SilentWave builds a minimal mono 16-bit PCM WAVE payload.
func SilentWave(t testing.TB, samples int) []byte {
	t.Helper()

	dataLen := samples * 2
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1))     // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1))     // mono
	binary.Write(&buf, binary.LittleEndian, uint32(44100)) // sample rate
	binary.Write(&buf, binary.LittleEndian, uint32(44100*2))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataLen))
	buf.Write(make([]byte, dataLen))
	return buf.Bytes()
}

// SamplePack builds a three-node pack with BMP images and WAVE audio:
// an entry node leading to two option nodes that both return home.
func SamplePack(t testing.TB) *pack.Pack {
	t.Helper()

	entry := &pack.StageNode{
		UUID:     "11111111-1111-1111-1111-111111111111",
		Image:    &pack.ImageAsset{Type: pack.ImageBMP, Data: GrayBitmap(t, 16, 8)},
		Audio:    &pack.AudioAsset{Type: pack.AudioWAV, Data: SilentWave(t, 64)},
		Controls: pack.ControlSettings{Wheel: true, OK: true},
	}
	left := &pack.StageNode{
		UUID:     "22222222-2222-2222-2222-222222222222",
		Image:    &pack.ImageAsset{Type: pack.ImageBMP, Data: GrayBitmap(t, 8, 8)},
		Audio:    &pack.AudioAsset{Type: pack.AudioWAV, Data: SilentWave(t, 32)},
		Controls: pack.ControlSettings{OK: true, Home: true, Pause: true},
	}
	right := &pack.StageNode{
		UUID:     "33333333-3333-3333-3333-333333333333",
		Audio:    &pack.AudioAsset{Type: pack.AudioWAV, Data: SilentWave(t, 16)},
		Controls: pack.ControlSettings{Home: true, Autoplay: true},
	}

	entry.OK = &pack.Transition{Target: left, OptionIndex: 0}
	entry.Home = &pack.Transition{Target: right, OptionIndex: 1}
	left.OK = &pack.Transition{Target: right, OptionIndex: 0}
	left.Home = &pack.Transition{Target: entry, OptionIndex: 0}
	right.Home = &pack.Transition{Target: entry, OptionIndex: 0}

	return &pack.Pack{
		UUID:    entry.UUID,
		Version: 2,
		Nodes:   []*pack.StageNode{entry, left, right},
		Enriched: &pack.EnrichedPackMetadata{
			Title:       "Test Stories",
			Description: "A tiny pack used in tests.",
		},
	}
}
