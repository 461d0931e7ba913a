package codec

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"golang.org/x/image/bmp"
)

// grayBitmap encodes a grayscale BMP whose pixel levels are all
// multiples of 17, so the 16-level device palette represents it
// exactly.
func grayBitmap(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x + 3*y) % 16 * 17)})
		}
	}
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, img); err != nil {
		t.Fatalf("encode bmp: %v", err)
	}
	return buf.Bytes()
}

func TestRLERoundTrip(t *testing.T) {
	src := grayBitmap(t, 21, 13) // odd width exercises nibble padding

	encoded, err := AnyToRLECompressedBitmap(src)
	if err != nil {
		t.Fatalf("AnyToRLECompressedBitmap: %v", err)
	}
	if !IsRLECompressedBitmap(encoded) {
		t.Fatal("expected encoder output to identify as RLE bitmap")
	}

	decoded, err := AnyToBitmap(encoded)
	if err != nil {
		t.Fatalf("AnyToBitmap: %v", err)
	}
	if IsRLECompressedBitmap(decoded) {
		t.Fatal("expected plain bitmap after decode")
	}

	want, err := bmp.Decode(bytes.NewReader(src))
	if err != nil {
		t.Fatalf("decode source: %v", err)
	}
	got, err := bmp.Decode(bytes.NewReader(decoded))
	if err != nil {
		t.Fatalf("decode round trip: %v", err)
	}

	bounds := want.Bounds()
	if got.Bounds() != bounds {
		t.Fatalf("bounds changed: got %v, want %v", got.Bounds(), bounds)
	}
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			wr, wg, wb, _ := want.At(x, y).RGBA()
			gr, gg, gb, _ := got.At(x, y).RGBA()
			if wr != gr || wg != gg || wb != gb {
				t.Fatalf("pixel (%d,%d) changed: got %v, want %v", x, y, got.At(x, y), want.At(x, y))
			}
		}
	}
}

func TestIsRLECompressedBitmap(t *testing.T) {
	if IsRLECompressedBitmap(nil) {
		t.Error("nil payload should not identify as RLE")
	}
	if IsRLECompressedBitmap([]byte("BMnot-long-enough")) {
		t.Error("short payload should not identify as RLE")
	}
	if IsRLECompressedBitmap(grayBitmap(t, 4, 4)) {
		t.Error("plain bmp should not identify as RLE")
	}
}

func TestBitmapToPNG(t *testing.T) {
	out, err := BitmapToPNG(grayBitmap(t, 8, 8))
	if err != nil {
		t.Fatalf("BitmapToPNG: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("\x89PNG")) {
		t.Error("expected PNG signature")
	}

	// RLE input goes through the same path.
	rle, err := AnyToRLECompressedBitmap(grayBitmap(t, 8, 8))
	if err != nil {
		t.Fatalf("AnyToRLECompressedBitmap: %v", err)
	}
	if _, err := BitmapToPNG(rle); err != nil {
		t.Fatalf("BitmapToPNG on RLE input: %v", err)
	}
}

func TestDecodeEmptyImage(t *testing.T) {
	if _, err := AnyToBitmap(nil); err == nil {
		t.Error("expected error for empty payload")
	}
}
