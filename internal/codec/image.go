package codec

import (
	"bytes"
	"errors"
	"image"
	_ "image/jpeg"
	"image/png"

	"golang.org/x/image/bmp"
)

// IsRLECompressedBitmap reports whether data carries the device's
// native image encoding: a BMP whose header declares 4 bits per pixel
// (offset 28) and RLE4 compression (offset 30). The header is
// inspected instead of trusting any format tag.
func IsRLECompressedBitmap(data []byte) bool {
	if len(data) < 34 || data[0] != 'B' || data[1] != 'M' {
		return false
	}
	return data[28] == 0x04 && data[30] == 0x02
}

// BitmapToPNG re-encodes a BMP payload (plain or RLE-compressed) as PNG.
func BitmapToPNG(data []byte) ([]byte, error) {
	img, err := decodeImage(data)
	if err != nil {
		return nil, opError("bmp to png", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, opError("bmp to png", err)
	}
	return buf.Bytes(), nil
}

// AnyToBitmap decodes a PNG, JPEG, plain BMP, or RLE-compressed BMP
// payload and re-encodes it as an uncompressed BMP.
func AnyToBitmap(data []byte) ([]byte, error) {
	img, err := decodeImage(data)
	if err != nil {
		return nil, opError("to bmp", err)
	}
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, img); err != nil {
		return nil, opError("to bmp", err)
	}
	return buf.Bytes(), nil
}

// AnyToRLECompressedBitmap decodes any supported image payload and
// re-encodes it in the device's 4-bit RLE BMP format.
func AnyToRLECompressedBitmap(data []byte) ([]byte, error) {
	img, err := decodeImage(data)
	if err != nil {
		return nil, opError("to rle bmp", err)
	}
	out, err := encodeRLEBitmap(img)
	if err != nil {
		return nil, opError("to rle bmp", err)
	}
	return out, nil
}

func decodeImage(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, errors.New("empty image payload")
	}
	if IsRLECompressedBitmap(data) {
		return decodeRLEBitmap(data)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return img, nil
}
