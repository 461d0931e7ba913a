package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
)

// The device renders images from 4-bit BMPs with BI_RLE4 compression
// and a 16-entry grayscale palette. Both directions below implement
// exactly that flavor; anything else in the BMP family is delegated to
// the regular codecs in image.go.

const (
	rleFileHeaderSize = 14
	rleInfoHeaderSize = 40
	rlePaletteEntries = 16
	rlePaletteSize    = rlePaletteEntries * 4
	rleDataOffset     = rleFileHeaderSize + rleInfoHeaderSize + rlePaletteSize
	rleCompression    = 2 // BI_RLE4
)

func encodeRLEBitmap(img image.Image) ([]byte, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, errors.New("empty image bounds")
	}

	// Quantize to the 16 gray levels the palette declares.
	nibbles := make([]byte, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			g := color.GrayModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray)
			nibbles[y*width+x] = byte((int(g.Y) + 8) / 17)
		}
	}

	var data []byte
	// Rows are stored bottom-up.
	for y := height - 1; y >= 0; y-- {
		row := nibbles[y*width : (y+1)*width]
		for x := 0; x < len(row); {
			run := 1
			for x+run < len(row) && row[x+run] == row[x] && run < 255 {
				run++
			}
			val := row[x] & 0x0F
			data = append(data, byte(run), val<<4|val)
			x += run
		}
		if y > 0 {
			data = append(data, 0x00, 0x00) // end of line
		}
	}
	data = append(data, 0x00, 0x01) // end of bitmap

	out := make([]byte, rleDataOffset, rleDataOffset+len(data))
	out[0], out[1] = 'B', 'M'
	binary.LittleEndian.PutUint32(out[2:], uint32(rleDataOffset+len(data)))
	binary.LittleEndian.PutUint32(out[10:], rleDataOffset)
	binary.LittleEndian.PutUint32(out[14:], rleInfoHeaderSize)
	binary.LittleEndian.PutUint32(out[18:], uint32(width))
	binary.LittleEndian.PutUint32(out[22:], uint32(height))
	binary.LittleEndian.PutUint16(out[26:], 1) // planes
	binary.LittleEndian.PutUint16(out[28:], 4) // bits per pixel
	binary.LittleEndian.PutUint32(out[30:], rleCompression)
	binary.LittleEndian.PutUint32(out[34:], uint32(len(data)))
	binary.LittleEndian.PutUint32(out[38:], 2835) // ~72 DPI
	binary.LittleEndian.PutUint32(out[42:], 2835)
	binary.LittleEndian.PutUint32(out[46:], rlePaletteEntries)
	for i := 0; i < rlePaletteEntries; i++ {
		level := byte(i * 17)
		off := rleFileHeaderSize + rleInfoHeaderSize + i*4
		out[off], out[off+1], out[off+2] = level, level, level
	}
	return append(out, data...), nil
}

func decodeRLEBitmap(data []byte) (image.Image, error) {
	if len(data) < rleFileHeaderSize+rleInfoHeaderSize {
		return nil, errors.New("rle bmp: truncated header")
	}
	if data[0] != 'B' || data[1] != 'M' {
		return nil, errors.New("rle bmp: bad magic")
	}
	dataOffset := binary.LittleEndian.Uint32(data[10:])
	infoSize := binary.LittleEndian.Uint32(data[14:])
	width := int(int32(binary.LittleEndian.Uint32(data[18:])))
	height := int(int32(binary.LittleEndian.Uint32(data[22:])))
	bitCount := binary.LittleEndian.Uint16(data[28:])
	compression := binary.LittleEndian.Uint32(data[30:])

	if bitCount != 4 || compression != rleCompression {
		return nil, fmt.Errorf("rle bmp: not 4-bit RLE (bits=%d compression=%d)", bitCount, compression)
	}
	topDown := false
	if height < 0 {
		topDown = true
		height = -height
	}
	if width <= 0 || height <= 0 {
		return nil, errors.New("rle bmp: invalid dimensions")
	}

	clrUsed := int(binary.LittleEndian.Uint32(data[46:]))
	if clrUsed == 0 || clrUsed > rlePaletteEntries {
		clrUsed = rlePaletteEntries
	}
	paletteOffset := rleFileHeaderSize + int(infoSize)
	if len(data) < paletteOffset+clrUsed*4 || len(data) < int(dataOffset) {
		return nil, errors.New("rle bmp: truncated palette")
	}
	palette := make(color.Palette, clrUsed)
	for i := 0; i < clrUsed; i++ {
		off := paletteOffset + i*4
		palette[i] = color.RGBA{R: data[off+2], G: data[off+1], B: data[off], A: 0xFF}
	}

	img := image.NewPaletted(image.Rect(0, 0, width, height), palette)
	row := height - 1
	if topDown {
		row = 0
	}
	advance := func() {
		if topDown {
			row++
		} else {
			row--
		}
	}
	setPixel := func(x int, idx byte) error {
		if x >= width || row < 0 || row >= height {
			return errors.New("rle bmp: pixel out of bounds")
		}
		if int(idx) >= len(palette) {
			return errors.New("rle bmp: palette index out of range")
		}
		img.SetColorIndex(x, row, idx)
		return nil
	}

	stream := data[dataOffset:]
	x := 0
	for i := 0; i+1 < len(stream); {
		count, val := stream[i], stream[i+1]
		i += 2
		if count > 0 {
			// Encoded mode: count pixels alternating the two nibbles.
			for p := 0; p < int(count); p++ {
				idx := val >> 4
				if p%2 == 1 {
					idx = val & 0x0F
				}
				if err := setPixel(x, idx); err != nil {
					return nil, err
				}
				x++
			}
			continue
		}
		switch val {
		case 0x00: // end of line
			x = 0
			advance()
		case 0x01: // end of bitmap
			return img, nil
		case 0x02: // delta
			if i+1 >= len(stream) {
				return nil, errors.New("rle bmp: truncated delta")
			}
			x += int(stream[i])
			dy := int(stream[i+1])
			for ; dy > 0; dy-- {
				advance()
			}
			i += 2
		default: // absolute mode
			n := int(val)
			byteCount := (n + 1) / 2
			if byteCount%2 == 1 {
				byteCount++ // padded to a word boundary
			}
			if i+byteCount > len(stream) {
				return nil, errors.New("rle bmp: truncated absolute run")
			}
			for p := 0; p < n; p++ {
				b := stream[i+p/2]
				idx := b >> 4
				if p%2 == 1 {
					idx = b & 0x0F
				}
				if err := setPixel(x, idx); err != nil {
					return nil, err
				}
				x++
			}
			i += byteCount
		}
	}
	return nil, errors.New("rle bmp: missing end-of-bitmap marker")
}
