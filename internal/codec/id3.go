package codec

import "errors"

// RemoveID3v1Tag returns data without a trailing ID3v1 tag. The tag is
// a fixed 128-byte block starting with "TAG" at the end of the file.
func RemoveID3v1Tag(data []byte) []byte {
	const tagSize = 128
	if len(data) < tagSize {
		return cloneBytes(data)
	}
	tail := data[len(data)-tagSize:]
	if tail[0] == 'T' && tail[1] == 'A' && tail[2] == 'G' {
		return cloneBytes(data[:len(data)-tagSize])
	}
	return cloneBytes(data)
}

// RemoveID3v2Tag returns data without a leading ID3v2 tag. The header
// is 10 bytes; its size field is a 28-bit syncsafe integer, and the
// footer flag adds another 10 bytes.
func RemoveID3v2Tag(data []byte) []byte {
	const headerSize = 10
	if len(data) < headerSize || data[0] != 'I' || data[1] != 'D' || data[2] != '3' {
		return cloneBytes(data)
	}
	size := int(data[6]&0x7F)<<21 | int(data[7]&0x7F)<<14 | int(data[8]&0x7F)<<7 | int(data[9]&0x7F)
	total := headerSize + size
	if data[5]&0x10 != 0 {
		total += 10 // footer present
	}
	if total >= len(data) {
		return nil
	}
	return cloneBytes(data[total:])
}

// MP3Format is the channel layout and sample rate read from the first
// MPEG audio frame header.
type MP3Format struct {
	Channels   int
	SampleRate int
}

var mp3SampleRates = map[byte][3]int{
	3: {44100, 48000, 32000}, // MPEG1
	2: {22050, 24000, 16000}, // MPEG2
	0: {11025, 12000, 8000},  // MPEG2.5
}

// InspectMP3 locates the first MPEG audio frame (skipping any ID3v2
// tag) and reports its channel count and sample rate.
func InspectMP3(data []byte) (MP3Format, error) {
	payload := RemoveID3v2Tag(data)
	for i := 0; i+3 < len(payload); i++ {
		if payload[i] != 0xFF || payload[i+1]&0xE0 != 0xE0 {
			continue
		}
		version := payload[i+1] >> 3 & 0x03
		layer := payload[i+1] >> 1 & 0x03
		if version == 1 || layer == 0 {
			continue // reserved values, not a real frame
		}
		rates, ok := mp3SampleRates[version]
		if !ok {
			continue
		}
		rateIdx := payload[i+2] >> 2 & 0x03
		if rateIdx == 3 {
			continue
		}
		channels := 2
		if payload[i+3]>>6&0x03 == 3 { // mono channel mode
			channels = 1
		}
		return MP3Format{Channels: channels, SampleRate: rates[rateIdx]}, nil
	}
	return MP3Format{}, opError("inspect mp3", errors.New("no MPEG frame header found"))
}

// IsCompliantMP3 reports whether the payload already matches the
// device's required mono/44100 Hz encoding.
func IsCompliantMP3(data []byte) bool {
	format, err := InspectMP3(data)
	if err != nil {
		return false
	}
	return format.Channels == MP3Channels && format.SampleRate == MP3SampleRate
}

func cloneBytes(data []byte) []byte {
	if data == nil {
		return nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out
}
