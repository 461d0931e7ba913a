package codec

import (
	"bytes"
	"testing"
)

// mp3Frame builds a single MPEG audio frame header followed by filler.
func mp3Frame(version, rateIdx, channelMode byte) []byte {
	frame := make([]byte, 32)
	frame[0] = 0xFF
	frame[1] = 0xE0 | version<<3 | 0x01<<1 // layer III
	frame[2] = rateIdx << 2
	frame[3] = channelMode << 6
	return frame
}

func TestRemoveID3v1Tag(t *testing.T) {
	body := bytes.Repeat([]byte{0xAA}, 200)
	tag := make([]byte, 128)
	copy(tag, "TAG")

	got := RemoveID3v1Tag(append(append([]byte{}, body...), tag...))
	if !bytes.Equal(got, body) {
		t.Error("expected trailing tag to be stripped")
	}

	if got := RemoveID3v1Tag(body); !bytes.Equal(got, body) {
		t.Error("expected untagged payload to pass through")
	}

	short := []byte("TAGshort")
	if got := RemoveID3v1Tag(short); !bytes.Equal(got, short) {
		t.Error("expected payload shorter than a tag to pass through")
	}
}

func TestRemoveID3v2Tag(t *testing.T) {
	body := mp3Frame(3, 0, 3)

	header := []byte{'I', 'D', '3', 0x03, 0x00, 0x00, 0x00, 0x00, 0x01, 0x05}
	tagged := append(append(append([]byte{}, header...), make([]byte, 0x85)...), body...)
	if got := RemoveID3v2Tag(tagged); !bytes.Equal(got, body) {
		t.Error("expected leading tag to be stripped")
	}

	// Footer flag adds ten more bytes.
	withFooter := append([]byte{}, header...)
	withFooter[5] = 0x10
	withFooter = append(withFooter, make([]byte, 0x85+10)...)
	withFooter = append(withFooter, body...)
	if got := RemoveID3v2Tag(withFooter); !bytes.Equal(got, body) {
		t.Error("expected footer to be stripped with the tag")
	}

	if got := RemoveID3v2Tag(body); !bytes.Equal(got, body) {
		t.Error("expected untagged payload to pass through")
	}
}

func TestInspectMP3(t *testing.T) {
	cases := []struct {
		name        string
		version     byte
		rateIdx     byte
		channelMode byte
		wantRate    int
		wantCh      int
	}{
		{"mpeg1 mono 44100", 3, 0, 3, 44100, 1},
		{"mpeg1 stereo 48000", 3, 1, 0, 48000, 2},
		{"mpeg2 mono 22050", 2, 0, 3, 22050, 1},
		{"mpeg2.5 joint 8000", 0, 2, 1, 8000, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			format, err := InspectMP3(mp3Frame(tc.version, tc.rateIdx, tc.channelMode))
			if err != nil {
				t.Fatalf("InspectMP3: %v", err)
			}
			if format.SampleRate != tc.wantRate || format.Channels != tc.wantCh {
				t.Errorf("got %+v, want rate %d channels %d", format, tc.wantRate, tc.wantCh)
			}
		})
	}

	if _, err := InspectMP3([]byte{0x00, 0x01, 0x02, 0x03}); err == nil {
		t.Error("expected error without a frame header")
	}
}

func TestIsCompliantMP3(t *testing.T) {
	if !IsCompliantMP3(mp3Frame(3, 0, 3)) {
		t.Error("mono 44100 should be compliant")
	}
	if IsCompliantMP3(mp3Frame(3, 0, 0)) {
		t.Error("stereo should not be compliant")
	}
	if IsCompliantMP3(mp3Frame(3, 1, 3)) {
		t.Error("48000 Hz should not be compliant")
	}
	if IsCompliantMP3(nil) {
		t.Error("empty payload should not be compliant")
	}
}
