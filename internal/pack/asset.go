package pack

// ImageType identifies the encoding of an image asset's payload.
type ImageType string

const (
	ImageBMP  ImageType = "bmp"
	ImagePNG  ImageType = "png"
	ImageJPEG ImageType = "jpeg"
)

// Extension returns the file extension used when the asset is written
// out as an individual file.
func (t ImageType) Extension() string {
	switch t {
	case ImageBMP:
		return ".bmp"
	case ImagePNG:
		return ".png"
	case ImageJPEG:
		return ".jpg"
	default:
		return ""
	}
}

// ImageTypeFromExtension maps a file extension (with or without the
// leading dot) to an image type. Unknown extensions return "".
func ImageTypeFromExtension(ext string) ImageType {
	switch normalizeExt(ext) {
	case ".bmp":
		return ImageBMP
	case ".png":
		return ImagePNG
	case ".jpg", ".jpeg":
		return ImageJPEG
	default:
		return ""
	}
}

// AudioType identifies the encoding of an audio asset's payload.
type AudioType string

const (
	AudioWAV AudioType = "wav"
	AudioMP3 AudioType = "mp3"
	AudioOGG AudioType = "ogg"
)

// Extension returns the file extension used when the asset is written
// out as an individual file.
func (t AudioType) Extension() string {
	switch t {
	case AudioWAV:
		return ".wav"
	case AudioMP3:
		return ".mp3"
	case AudioOGG:
		return ".ogg"
	default:
		return ""
	}
}

// AudioTypeFromExtension maps a file extension (with or without the
// leading dot) to an audio type. Unknown extensions return "".
func AudioTypeFromExtension(ext string) AudioType {
	switch normalizeExt(ext) {
	case ".wav":
		return AudioWAV
	case ".mp3":
		return AudioMP3
	case ".ogg", ".oga":
		return AudioOGG
	default:
		return ""
	}
}

func normalizeExt(ext string) string {
	if ext == "" {
		return ""
	}
	if ext[0] != '.' {
		ext = "." + ext
	}
	out := make([]byte, len(ext))
	for i := 0; i < len(ext); i++ {
		c := ext[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

// ImageAsset is a raw image payload plus the encoding its bytes are in.
// The type tag must always match the actual byte encoding; transcoding
// passes update both together.
type ImageAsset struct {
	Type ImageType
	Data []byte
}

// AudioAsset is a raw audio payload plus the encoding its bytes are in.
type AudioAsset struct {
	Type AudioType
	Data []byte
}
