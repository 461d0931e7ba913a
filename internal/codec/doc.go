// Package codec converts asset payloads between the encodings the
// three pack representations use.
//
// Image transforms are pure Go: PNG and JPEG via the standard image
// codecs, plain BMP via golang.org/x/image/bmp, and the device's
// 4-bit run-length BMP flavor via a local encoder/decoder (rle.go) —
// that byte layout is a firmware contract.
//
// Audio transforms shell out to ffmpeg, wrapped in the same style as
// the ffprobe client: a package-level commandContext hook lets tests
// substitute the subprocess. ID3 tag stripping and MP3 frame
// inspection are pure byte parsing and never touch ffmpeg.
//
// Every transform returns fresh bytes and never mutates its input.
package codec
