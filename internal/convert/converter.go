package convert

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"fabula/internal/codec"
	"fabula/internal/format"
	"fabula/internal/logging"
	"fabula/internal/pack"
)

// Converter transforms packs in a library directory between formats.
type Converter struct {
	library string
	tmpDir  string
	ffmpeg  *codec.FFmpeg
	probe   *codec.FFprobe
	workers int
	logger  *slog.Logger
}

// Option configures a Converter.
type Option func(*Converter)

// WithFFmpeg overrides the audio codec wrapper.
func WithFFmpeg(f *codec.FFmpeg) Option {
	return func(c *Converter) {
		if f != nil {
			c.ffmpeg = f
		}
	}
}

// WithFFprobe overrides the stream inspection wrapper.
func WithFFprobe(p *codec.FFprobe) Option {
	return func(c *Converter) {
		if p != nil {
			c.probe = p
		}
	}
}

// WithWorkers sets the transcode worker pool size; zero or negative
// picks min(NumCPU, 8).
func WithWorkers(n int) Option {
	return func(c *Converter) { c.workers = n }
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Converter) { c.logger = logger }
}

// New builds a Converter rooted at a library directory with a scratch
// directory for in-flight output.
func New(library, tmpDir string, opts ...Option) *Converter {
	c := &Converter{
		library: library,
		tmpDir:  tmpDir,
		ffmpeg:  codec.NewFFmpeg(),
		probe:   codec.NewFFprobe(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.workers <= 0 {
		c.workers = min(runtime.NumCPU(), 8)
	}
	c.logger = logging.NewComponentLogger(c.logger, "converter")
	return c
}

// Convert reads the named library pack, transcodes its assets for the
// target format, and writes the result back into the library. The
// returned path is the new pack's location. Converting to the format
// the pack is already in is rejected, not skipped.
func (c *Converter) Convert(ctx context.Context, packName string, target format.PackFormat, allowEnriched bool) (string, error) {
	packPath := filepath.Join(c.library, packName)
	source := format.FromPath(packPath)
	if source == format.None {
		return "", fmt.Errorf("%s is not a recognizable pack", packName)
	}
	if source == target {
		return "", &AlreadyInFormatError{Pack: packName, Format: target}
	}
	c.logger.Info("converting pack",
		logging.String("pack", packName),
		logging.String("from", source.Label()),
		logging.String("to", target.Label()))

	p, err := source.Reader().Read(packPath)
	if err != nil {
		return "", &ConversionError{Source: source, Target: target, Err: err}
	}

	switch target {
	case format.Archive:
		if source == format.Raw {
			c.logger.Debug("compressing pack assets")
			if err := c.processCompressed(ctx, p); err != nil {
				return "", &ConversionError{Source: source, Target: target, Err: err}
			}
		}
		// Archive output always keeps enrichment.
		allowEnriched = true
	case format.FS:
		c.logger.Debug("preparing assets for device firmware")
		if err := c.processFirmware(ctx, p); err != nil {
			return "", &ConversionError{Source: source, Target: target, Err: err}
		}
		allowEnriched = true
	case format.Raw:
		if hasCompressedAssets(p) {
			c.logger.Debug("uncompressing pack assets")
			if err := c.processUncompressed(ctx, p); err != nil {
				return "", &ConversionError{Source: source, Target: target, Err: err}
			}
		}
	default:
		return "", fmt.Errorf("unsupported target format %q", target)
	}

	destName := fmt.Sprintf("%s.converted_%d%s", p.UUID, time.Now().UnixMilli(), target.Extension())
	tmpPath := filepath.Join(c.tmpDir, destName)
	if _, err := target.Writer().Write(p, tmpPath, allowEnriched); err != nil {
		return "", &ConversionError{Source: source, Target: target, Err: err}
	}

	destPath := filepath.Join(c.library, destName)
	if err := os.Rename(tmpPath, destPath); err != nil {
		return "", &ConversionError{Source: source, Target: target, Err: err}
	}
	c.logger.Info("pack converted", logging.String("path", destPath))
	return destPath, nil
}

// hasCompressedAssets reports whether any node carries an asset that is
// not in the raw format's native encodings (BMP image, WAV audio).
func hasCompressedAssets(p *pack.Pack) bool {
	for _, node := range p.Nodes {
		if node.Image != nil && node.Image.Type != pack.ImageBMP {
			return true
		}
		if node.Audio != nil && node.Audio.Type != pack.AudioWAV {
			return true
		}
	}
	return false
}

// processCompressed prepares assets for archive output: BMP images
// become PNG and WAV audio becomes Ogg Vorbis; payloads already in a
// compressed encoding pass through unchanged.
func (c *Converter) processCompressed(ctx context.Context, p *pack.Pack) error {
	if err := c.processImages(ctx, p, func(a *pack.ImageAsset) ([]byte, pack.ImageType, error) {
		if a.Type == pack.ImageBMP {
			data, err := codec.BitmapToPNG(a.Data)
			return data, pack.ImagePNG, err
		}
		return a.Data, a.Type, nil
	}); err != nil {
		return err
	}
	return c.processAudio(ctx, p, func(a *pack.AudioAsset) ([]byte, pack.AudioType, error) {
		if a.Type == pack.AudioWAV {
			data, err := c.ffmpeg.WaveToOgg(ctx, a.Data)
			return data, pack.AudioOGG, err
		}
		return a.Data, a.Type, nil
	})
}

// processUncompressed prepares assets for raw output: every image
// becomes an uncompressed BMP and every audio payload becomes WAV.
func (c *Converter) processUncompressed(ctx context.Context, p *pack.Pack) error {
	if err := c.processImages(ctx, p, func(a *pack.ImageAsset) ([]byte, pack.ImageType, error) {
		if a.Type == pack.ImageBMP && !codec.IsRLECompressedBitmap(a.Data) {
			return a.Data, a.Type, nil
		}
		data, err := codec.AnyToBitmap(a.Data)
		return data, pack.ImageBMP, err
	}); err != nil {
		return err
	}
	return c.processAudio(ctx, p, func(a *pack.AudioAsset) ([]byte, pack.AudioType, error) {
		switch a.Type {
		case pack.AudioOGG:
			data, err := c.ffmpeg.OggToWave(ctx, a.Data)
			return data, pack.AudioWAV, err
		case pack.AudioMP3:
			data, err := c.ffmpeg.MP3ToWave(ctx, a.Data)
			return data, pack.AudioWAV, err
		default:
			return a.Data, a.Type, nil
		}
	})
}

// processFirmware prepares assets for the device: 4-bit RLE BMP images
// and mono 44100 Hz MP3 audio with ID3 tags stripped.
func (c *Converter) processFirmware(ctx context.Context, p *pack.Pack) error {
	if err := c.processImages(ctx, p, func(a *pack.ImageAsset) ([]byte, pack.ImageType, error) {
		if a.Type == pack.ImageBMP && codec.IsRLECompressedBitmap(a.Data) {
			return a.Data, a.Type, nil
		}
		data, err := codec.AnyToRLECompressedBitmap(a.Data)
		return data, pack.ImageBMP, err
	}); err != nil {
		return err
	}
	return c.processAudio(ctx, p, func(a *pack.AudioAsset) ([]byte, pack.AudioType, error) {
		if a.Type == pack.AudioMP3 {
			stripped := codec.RemoveID3v2Tag(codec.RemoveID3v1Tag(a.Data))
			if codec.IsCompliantMP3(stripped) {
				return stripped, pack.AudioMP3, nil
			}
		}
		data, err := c.ffmpeg.AnyToMP3(ctx, a.Data)
		if err != nil {
			return nil, pack.AudioMP3, err
		}
		if err := c.verifyDeviceAudio(ctx, data); err != nil {
			return nil, pack.AudioMP3, err
		}
		return data, pack.AudioMP3, nil
	})
}

// verifyDeviceAudio cross-checks encoder output against the firmware
// requirements. The frame-header check only sees the first frame;
// ffprobe reads the whole stream.
func (c *Converter) verifyDeviceAudio(ctx context.Context, data []byte) error {
	info, err := c.probe.Inspect(ctx, data)
	if err != nil {
		return fmt.Errorf("verify encoded audio: %w", err)
	}
	if !info.DeviceCompliant() {
		return fmt.Errorf("encoder produced %s %dch %dHz, need mp3 %dch %dHz",
			info.CodecName, info.Channels, info.SampleRate, codec.MP3Channels, codec.MP3SampleRate)
	}
	return nil
}
