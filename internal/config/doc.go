// Package config loads, normalizes, and validates the TOML
// configuration used by every fabula component.
//
// Configuration sections by subsystem:
//   - Paths: local library, scratch, and log directories
//   - Device: mount-point override and udev match strings
//   - Codec: external ffmpeg/ffprobe binaries and transcode workers
//   - Logging: log format and level
//
// Load applies defaults first, so a missing config file yields a fully
// usable configuration.
package config
