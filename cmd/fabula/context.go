package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"fabula/internal/codec"
	"fabula/internal/config"
	"fabula/internal/convert"
	"fabula/internal/device"
	"fabula/internal/library"
	"fabula/internal/logging"
	"fabula/internal/metadata"
)

// commandContext lazily builds the shared pieces every subcommand
// needs from the configuration file.
type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) openLibrary() (*library.Library, *metadata.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, nil, err
	}
	store, err := metadata.Open(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open metadata store: %w", err)
	}
	return library.New(cfg.Paths.LibraryDir, store, logger), store, nil
}

func (c *commandContext) newConverter() (*convert.Converter, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	ffmpeg := codec.NewFFmpeg(codec.WithBinary(cfg.FFmpegBinary()))
	probe := codec.NewFFprobe(codec.WithProbeBinary(cfg.FFprobeBinary()))
	return convert.New(cfg.Paths.LibraryDir, cfg.Paths.TmpDir,
		convert.WithFFmpeg(ffmpeg),
		convert.WithFFprobe(probe),
		convert.WithWorkers(cfg.Codec.Workers),
		convert.WithLogger(logger)), nil
}

// connectedDriver builds a device driver connected at the configured
// mount point, verifying the partition is actually present.
func (c *commandContext) connectedDriver() (*device.Driver, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}

	mount := strings.TrimSpace(cfg.Device.MountPoint)
	if mount == "" {
		return nil, fmt.Errorf("no device mount point configured")
	}
	if info, err := os.Stat(mount); err != nil || !info.IsDir() {
		return nil, device.ErrNoDevice
	}

	d := device.NewDriver(logger)
	d.SetConnected(mount)
	return d, nil
}
