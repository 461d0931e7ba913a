package config

const (
	defaultLibraryDir = "~/.local/share/fabula/library"
	defaultTmpDir     = "~/.local/share/fabula/tmp"
	defaultDataDir    = "~/.local/share/fabula/data"
	defaultLogDir     = "~/.local/share/fabula/logs"
	defaultLogFormat  = "console"
	defaultLogLevel   = "info"

	// USB identity of the storyteller's mass-storage interface.
	defaultVendorID  = "0c45"
	defaultProductID = "6820"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir: defaultLibraryDir,
			TmpDir:     defaultTmpDir,
			DataDir:    defaultDataDir,
			LogDir:     defaultLogDir,
		},
		Device: Device{
			VendorID:  defaultVendorID,
			ProductID: defaultProductID,
		},
		Codec: Codec{
			Workers: 0, // 0 means min(NumCPU, 8)
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
