package device

import (
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"fabula/internal/logging"
)

// On-flash layout of a device partition.
const (
	metadataFile  = ".md"
	packIndexFile = ".pi"
	contentFolder = ".content"
	indexLockFile = ".pi.lock"

	nodeIndexFile = "ni"
)

// Driver owns one logical device connection and all operations against
// its mounted partition.
type Driver struct {
	logger *slog.Logger
	events *Events

	mu         sync.RWMutex
	mountPoint string

	// indexMu serializes index read-modify-write cycles in-process;
	// the flock serializes them against other processes.
	indexMu sync.Mutex
	lock    *flock.Flock
}

// NewDriver constructs a disconnected driver.
func NewDriver(logger *slog.Logger) *Driver {
	return &Driver{
		logger: logging.NewComponentLogger(logger, "device"),
		events: NewEvents(),
	}
}

// Events exposes the transfer event hub for subscribers.
func (d *Driver) Events() *Events { return d.events }

// SetConnected transitions the driver to Connected at the given mount
// point.
func (d *Driver) SetConnected(mountPoint string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mountPoint = mountPoint
	d.lock = flock.New(filepath.Join(mountPoint, indexLockFile))
	d.logger.Info("device connected", logging.String("mount_point", mountPoint))
}

// SetDisconnected transitions the driver to Disconnected.
func (d *Driver) SetDisconnected() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.mountPoint != "" {
		d.logger.Info("device disconnected")
	}
	d.mountPoint = ""
	d.lock = nil
}

// Connected reports whether a device is currently available.
func (d *Driver) Connected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.mountPoint != ""
}

// MountPoint returns the connected partition root, or "" while
// disconnected.
func (d *Driver) MountPoint() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.mountPoint
}

// requireMount returns the mount point and index lock, or ErrNoDevice.
func (d *Driver) requireMount() (string, *flock.Flock, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.mountPoint == "" {
		return "", nil, ErrNoDevice
	}
	return d.mountPoint, d.lock, nil
}
