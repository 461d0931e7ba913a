package hotplug

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"fabula/internal/config"
	"fabula/internal/logging"
)

// Connector is the part of the device driver the watcher controls.
type Connector interface {
	SetConnected(mountPoint string)
	SetDisconnected()
}

// Watcher listens for udev netlink events and flips the device
// connection state when a partition with the configured USB vendor and
// product identifiers is added or removed.
type Watcher struct {
	logger     *slog.Logger
	connector  Connector
	vendorID   string
	productID  string
	mountPoint string

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
	devname string
}

// NewWatcher creates a watcher for the configured device identifiers.
// It returns nil when the configuration carries no vendor or product
// identifier, in which case hotplug detection is simply unavailable.
func NewWatcher(cfg *config.Config, logger *slog.Logger, connector Connector) *Watcher {
	if cfg == nil {
		return nil
	}
	vendor := strings.TrimSpace(cfg.Device.VendorID)
	product := strings.TrimSpace(cfg.Device.ProductID)
	if vendor == "" || product == "" {
		return nil
	}

	return &Watcher{
		logger:     logging.NewComponentLogger(logger, "hotplug"),
		connector:  connector,
		vendorID:   strings.ToLower(vendor),
		productID:  strings.ToLower(product),
		mountPoint: cfg.Device.MountPoint,
	}
}

// Start begins listening for udev netlink events. A failure to open
// the netlink socket is non-fatal: device state can still be driven
// manually.
func (w *Watcher) Start(ctx context.Context) error {
	if w == nil {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		w.logger.Warn("failed to connect to netlink socket; device hotplug detection unavailable",
			logging.Error(err))
		return nil
	}

	w.conn = conn
	w.quit = make(chan struct{})
	w.running = true

	quit := w.quit
	go w.watchLoop(ctx, quit)

	w.logger.Info("hotplug watcher started",
		logging.String("vendor_id", w.vendorID),
		logging.String("product_id", w.productID))
	return nil
}

// Stop shuts down the watcher.
func (w *Watcher) Stop() {
	if w == nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	if w.quit != nil {
		close(w.quit)
		w.quit = nil
	}
	if w.conn != nil {
		_ = w.conn.Close()
		w.conn = nil
	}
	w.running = false

	w.logger.Info("hotplug watcher stopped")
}

// Running reports whether the watcher is active.
func (w *Watcher) Running() bool {
	if w == nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) watchLoop(ctx context.Context, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)

	w.mu.Lock()
	conn := w.conn
	w.mu.Unlock()
	if conn == nil {
		return
	}

	monitorQuit := conn.Monitor(queue, errs, w.buildMatcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			w.handleEvent(uevent)
		case err := <-errs:
			w.logger.Warn("hotplug watcher error", logging.Error(err))
		}
	}
}

// buildMatcher accepts block add and remove events; vendor and product
// filtering happens in handleEvent because remove events do not always
// carry the ID_* properties.
func (w *Watcher) buildMatcher() netlink.Matcher {
	action := "add|remove"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "block",
		},
	})
	return rules
}

func (w *Watcher) handleEvent(uevent netlink.UEvent) {
	switch uevent.Action {
	case netlink.ADD:
		if !w.matchesDevice(uevent) {
			return
		}
		w.mu.Lock()
		w.devname = uevent.Env["DEVNAME"]
		w.mu.Unlock()
		w.logger.Info("device attached",
			logging.String("devname", uevent.Env["DEVNAME"]))
		if w.connector != nil {
			w.connector.SetConnected(w.mountPoint)
		}
	case netlink.REMOVE:
		// Remove events often lack the ID_* properties, so match on
		// the device name remembered from the add event.
		w.mu.Lock()
		attached := w.devname
		match := attached != "" && uevent.Env["DEVNAME"] == attached
		if match {
			w.devname = ""
		}
		w.mu.Unlock()
		if !match {
			return
		}
		w.logger.Info("device detached",
			logging.String("devname", uevent.Env["DEVNAME"]))
		if w.connector != nil {
			w.connector.SetDisconnected()
		}
	}
}

func (w *Watcher) matchesDevice(uevent netlink.UEvent) bool {
	vendor := strings.ToLower(uevent.Env["ID_VENDOR_ID"])
	product := strings.ToLower(uevent.Env["ID_MODEL_ID"])
	return vendor == w.vendorID && product == w.productID
}
