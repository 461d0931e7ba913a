// Package hotplug watches udev netlink events for the storyteller
// device appearing or disappearing and drives the device driver's
// connection state accordingly.
package hotplug
