// Package device drives the storyteller's on-flash storage layout on a
// mounted partition: the binary device metadata file, the pack index
// file, content-addressed pack folders, and per-pack node index files.
//
// A Driver tracks one logical device connection. The hotplug monitor
// moves it between Disconnected and Connected(mountPoint); every
// operation fails with ErrNoDevice while disconnected.
//
// The pack index is a read-modify-write file with no transaction
// support, so all index mutations (add, delete, reorder) are
// serialized per device behind an in-process mutex plus a file lock
// next to the index. Index writes always truncate and rewrite the full
// file; partial index writes are never acceptable.
//
// Every operation has an asynchronous variant returning a Pending
// handle resolved on a background goroutine; transfers report per-file
// progress to a caller-supplied sink and publish events for a
// notification layer.
package device
