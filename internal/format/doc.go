// Package format implements the three on-disk story pack
// representations and the closed PackFormat enum that binds each one
// to its file extension, display label, and reader/writer pair.
//
//   - Archive: a zip bundle with a story.json graph description and
//     content-addressed asset entries. The interchange format.
//   - Raw: a single binary file laid out in 512-byte sectors, the
//     shape packs travel in when pulled off or pushed to a device as
//     one blob.
//   - FS: the device-native multi-file folder (node index file plus
//     nested asset files), the layout the firmware actually mounts.
//
// Readers return typed *DecodeError values for files that do not match
// the expected shape; ReadMetadata is the cheap partial read used for
// library indexing.
package format
