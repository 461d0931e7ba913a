// Package convert orchestrates pack format conversion: read with the
// source format's reader, run the transcoding pass the target format
// needs, write with the target writer to scratch space, then move the
// result into the library in one rename.
//
// Transcoding iterates stage nodes with a worker pool. Packs reuse the
// same image or sound across many nodes, so each pass keeps a
// content-hash cache with single-flight semantics: the first worker to
// see a payload performs the conversion, any other worker holding an
// identical payload waits for that result instead of re-encoding.
package convert
