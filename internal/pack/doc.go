// Package pack defines the in-memory model of a story pack: the stage
// node graph, its transitions, and the image/audio assets attached to
// each node.
//
// The model performs no I/O. Readers in internal/format construct packs
// from on-disk bytes, the converter rewrites asset payloads in place,
// and writers serialize the result. Transitions are non-owning
// references, so the node graph may contain cycles; structural node
// comparison deliberately excludes transitions for that reason.
package pack
