// Package library manages the on-disk pack library: listing packs
// across their stored formats, admitting new files, deleting, and
// joining enrichment metadata from the local database.
package library
