package store

import "io"

// Client represents a CI artifact store capable of resolving a
// (repo, commit, name) pin into the bytes of the artifact produced by that
// run. Commit is always a fixed revision hash, never a moving reference, so
// a given triple is expected to resolve to the same bytes forever.
type Client interface {
	// Head checks whether the artifact exists, returning its size when the
	// backend reports one (-1 otherwise).
	Head(repo, commit, name string) (size int64, err error)

	// Fetch returns the artifact contents as a stream. The caller owns the
	// returned ReadCloser. Size is -1 when the backend does not report one.
	Fetch(repo, commit, name string) (size int64, stream io.ReadCloser, err error)
}
