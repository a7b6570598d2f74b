// Package loaders reads raw files from the corpus directory and turns them
// into domain Documents.
//
// A Registry maps file extensions to FileReader implementations (plaintext,
// pdf). The Filesystem loader walks the corpus directory, dispatches each
// matching file to its reader, and streams the resulting documents over a
// channel. Per-file failures are reported on a side channel and never abort
// the walk: one corrupt file must not take down the corpus.
package loaders
