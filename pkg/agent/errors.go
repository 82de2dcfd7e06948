package agent

import "errors"

var (
	// ErrInvalidEntry is returned for manifest entries whose name does not
	// resolve to a plain file name.
	ErrInvalidEntry = errors.New("invalid manifest entry")

	// ErrHashMismatch is returned when downloaded bytes do not match the manifest.
	ErrHashMismatch = errors.New("downloaded package hash mismatch")

	// ErrUnsafeArchive is returned for archives with entries that would land
	// outside the extraction directory.
	ErrUnsafeArchive = errors.New("archive entry escapes extraction directory")

	// ErrNoConfigBlob is returned when neither the server nor the local disk
	// has a config file to rewrite.
	ErrNoConfigBlob = errors.New("no config file available")
)
