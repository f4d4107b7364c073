package apperr

import "errors"

// Sentinel errors for the retrieval/indexing engine. Callers classify with
// errors.Is; wrapping sites add the path or query that failed.
var (
	// ErrNotFound marks a missing file. Batch operations exclude the file
	// and continue.
	ErrNotFound = errors.New("not found")

	// ErrParseFailure marks an unparsable source file. The file is skipped
	// and the pass continues.
	ErrParseFailure = errors.New("parse failure")

	// ErrBackendFailure marks an index or filesystem I/O error. The failure
	// is contained at the smallest possible scope: per file during indexing,
	// per call during retrieval.
	ErrBackendFailure = errors.New("backend failure")
)
