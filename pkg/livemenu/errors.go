package livemenu

import "errors"

var (
	// ErrBootstrapFailed means the full-menu fetch did not complete. The
	// client stays in Bootstrapping and the caller may retry; it never gets
	// a partial snapshot.
	ErrBootstrapFailed = errors.New("bootstrap fetch failed")

	// ErrResyncRequired means incremental events can no longer be trusted
	// and a new bootstrap fetch is needed before the snapshot is live again.
	ErrResyncRequired = errors.New("resync required")
)
