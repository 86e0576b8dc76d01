package bboltx

import (
	"context"
	"os"

	"github.com/dogmatiq/linger"
	"go.etcd.io/bbolt"
)

// Open opens the BoltDB file at the given path, creating it if it does not
// exist. If mode is zero the file is created with mode 0600.
//
// BoltDB waits for an exclusive file lock. The wait is bounded by the deadline
// of ctx when it is sooner than opts.Timeout, and a lock timeout is reported
// as context.DeadlineExceeded.
func Open(
	ctx context.Context,
	path string,
	mode os.FileMode,
	opts *bbolt.Options,
) (*bbolt.DB, error) {
	if mode == 0 {
		mode = 0600
	}

	if ctx.Err() != nil {
		// A non-positive timeout in the options means "use the default".
		return nil, ctx.Err()
	}

	if timeout, ok := linger.FromContextDeadline(ctx); ok {
		if opts == nil {
			clone := *bbolt.DefaultOptions
			opts = &clone
			opts.Timeout = timeout
		} else if opts.Timeout == 0 || opts.Timeout > timeout {
			clone := *opts
			opts = &clone
			opts.Timeout = timeout
		}
	}

	db, err := bbolt.Open(path, mode, opts)

	if err != nil && err.Error() == "timeout" {
		err = context.DeadlineExceeded
	}

	return db, err
}
