// Package sink delivers flattened records to their destination.
package sink

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dgallion1/docsplit/internal/doctree"
)

// Sink receives the records of one file at a time. Writing a file again
// replaces whatever the sink holds for it.
type Sink interface {
	Write(ctx context.Context, file string, records []doctree.Record) error
	Close() error
}

// Reader is implemented by sinks whose stored records can be read back.
type Reader interface {
	Files(ctx context.Context) ([]string, error)
	Records(ctx context.Context, file string) ([]doctree.Record, error)
}

// RetryableError marks a failure worth retrying, such as a 5xx or 429 from a
// remote store.
type RetryableError struct {
	StatusCode int
	Err        error
}

func (e *RetryableError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("retryable (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("retryable: %v", e.Err)
}

func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable reports whether err or anything it wraps is a RetryableError.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr)
}

// Kinds accepted by Open.
const (
	KindJSON      = "json"
	KindSQLite    = "sqlite"
	KindPathstore = "pathstore"
)

// Options selects and configures a sink.
type Options struct {
	Kind            string
	Output          string    // JSON lines file; empty or "-" means Stdout
	Stdout          io.Writer // defaults to os.Stdout
	SQLitePath      string
	PathstoreURL    string
	PathstoreAPIKey string
}

// Open builds the sink named by opts.Kind.
func Open(ctx context.Context, opts Options) (Sink, error) {
	switch opts.Kind {
	case KindJSON, "":
		if (opts.Output == "" || opts.Output == "-") && opts.Stdout != nil {
			return NewJSONLines(opts.Stdout), nil
		}
		return OpenJSONLines(opts.Output)
	case KindSQLite:
		return OpenSQLite(ctx, opts.SQLitePath)
	case KindPathstore:
		return NewPathstore(opts.PathstoreURL, opts.PathstoreAPIKey), nil
	default:
		return nil, fmt.Errorf("unknown sink %q", opts.Kind)
	}
}
