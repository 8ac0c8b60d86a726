package cli

import (
	"io"
	"os"

	"github.com/matzehuels/mvnkit/pkg/errors"
)

// nopCloser wraps an io.Writer with a no-op Close method.
type nopCloser struct{ io.Writer }

// Close implements io.Closer with a no-op.
func (nopCloser) Close() error { return nil }

// openOutput returns a WriteCloser for path. An empty path writes to stdout,
// which the caller passes in so commands can be run against a buffer.
func openOutput(stdout io.Writer, path string) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "create %s", path)
	}
	return f, nil
}
