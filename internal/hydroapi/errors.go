package hydroapi

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/rewired-gh/hydrowatch/internal/models"
)

// RemoteError describes why one tier of an operation was abandoned.
type RemoteError struct {
	Op         string
	Kind       models.FailureKind
	StatusCode int
	Err        error
}

func (e *RemoteError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d): %v", e.Op, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// errNoEndpoint is returned when the client runs without a backend base URL.
var errNoEndpoint = errors.New("no backend endpoint configured")

// Classify maps an error to the failure taxonomy. A *RemoteError keeps its
// own kind; deadlines and network timeouts are Timeout; everything else is
// NetworkUnavailable.
func Classify(err error) models.FailureKind {
	if err == nil {
		return models.FailureNone
	}

	var re *RemoteError
	if errors.As(err, &re) {
		return re.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return models.FailureTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return models.FailureTimeout
	}
	return models.FailureNetwork
}

func malformed(op string, err error) error {
	return &RemoteError{Op: op, Kind: models.FailureMalformed, Err: err}
}

func wrapTransport(op string, err error) error {
	var re *RemoteError
	if errors.As(err, &re) {
		return err
	}
	return &RemoteError{Op: op, Kind: Classify(err), Err: err}
}
