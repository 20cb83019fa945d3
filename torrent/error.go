package torrent

import "errors"

var (
	// ErrTorrentNotFound is returned when there is no torrent with the given id.
	ErrTorrentNotFound = errors.New("torrent not found")
	// ErrInvalidState is returned when an operation is not allowed in the current status of the torrent.
	ErrInvalidState = errors.New("invalid torrent state")
	// ErrLimitExceeded is returned for speed limits that are negative or larger than Config.MaxSpeedLimit.
	ErrLimitExceeded = errors.New("speed limit out of range")
)

// InputError is returned from Session.AddTorrent and Session.AddURI methods when there is problem with the input.
type InputError struct {
	err error
}

func newInputError(err error) *InputError {
	return &InputError{
		err: err,
	}
}

// Error implements error interface.
func (e *InputError) Error() string {
	return "input error: " + e.err.Error()
}

// Unwrap returns the underlying error.
func (e *InputError) Unwrap() error {
	return e.err
}
