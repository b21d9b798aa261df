package radio

import (
	"errors"
	"fmt"
)

var (
	// ErrMessageSize indicates the wire form has a wrong length.
	ErrMessageSize = errors.New("invalid message size")
)

// UnrecoverableChannelError indicates a block with more errors than the
// code can correct. The message must be discarded.
type UnrecoverableChannelError struct {
	BlockIndex int
}

// Error implements error.
func (e *UnrecoverableChannelError) Error() string {
	return fmt.Sprintf("unrecoverable channel error in block %d", e.BlockIndex)
}

// InvalidRecordError indicates the message decoded cleanly but the bits
// don't form a valid record.
type InvalidRecordError struct {
	Err error
}

// Error implements error.
func (e *InvalidRecordError) Error() string {
	return "invalid record: " + e.Err.Error()
}

// Unwrap returns the underlying layout error.
func (e *InvalidRecordError) Unwrap() error {
	return e.Err
}

// IsChannelError reports whether err is caused by channel noise.
func IsChannelError(err error) bool {
	var e *UnrecoverableChannelError
	return errors.As(err, &e)
}

// IsRecordError reports whether err is caused by an invalid record.
func IsRecordError(err error) bool {
	var e *InvalidRecordError
	return errors.As(err, &e)
}
