package core

import (
	"errors"
	"fmt"
)

// ErrMissingDataset is returned when orchestration starts without loaded
// conversations.
var ErrMissingDataset = errors.New("no data loaded")

// TransientRemoteError wraps a failed call to a remote service. Such errors
// are retried by the retry package.
type TransientRemoteError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransientRemoteError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientRemoteError) Unwrap() error { return e.Err }

// RetryExhaustedError is returned once every attempt of a remote call
// failed. Unwrap yields the error of the final attempt.
type RetryExhaustedError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *RetryExhaustedError) Unwrap() error { return e.Err }

// UnknownSpeakerError reports a turn whose speaker is neither of the two
// conversation participants. It is never retried.
type UnknownSpeakerError struct {
	Speaker string
	Segment string
}

func (e *UnknownSpeakerError) Error() string {
	return fmt.Sprintf("unknown speaker %q in segment %q", e.Speaker, e.Segment)
}

// MissingTimestampError reports a segment without its <key>_date_time field.
type MissingTimestampError struct {
	Segment string
}

func (e *MissingTimestampError) Error() string {
	return fmt.Sprintf("segment %q has no %s_date_time field", e.Segment, e.Segment)
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}
