package formats

import (
	"errors"
	"fmt"
)

// DecodeErrorKind classifies decoder failures.
type DecodeErrorKind int

const (
	// UnsupportedVersion means the signature matched but the file uses a
	// format revision this decoder does not understand.
	UnsupportedVersion DecodeErrorKind = iota
	// CorruptHeader means a header field is internally inconsistent or
	// out of range.
	CorruptHeader
	// TruncatedData means the payload ended before the sample count
	// promised by the header.
	TruncatedData
	// UnknownEncoding means header text could not be transcoded by any
	// configured legacy encoding.
	UnknownEncoding
)

func (k DecodeErrorKind) String() string {
	switch k {
	case UnsupportedVersion:
		return "unsupported version"
	case CorruptHeader:
		return "corrupt header"
	case TruncatedData:
		return "truncated data"
	case UnknownEncoding:
		return "unknown encoding"
	}
	return fmt.Sprintf("decode error kind %d", int(k))
}

// DecodeError reports a malformed or unsupported input file. Decode
// errors are always surfaced to the caller and never retried.
type DecodeError struct {
	Format string // registry name of the decoder that failed
	Kind   DecodeErrorKind
	Msg    string
	Err    error // underlying cause, if any
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Format, e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Format, e.Kind, e.Msg)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// decodeErr is shorthand used by the decoders.
func decodeErr(format string, kind DecodeErrorKind, msg string, args ...interface{}) *DecodeError {
	return &DecodeError{Format: format, Kind: kind, Msg: fmt.Sprintf(msg, args...)}
}

// ErrNotRecognized is returned by Decode when no registered decoder
// claims the input signature.
var ErrNotRecognized = errors.New("formats: input does not match any registered format signature")
