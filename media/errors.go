// SPDX-License-Identifier: EPL-2.0

package media

import (
	"errors"
	"fmt"
	"io"
)

// ErrorKind classifies an Error.
type ErrorKind int

const (
	KindIO ErrorKind = iota + 1
	KindDecode
	KindUnsupported
	KindLimit
	KindSeek
	KindResetRequired
	KindEndOfFile
)

func (k ErrorKind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindDecode:
		return "decode"
	case KindUnsupported:
		return "unsupported"
	case KindLimit:
		return "limit"
	case KindSeek:
		return "seek"
	case KindResetRequired:
		return "reset required"
	case KindEndOfFile:
		return "end of file"
	default:
		return "unknown"
	}
}

// SeekErrorKind is the reason a seek failed.
type SeekErrorKind int

const (
	SeekUnseekable SeekErrorKind = iota + 1
	SeekForwardOnly
	SeekOutOfRange
	SeekInvalidTrack
)

func (k SeekErrorKind) String() string {
	switch k {
	case SeekUnseekable:
		return "stream is not seekable"
	case SeekForwardOnly:
		return "stream can only be seeked forward"
	case SeekOutOfRange:
		return "requested seek timestamp is out-of-range for stream"
	case SeekInvalidTrack:
		return "invalid track id"
	default:
		return "unknown"
	}
}

// Error is the error type returned by every reader, decoder and stream in
// this module. Messages are static strings.
type Error struct {
	Kind  ErrorKind
	Msg   string
	Value uint64
	Seek  SeekErrorKind
	Err   error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindIO:
		if e.Err != nil {
			return fmt.Sprintf("io error: %v", e.Err)
		}
		return "io error: " + e.Msg
	case KindDecode:
		return "malformed stream: " + e.Msg
	case KindUnsupported:
		return "unsupported feature: " + e.Msg
	case KindLimit:
		if e.Value > 0 {
			return fmt.Sprintf("limit reached: %s (%d)", e.Msg, e.Value)
		}
		return "limit reached: " + e.Msg
	case KindSeek:
		return "seek error: " + e.Seek.String()
	case KindResetRequired:
		return "decoder needs to be reset"
	case KindEndOfFile:
		return "end of stream"
	default:
		return "unknown error: " + e.Msg
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind. A target with a message or a seek reason only matches
// errors carrying the same value.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	if t.Msg != "" && t.Msg != e.Msg {
		return false
	}
	if t.Seek != 0 && t.Seek != e.Seek {
		return false
	}

	return true
}

var (
	ErrIO            = &Error{Kind: KindIO}
	ErrDecode        = &Error{Kind: KindDecode}
	ErrUnsupported   = &Error{Kind: KindUnsupported}
	ErrLimit         = &Error{Kind: KindLimit}
	ErrSeek          = &Error{Kind: KindSeek}
	ErrResetRequired = &Error{Kind: KindResetRequired}
	ErrEndOfFile     = &Error{Kind: KindEndOfFile, Err: io.EOF}
)

func DecodeError(msg string) error {
	return &Error{Kind: KindDecode, Msg: msg}
}

func Unsupported(msg string) error {
	return &Error{Kind: KindUnsupported, Msg: msg}
}

func LimitError(constraint string, value uint64) error {
	return &Error{Kind: KindLimit, Msg: constraint, Value: value}
}

func SeekError(kind SeekErrorKind) error {
	return &Error{Kind: KindSeek, Seek: kind}
}

func ResetRequired() error {
	return &Error{Kind: KindResetRequired}
}

func EndOfFile() error {
	return &Error{Kind: KindEndOfFile, Err: io.EOF}
}

// IOError wraps a transport error. io.EOF becomes an end of file error and
// errors that already belong to this package pass through unchanged.
func IOError(err error) error {
	if err == nil {
		return nil
	}

	var me *Error
	if errors.As(err, &me) {
		return err
	}
	if errors.Is(err, io.EOF) {
		return EndOfFile()
	}

	return &Error{Kind: KindIO, Err: err}
}

// KindOf returns the kind of err, or zero when err is not an *Error.
func KindOf(err error) ErrorKind {
	var me *Error
	if errors.As(err, &me) {
		return me.Kind
	}

	return 0
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// IsEndOfStream reports whether err marks the normal end of a stream.
func IsEndOfStream(err error) bool {
	return errors.Is(err, ErrEndOfFile) || errors.Is(err, io.EOF)
}
