// Package saveerr holds the error taxonomy shared by the save and load paths.
package saveerr

import (
	"errors"
	"fmt"
)

var (
	// ErrHostIO wraps any failure of the host file handle.
	ErrHostIO = errors.New("host I/O error")
	// ErrSizeLimit is returned when a chunk decodes past its ceiling.
	ErrSizeLimit = errors.New("too large chunk")
	// ErrBusy is returned when a save or load is started while another one
	// is still running on the same session.
	ErrBusy = errors.New("save or load already in progress")
)

// SizeLimitError reports the cumulative encoded size that broke the ceiling.
type SizeLimitError struct {
	Amount uint64
}

func (e *SizeLimitError) Error() string {
	return fmt.Sprintf("too large chunk: %d", e.Amount)
}

func (e *SizeLimitError) Is(target error) bool { return target == ErrSizeLimit }

type WrongMagicError struct {
	Magic uint16
}

func (e *WrongMagicError) Error() string {
	return fmt.Sprintf("incorrect magic: 0x%x", e.Magic)
}

type VersionError struct {
	Version uint32
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("unsupported (newer?) version %d", e.Version)
}

// CorruptedError is any structurally invalid content: an id outside its
// directory, an unknown tag, a count that does not fit.
type CorruptedError struct {
	Info string
}

func (e *CorruptedError) Error() string {
	return fmt.Sprintf("invalid save data (%s)", e.Info)
}

func Corrupted(format string, args ...any) error {
	return &CorruptedError{Info: fmt.Sprintf(format, args...)}
}

// InvalidPointerError means a live pointer was not found in its directory.
// This is a bug in the live state, never a property of the save file.
type InvalidPointerError struct {
	Kind string
}

func (e *InvalidPointerError) Error() string {
	return fmt.Sprintf("internal error: invalid %s pointer", e.Kind)
}

// VariantError means a tagged field holds a variant that disagrees with the
// discriminant derived from its owner.
type VariantError struct {
	Field string
	Want  string
	Got   string
}

func (e *VariantError) Error() string {
	return fmt.Sprintf("internal error: %s holds %s, expected %s", e.Field, e.Got, e.Want)
}

// IsFormat reports whether err was raised by the chunk envelope checks.
func IsFormat(err error) bool {
	var magic *WrongMagicError
	var version *VersionError
	return errors.As(err, &magic) || errors.As(err, &version)
}

// Reason maps err to a short bounded label for logs and metrics.
func Reason(err error) string {
	var (
		corrupt *CorruptedError
		ptr     *InvalidPointerError
		variant *VariantError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrBusy):
		return "busy"
	case errors.Is(err, ErrHostIO):
		return "io"
	case IsFormat(err):
		return "format"
	case errors.Is(err, ErrSizeLimit):
		return "size"
	case errors.As(err, &corrupt):
		return "corrupt"
	case errors.As(err, &ptr), errors.As(err, &variant):
		return "internal"
	default:
		return "other"
	}
}
