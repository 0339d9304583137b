package bplist17

import (
	"encoding/hex"
	"errors"
	"fmt"
)

var (
	// ErrFormat matches every *FormatError.
	ErrFormat = errors.New("bplist17: malformed document")
	// ErrUnsupportedTag matches every *UnsupportedTagError.
	ErrUnsupportedTag = errors.New("bplist17: unsupported tag")
)

// FormatError reports a structural violation: bad header, container end
// address mismatch, truncated payload, or an integer wider than 64 bits.
type FormatError struct {
	Address int
	Reason  string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("bplist17: malformed document at 0x%x: %s", e.Address, e.Reason)
}

func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// UnsupportedTagError reports a tag byte (or tag plus extension byte) that
// does not belong to the format.
type UnsupportedTagError struct {
	Raw     []byte
	Address int
}

func (e *UnsupportedTagError) Error() string {
	return fmt.Sprintf("bplist17: unsupported type: %s at: 0x%x", hex.EncodeToString(e.Raw), e.Address)
}

func (e *UnsupportedTagError) Is(target error) bool { return target == ErrUnsupportedTag }

func formatErrorf(addr int, format string, args ...any) error {
	return &FormatError{Address: addr, Reason: fmt.Sprintf(format, args...)}
}

// IsStructural reports whether err came from the decoder itself rather than
// from the caller.
func IsStructural(err error) bool {
	return errors.Is(err, ErrFormat) || errors.Is(err, ErrUnsupportedTag)
}
