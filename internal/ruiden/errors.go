package ruiden

import (
	"errors"
	"fmt"

	"github.com/tetragramaton/ruiden-go/internal/codec"
	modbusIface "github.com/tetragramaton/ruiden-go/internal/interface/modbus"
)

// TransportError is returned when the serial exchange fails.
type TransportError = modbusIface.TransportError

var (
	// ErrUnknownModel marks a non-fatal identity mismatch: scaled readings
	// are invalid for this device.
	ErrUnknownModel = errors.New("ruiden: unknown device model")

	// ErrBlockLength is returned when a register block has an unexpected length.
	ErrBlockLength = errors.New("ruiden: unexpected register block length")

	ErrPairLength     = codec.ErrPairLength
	ErrZeroMultiplier = codec.ErrZeroMultiplier
)

// DecodeError is returned when register words cannot be decoded into a field.
type DecodeError struct {
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("ruiden: decode %s: %v", e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func decodeErr(field string, err error) error {
	return &DecodeError{Field: field, Err: err}
}
