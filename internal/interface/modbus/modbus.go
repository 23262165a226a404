package modbus

import (
	"context"
	"errors"
	"fmt"
)

//go:generate mockgen -destination=mocks/mock_modbus.go -package=mocks . API,Client

// API is the part of goburrow's modbus.Client the transport drives.
type API interface {
	ReadHoldingRegisters(address, quantity uint16) (results []byte, err error)
	WriteSingleRegister(address, value uint16) (results []byte, err error)
	WriteMultipleRegisters(address, quantity uint16, value []byte) (results []byte, err error)
}

// Client is a word-level holding register transport bound to one unit.
type Client interface {
	ReadHoldingRegisters(ctx context.Context, address, quantity uint16) ([]uint16, error)
	WriteRegisters(ctx context.Context, address uint16, words []uint16) error
	Close() error
}

// ErrQuantity is wrapped by a TransportError when a request exceeds protocol limits.
var ErrQuantity = errors.New("invalid register quantity")

// TransportError reports a failed request/response exchange.
type TransportError struct {
	Op       string
	Address  uint16
	Quantity uint16
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("modbus %s addr=%d qty=%d: %v", e.Op, e.Address, e.Quantity, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Code returns the Modbus exception code carried by the error, or 0.
func (e *TransportError) Code() uint16 {
	var ex *Exception
	if errors.As(e.Err, &ex) {
		return uint16(ex.Code)
	}
	return 0
}

// Exception is an exception response reported by the device.
type Exception struct {
	Function byte
	Code     byte
}

var exceptionStrings = map[byte]string{
	0x01: "illegal function",
	0x02: "illegal data address",
	0x03: "illegal data value",
	0x04: "server device failure",
	0x05: "acknowledge",
	0x06: "server device busy",
	0x08: "memory parity error",
	0x0A: "gateway path unavailable",
	0x0B: "gateway target failed to respond",
}

func (e *Exception) Error() string {
	s, ok := exceptionStrings[e.Code]
	if !ok {
		s = fmt.Sprintf("unknown exception %02X", e.Code)
	}
	return fmt.Sprintf("exception fc=%d: %s", e.Function, s)
}
