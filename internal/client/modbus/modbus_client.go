package modbus

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/goburrow/modbus"
	"github.com/goburrow/serial"
	"github.com/rs/zerolog"

	modbusIface "github.com/tetragramaton/ruiden-go/internal/interface/modbus"
	"github.com/tetragramaton/ruiden-go/internal/register"
)

type Config struct {
	Mode string // "rtu" or "tcp" (Modbus TCP gateway)

	// RTU
	Port     string
	Baud     int
	DataBits int
	Parity   string // "N","E","O"
	StopBits int
	RS485    bool

	// TCP
	TCPAddr string // "192.168.1.10:502"

	SlaveID     byte
	Timeout     time.Duration
	IdleTimeout time.Duration
}

// handler serialises exchanges over one goburrow client. Modbus RTU is a
// strict request/response protocol on a half-duplex line.
type handler struct {
	mu      sync.Mutex
	api     modbusIface.API
	closeFn func() error
	logger  zerolog.Logger
}

var _ modbusIface.Client = (*handler)(nil)

func NewHandler(cfg Config, logger zerolog.Logger) (modbusIface.Client, error) {
	logger = logger.With().Str("component", "modbus").Logger()
	frameLog := log.New(logger.Level(zerolog.TraceLevel), "", 0)

	if cfg.Mode == "tcp" {
		th := modbus.NewTCPClientHandler(cfg.TCPAddr)
		th.SlaveId = cfg.SlaveID
		th.Timeout = cfg.Timeout
		th.IdleTimeout = cfg.IdleTimeout
		if logger.GetLevel() <= zerolog.TraceLevel {
			th.Logger = frameLog
		}
		if err := th.Connect(); err != nil {
			return nil, fmt.Errorf("connect %s: %w", cfg.TCPAddr, err)
		}
		logger.Info().Str("addr", cfg.TCPAddr).Uint8("slave_id", cfg.SlaveID).Msg("modbus tcp connected")
		return NewWithAPI(modbus.NewClient(th), th.Close, logger), nil
	}

	rh := modbus.NewRTUClientHandler(cfg.Port)
	rh.Config = serial.Config{
		Address:  cfg.Port,
		BaudRate: cfg.Baud,
		DataBits: cfg.DataBits,
		Parity:   cfg.Parity,
		StopBits: cfg.StopBits,
		Timeout:  cfg.Timeout,
		RS485:    serial.RS485Config{Enabled: cfg.RS485},
	}
	rh.SlaveId = cfg.SlaveID
	rh.IdleTimeout = cfg.IdleTimeout
	if logger.GetLevel() <= zerolog.TraceLevel {
		rh.Logger = frameLog
	}
	if err := rh.Connect(); err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Port, err)
	}
	logger.Info().
		Str("port", cfg.Port).
		Int("baud", cfg.Baud).
		Uint8("slave_id", cfg.SlaveID).
		Msg("modbus rtu connected")

	return NewWithAPI(modbus.NewClient(rh), rh.Close, logger), nil
}

// NewWithAPI wraps an already connected byte-level client.
func NewWithAPI(api modbusIface.API, closeFn func() error, logger zerolog.Logger) modbusIface.Client {
	if closeFn == nil {
		closeFn = func() error { return nil }
	}
	return &handler{api: api, closeFn: closeFn, logger: logger}
}

func (h *handler) ReadHoldingRegisters(ctx context.Context, address, quantity uint16) ([]uint16, error) {
	if quantity == 0 || quantity > register.MaxReadQuantity {
		return nil, transportErr("read", address, quantity, fmt.Errorf("%w: %d", modbusIface.ErrQuantity, quantity))
	}
	if err := ctx.Err(); err != nil {
		return nil, transportErr("read", address, quantity, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	start := time.Now()
	res, err := h.api.ReadHoldingRegisters(address, quantity)
	if err != nil {
		h.logger.Debug().Err(err).Uint16("addr", address).Uint16("qty", quantity).Msg("read failed")
		return nil, transportErr("read", address, quantity, err)
	}
	if len(res) != int(quantity)*2 {
		return nil, transportErr("read", address, quantity,
			fmt.Errorf("short response: got %d bytes, want %d", len(res), int(quantity)*2))
	}
	h.logger.Trace().
		Uint16("addr", address).
		Uint16("qty", quantity).
		Dur("took", time.Since(start)).
		Msg("read")

	return unpackRegisters(res), nil
}

func (h *handler) WriteRegisters(ctx context.Context, address uint16, words []uint16) error {
	qty := uint16(len(words))
	if len(words) == 0 || len(words) > register.MaxWriteQuantity {
		return transportErr("write", address, qty, fmt.Errorf("%w: %d", modbusIface.ErrQuantity, len(words)))
	}
	if err := ctx.Err(); err != nil {
		return transportErr("write", address, qty, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	var err error
	if len(words) == 1 {
		_, err = h.api.WriteSingleRegister(address, words[0])
	} else {
		_, err = h.api.WriteMultipleRegisters(address, qty, packRegisters(words))
	}
	if err != nil {
		h.logger.Debug().Err(err).Uint16("addr", address).Uint16("qty", qty).Msg("write failed")
		return transportErr("write", address, qty, err)
	}
	return nil
}

func (h *handler) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closeFn()
}

func transportErr(op string, address, quantity uint16, err error) error {
	var mbErr *modbus.ModbusError
	if errors.As(err, &mbErr) {
		err = &modbusIface.Exception{Function: mbErr.FunctionCode, Code: mbErr.ExceptionCode}
	}
	return &modbusIface.TransportError{Op: op, Address: address, Quantity: quantity, Err: err}
}

// Modbus register memory order (BIG-ENDIAN)
func packRegisters(regs []uint16) []byte {
	out := make([]byte, len(regs)*2)
	for i, r := range regs {
		out[2*i] = byte(r >> 8)
		out[2*i+1] = byte(r)
	}
	return out
}

func unpackRegisters(data []byte) []uint16 {
	n := len(data) / 2
	out := make([]uint16, n)
	for i := 0; i < n; i++ {
		out[i] = uint16(data[2*i])<<8 | uint16(data[2*i+1])
	}
	return out
}
