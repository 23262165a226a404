// Package ruiden drives an RD60xx power supply over a holding-register
// transport and decodes its identity and telemetry blocks.
//
// A Ruiden serialises every operation: Modbus RTU allows one outstanding
// request on the line. Fetches replace the cached snapshot only when every
// read and decode step succeeded.
package ruiden

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	modbusIface "github.com/tetragramaton/ruiden-go/internal/interface/modbus"
	"github.com/tetragramaton/ruiden-go/internal/model"
	"github.com/tetragramaton/ruiden-go/internal/register"
)

const (
	infoFirst = register.ID
	infoLast  = register.WhL
)

type Ruiden struct {
	mu     sync.Mutex
	client modbusIface.Client
	logger zerolog.Logger

	override model.Model

	init Initialization
	info Information
}

type Option func(*Ruiden)

func WithLogger(logger zerolog.Logger) Option {
	return func(r *Ruiden) {
		r.logger = logger.With().Str("component", "ruiden").Logger()
	}
}

// WithModelOverride selects the multipliers used when the identity register
// does not match a known model.
func WithModelOverride(m model.Model) Option {
	return func(r *Ruiden) { r.override = m }
}

func New(client modbusIface.Client, opts ...Option) *Ruiden {
	r := &Ruiden{
		client: client,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Close releases the transport.
func (r *Ruiden) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.client.Close()
}

// Init returns the last fetched identity block.
func (r *Ruiden) Init() Initialization {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.init
}

// Info returns the last fetched telemetry snapshot.
func (r *Ruiden) Info() Information {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.info
}

/* Wrappers */

// ReadMany reads quantity consecutive holding registers starting at address.
func (r *Ruiden) ReadMany(ctx context.Context, address, quantity uint16) ([]uint16, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.readMany(ctx, address, quantity)
}

// ReadOne reads a single register.
func (r *Ruiden) ReadOne(ctx context.Context, reg register.Register) (uint16, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.readOne(ctx, reg)
}

// WriteMany writes words starting at reg.
func (r *Ruiden) WriteMany(ctx context.Context, reg register.Register, words []uint16) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.client.WriteRegisters(ctx, reg.Address(), words)
}

// WriteOne writes a single register.
func (r *Ruiden) WriteOne(ctx context.Context, reg register.Register, word uint16) error {
	return r.WriteMany(ctx, reg, []uint16{word})
}

func (r *Ruiden) readMany(ctx context.Context, address, quantity uint16) ([]uint16, error) {
	words, err := r.client.ReadHoldingRegisters(ctx, address, quantity)
	if err != nil {
		return nil, err
	}
	if len(words) != int(quantity) {
		return nil, decodeErr(fmt.Sprintf("read %d@%d", quantity, address), ErrBlockLength)
	}
	return words, nil
}

func (r *Ruiden) readOne(ctx context.Context, reg register.Register) (uint16, error) {
	words, err := r.readMany(ctx, reg.Address(), 1)
	if err != nil {
		return 0, err
	}
	return words[0], nil
}

func (r *Ruiden) readSpan(ctx context.Context, first, last register.Register) ([]uint16, error) {
	address, quantity := register.Span(first, last)
	return r.readMany(ctx, address, quantity)
}

/* Fetchers */

// FetchInit reads and decodes the identity block.
func (r *Ruiden) FetchInit(ctx context.Context) (Initialization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ident, err := r.fetchInit(ctx)
	if err != nil {
		return Initialization{}, err
	}
	r.init = ident
	return ident, nil
}

// FetchInfo reads and decodes the telemetry block.
func (r *Ruiden) FetchInfo(ctx context.Context) (Information, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, err := r.fetchInfo(ctx)
	if err != nil {
		return Information{}, err
	}
	r.info = info
	return info, nil
}

// FetchAll reads both blocks in two exchanges. Neither snapshot changes
// unless both succeed.
func (r *Ruiden) FetchAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ident, err := r.fetchInit(ctx)
	if err != nil {
		return err
	}
	info, err := r.fetchInfo(ctx)
	if err != nil {
		return err
	}
	r.init, r.info = ident, info
	return nil
}

func (r *Ruiden) fetchInit(ctx context.Context) (Initialization, error) {
	words, err := r.readSpan(ctx, register.ID, register.FW)
	if err != nil {
		return Initialization{}, err
	}
	return decodeInit(words)
}

func (r *Ruiden) fetchInfo(ctx context.Context) (Information, error) {
	words, err := r.readSpan(ctx, infoFirst, infoLast)
	if err != nil {
		return Information{}, err
	}
	info, err := decodeInfo(words, r.override)
	if err != nil {
		return Information{}, err
	}
	if !info.Calibrated() {
		r.logger.Warn().
			Err(ErrUnknownModel).
			Uint16("id", info.ID).
			Msg("scaled readings marked invalid")
	}
	return info, nil
}
