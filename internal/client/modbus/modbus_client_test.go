package modbus

import (
	"context"
	"errors"
	"testing"

	"github.com/goburrow/modbus"
	"github.com/golang/mock/gomock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	modbusIface "github.com/tetragramaton/ruiden-go/internal/interface/modbus"
	"github.com/tetragramaton/ruiden-go/internal/interface/modbus/mocks"
)

func newTestClient(t *testing.T) (*mocks.MockAPI, modbusIface.Client) {
	t.Helper()
	ctrl := gomock.NewController(t)
	api := mocks.NewMockAPI(ctrl)
	return api, NewWithAPI(api, nil, zerolog.Nop())
}

func TestReadHoldingRegisters_DecodesBigEndian(t *testing.T) {
	api, c := newTestClient(t)
	api.EXPECT().ReadHoldingRegisters(uint16(0), uint16(4)).
		Return([]byte{0xEB, 0x15, 0x00, 0x00, 0x00, 0x0C, 0x02, 0x58}, nil)

	words, err := c.ReadHoldingRegisters(context.Background(), 0, 4)
	require.NoError(t, err)
	assert.Equal(t, []uint16{60181, 0, 12, 600}, words)
}

func TestReadHoldingRegisters_QuantityLimits(t *testing.T) {
	_, c := newTestClient(t)

	for _, qty := range []uint16{0, 126} {
		_, err := c.ReadHoldingRegisters(context.Background(), 0, qty)
		var te *modbusIface.TransportError
		require.ErrorAs(t, err, &te)
		assert.ErrorIs(t, err, modbusIface.ErrQuantity)
		assert.Equal(t, "read", te.Op)
	}
}

func TestReadHoldingRegisters_ShortResponse(t *testing.T) {
	api, c := newTestClient(t)
	api.EXPECT().ReadHoldingRegisters(uint16(4), uint16(2)).Return([]byte{0x00, 0x01}, nil)

	_, err := c.ReadHoldingRegisters(context.Background(), 4, 2)
	var te *modbusIface.TransportError
	assert.ErrorAs(t, err, &te)
}

func TestReadHoldingRegisters_ExceptionCode(t *testing.T) {
	api, c := newTestClient(t)
	api.EXPECT().ReadHoldingRegisters(uint16(200), uint16(1)).
		Return(nil, &modbus.ModbusError{FunctionCode: 0x83, ExceptionCode: 0x02})

	_, err := c.ReadHoldingRegisters(context.Background(), 200, 1)
	var te *modbusIface.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, uint16(2), te.Code())
	assert.Contains(t, err.Error(), "illegal data address")
}

func TestReadHoldingRegisters_TimeoutPassThrough(t *testing.T) {
	api, c := newTestClient(t)
	timeout := errors.New("serial: timeout")
	api.EXPECT().ReadHoldingRegisters(uint16(0), uint16(1)).Return(nil, timeout).Times(1)

	_, err := c.ReadHoldingRegisters(context.Background(), 0, 1)
	assert.ErrorIs(t, err, timeout)
	var te *modbusIface.TransportError
	require.ErrorAs(t, err, &te)
	assert.Zero(t, te.Code())
}

func TestReadHoldingRegisters_CancelledContextSkipsWire(t *testing.T) {
	_, c := newTestClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ReadHoldingRegisters(ctx, 0, 4)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWriteRegisters_SingleUsesFC06(t *testing.T) {
	api, c := newTestClient(t)
	api.EXPECT().WriteSingleRegister(uint16(8), uint16(1200)).Return([]byte{0x04, 0xB0}, nil)

	require.NoError(t, c.WriteRegisters(context.Background(), 8, []uint16{1200}))
}

func TestWriteRegisters_ManyUsesFC16(t *testing.T) {
	api, c := newTestClient(t)
	api.EXPECT().WriteMultipleRegisters(uint16(8), uint16(2), []byte{0x04, 0xB0, 0x00, 0x64}).
		Return([]byte{0x00, 0x02}, nil)

	require.NoError(t, c.WriteRegisters(context.Background(), 8, []uint16{1200, 100}))
}

func TestWriteRegisters_Limits(t *testing.T) {
	_, c := newTestClient(t)

	assert.ErrorIs(t, c.WriteRegisters(context.Background(), 0, nil), modbusIface.ErrQuantity)
	assert.ErrorIs(t, c.WriteRegisters(context.Background(), 0, make([]uint16, 124)), modbusIface.ErrQuantity)
}

func TestClose(t *testing.T) {
	ctrl := gomock.NewController(t)
	closed := 0
	c := NewWithAPI(mocks.NewMockAPI(ctrl), func() error { closed++; return nil }, zerolog.Nop())

	require.NoError(t, c.Close())
	assert.Equal(t, 1, closed)
}
