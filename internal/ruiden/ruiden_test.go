package ruiden

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	modbusIface "github.com/tetragramaton/ruiden-go/internal/interface/modbus"
	"github.com/tetragramaton/ruiden-go/internal/interface/modbus/mocks"
	"github.com/tetragramaton/ruiden-go/internal/model"
	"github.com/tetragramaton/ruiden-go/internal/register"
)

// ---- fake register memory ----

type fakeDevice struct {
	regs   [128]uint16
	reads  int
	writes int
	// failAt makes the n-th read (1-based) fail; 0 disables.
	failAt int
}

var errLink = errors.New("serial: timeout")

func (f *fakeDevice) ReadHoldingRegisters(ctx context.Context, address, quantity uint16) ([]uint16, error) {
	f.reads++
	if f.failAt != 0 && f.reads == f.failAt {
		return nil, &modbusIface.TransportError{Op: "read", Address: address, Quantity: quantity, Err: errLink}
	}
	if err := ctx.Err(); err != nil {
		return nil, &modbusIface.TransportError{Op: "read", Address: address, Quantity: quantity, Err: err}
	}
	out := make([]uint16, quantity)
	copy(out, f.regs[address:int(address)+int(quantity)])
	return out, nil
}

func (f *fakeDevice) WriteRegisters(_ context.Context, address uint16, words []uint16) error {
	f.writes++
	copy(f.regs[address:], words)
	return nil
}

func (f *fakeDevice) Close() error { return nil }

func (f *fakeDevice) set(r register.Register, v uint16) { f.regs[r] = v }

// rd6018 is a powered RD6018 at 12.00 V / 1.50 A set, 11.98 V / 0.75 A out.
func rd6018() *fakeDevice {
	f := &fakeDevice{}
	f.set(register.ID, 60181)
	f.set(register.SNH, 0)
	f.set(register.SNL, 12)
	f.set(register.FW, 600)
	f.set(register.IntC, 31)
	f.set(register.IntF, 88)
	f.set(register.ExtCS, 1)
	f.set(register.ExtC, 5)
	f.set(register.ExtF, 23)
	f.set(register.VSet, 1200)
	f.set(register.ISet, 150)
	f.set(register.VOut, 1198)
	f.set(register.IOut, 75)
	f.set(register.POutL, 898)
	f.set(register.VIn, 2400)
	f.set(register.Output, 1)
	f.set(register.WhH, 1)
	f.set(register.WhL, 2)
	return f
}

// ---- tests ----

func TestFetchInit_EndToEnd(t *testing.T) {
	dev := &fakeDevice{}
	copy(dev.regs[:], []uint16{60181, 0, 12, 600})
	r := New(dev)

	got, err := r.FetchInit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Initialization{ID: 60181, SN: "00000012", FW: 600}, got)
	assert.Equal(t, got, r.Init())
	assert.Equal(t, 1, dev.reads)
}

func TestFetchInfo_DecodesAndScales(t *testing.T) {
	dev := rd6018()
	r := New(dev)

	info, err := r.FetchInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, dev.reads)

	assert.Equal(t, model.RD6018, info.Model)
	assert.Equal(t, float32(100), info.VMul)
	assert.Equal(t, float32(100), info.IMul)
	assert.True(t, info.Calibrated())
	assert.Equal(t, "00000012", info.SN)

	assert.Equal(t, uint32(31), info.IntC)
	assert.Equal(t, uint32(88), info.IntF)
	assert.Equal(t, uint32(0x00010005), info.ExtC)
	assert.Equal(t, int32(-5), info.ExtCelsius())
	assert.Equal(t, int32(31), info.IntCelsius())

	assert.True(t, info.VSet.Valid)
	assert.InDelta(t, 12.00, info.VSet.Value, 1e-4)
	assert.InDelta(t, 1.50, info.ISet.Value, 1e-4)
	assert.InDelta(t, 11.98, info.VOut.Value, 1e-4)
	assert.InDelta(t, 0.75, info.IOut.Value, 1e-4)
	assert.Equal(t, uint16(1198), info.VOut.Raw)

	assert.Equal(t, uint32(898), info.POut)
	assert.Equal(t, uint32(0x00010002), info.Wh)
	assert.Equal(t, uint16(2400), info.VIn)
	assert.True(t, info.OutputEnabled())
	assert.Equal(t, info, r.Info())
}

func TestFetchInfo_FloatDivision(t *testing.T) {
	dev := rd6018()
	dev.set(register.VSet, 5)
	r := New(dev)

	info, err := r.FetchInfo(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 0.05, info.VSet.Value, 1e-7)
}

func TestFetchInfo_UnknownModelMarksReadingsInvalid(t *testing.T) {
	dev := rd6018()
	dev.set(register.ID, 12345)
	r := New(dev)

	info, err := r.FetchInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.Unknown, info.Model)
	assert.False(t, info.Calibrated())
	for _, rd := range []Reading{info.VSet, info.ISet, info.VOut, info.IOut} {
		assert.False(t, rd.Valid)
		assert.Zero(t, rd.Value)
	}
	assert.Equal(t, uint16(1200), info.VSet.Raw)
}

func TestFetchInfo_ModelOverride(t *testing.T) {
	dev := rd6018()
	dev.set(register.ID, 12345)
	r := New(dev, WithModelOverride(model.RD6006))

	info, err := r.FetchInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.RD6006, info.Model)
	assert.InDelta(t, 0.15, info.ISet.Value, 1e-6)
}

func TestFetchAll_EqualsInitThenInfo(t *testing.T) {
	a := New(rd6018())
	_, err := a.FetchInit(context.Background())
	require.NoError(t, err)
	_, err = a.FetchInfo(context.Background())
	require.NoError(t, err)

	dev := rd6018()
	b := New(dev)
	require.NoError(t, b.FetchAll(context.Background()))

	assert.Equal(t, a.Init(), b.Init())
	assert.Equal(t, a.Info(), b.Info())
	assert.Equal(t, 2, dev.reads)
}

func TestFetch_FailureKeepsSnapshot(t *testing.T) {
	dev := rd6018()
	r := New(dev)
	require.NoError(t, r.FetchAll(context.Background()))
	prevInit, prevInfo := r.Init(), r.Info()

	dev.set(register.VSet, 999)

	dev.failAt = dev.reads + 1
	_, err := r.FetchInit(context.Background())
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.ErrorIs(t, err, errLink)

	dev.failAt = dev.reads + 1
	_, err = r.FetchInfo(context.Background())
	require.Error(t, err)

	// second exchange of FetchAll fails: the first must not leak through
	dev.set(register.FW, 601)
	dev.failAt = dev.reads + 2
	require.Error(t, r.FetchAll(context.Background()))

	assert.Equal(t, prevInit, r.Init())
	assert.Equal(t, prevInfo, r.Info())
}

func TestFetchAll_CancelledContext(t *testing.T) {
	r := New(rd6018())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, r.FetchAll(ctx), context.Canceled)
	assert.Equal(t, Information{}, r.Info())
	assert.Equal(t, Initialization{}, r.Init())
}

func TestFetchInit_ShortBlockIsDecodeError(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	client.EXPECT().ReadHoldingRegisters(gomock.Any(), uint16(0), uint16(4)).Return([]uint16{60181, 0}, nil)

	r := New(client)
	_, err := r.FetchInit(context.Background())
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.ErrorIs(t, err, ErrBlockLength)
	assert.Equal(t, Initialization{}, r.Init())
}

func TestDecodeInit_Lengths(t *testing.T) {
	_, err := decodeInit([]uint16{1, 2, 3})
	assert.ErrorIs(t, err, ErrBlockLength)

	got, err := decodeInit([]uint16{60181, 0x0001, 0x0002, 600})
	require.NoError(t, err)
	assert.Equal(t, "00065538", got.SN)
}

func TestGetters_DoNotTouchSnapshot(t *testing.T) {
	dev := rd6018()
	r := New(dev)
	ctx := context.Background()

	id, err := r.GetID(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint16(60181), id)

	fw, err := r.GetFW(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint16(600), fw)

	sn, err := r.GetSN(ctx)
	require.NoError(t, err)
	assert.Equal(t, "00000012", sn)

	m, err := r.GetModel(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.RD6018, m)

	intC, err := r.GetIntC(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(31), intC)

	intF, err := r.GetIntF(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(88), intF)

	extC, err := r.GetExtC(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x00010005), extC)

	extF, err := r.GetExtF(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(23), extF)

	vset, err := r.GetVSet(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 12.0, vset.Value, 1e-4)

	iset, err := r.GetISet(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, iset.Value, 1e-4)

	vout, err := r.GetVOut(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 11.98, vout.Value, 1e-4)

	iout, err := r.GetIOut(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, iout.Value, 1e-4)

	assert.Equal(t, Initialization{}, r.Init())
	assert.Equal(t, Information{}, r.Info())
}

func TestGetScaled_UnknownModel(t *testing.T) {
	dev := rd6018()
	dev.set(register.ID, 1)
	r := New(dev)

	rd, err := r.GetVOut(context.Background())
	require.NoError(t, err)
	assert.False(t, rd.Valid)
	assert.Equal(t, uint16(1198), rd.Raw)
}

func TestWriteOne_WriteMany(t *testing.T) {
	dev := rd6018()
	r := New(dev)
	ctx := context.Background()

	require.NoError(t, r.WriteOne(ctx, register.VSet, 500))
	require.NoError(t, r.WriteMany(ctx, register.M0V, []uint16{500, 100}))

	assert.Equal(t, uint16(500), dev.regs[register.VSet])
	assert.Equal(t, uint16(500), dev.regs[register.M0V])
	assert.Equal(t, uint16(100), dev.regs[register.M0I])
	assert.Equal(t, 2, dev.writes)
}

func TestReadOne_TransportErrorPropagates(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	want := &modbusIface.TransportError{Op: "read", Err: &modbusIface.Exception{Function: 0x83, Code: 0x02}}
	client.EXPECT().ReadHoldingRegisters(gomock.Any(), uint16(register.FW), uint16(1)).Return(nil, want)

	_, err := New(client).ReadOne(context.Background(), register.FW)
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, uint16(2), te.Code())
}
