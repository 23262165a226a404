package ruiden

import (
	"github.com/tetragramaton/ruiden-go/internal/codec"
	"github.com/tetragramaton/ruiden-go/internal/model"
	"github.com/tetragramaton/ruiden-go/internal/register"
)

// Initialization is the decoded identity block.
type Initialization struct {
	ID uint16 `json:"id" cbor:"1,keyasint"`
	SN string `json:"sn" cbor:"2,keyasint"`
	FW uint16 `json:"fw" cbor:"3,keyasint"`
}

// Reading is a register value scaled into physical units.
// Valid is false when the device model has no known multiplier.
type Reading struct {
	Raw   uint16  `json:"raw" cbor:"1,keyasint"`
	Value float32 `json:"value" cbor:"2,keyasint"`
	Valid bool    `json:"valid" cbor:"3,keyasint"`
}

// Information is the decoded telemetry snapshot.
type Information struct {
	ID    uint16      `json:"id" cbor:"1,keyasint"`
	SN    string      `json:"sn" cbor:"2,keyasint"`
	FW    uint16      `json:"fw" cbor:"3,keyasint"`
	Model model.Model `json:"model" cbor:"4,keyasint"`
	VMul  float32     `json:"v_mul" cbor:"5,keyasint"`
	IMul  float32     `json:"i_mul" cbor:"6,keyasint"`

	// Temperature pairs, sign word high.
	IntC uint32 `json:"int_c" cbor:"7,keyasint"`
	IntF uint32 `json:"int_f" cbor:"8,keyasint"`
	ExtC uint32 `json:"ext_c" cbor:"9,keyasint"`
	ExtF uint32 `json:"ext_f" cbor:"10,keyasint"`

	VSet Reading `json:"v_set" cbor:"11,keyasint"`
	ISet Reading `json:"i_set" cbor:"12,keyasint"`
	VOut Reading `json:"v_out" cbor:"13,keyasint"`
	IOut Reading `json:"i_out" cbor:"14,keyasint"`

	POut uint32 `json:"p_out" cbor:"15,keyasint"`
	Ah   uint32 `json:"ah" cbor:"16,keyasint"`
	Wh   uint32 `json:"wh" cbor:"17,keyasint"`

	VIn     uint16 `json:"v_in" cbor:"18,keyasint"`
	Keypad  uint16 `json:"keypad" cbor:"19,keyasint"`
	Protect uint16 `json:"protect" cbor:"20,keyasint"`
	CVCC    uint16 `json:"cv_cc" cbor:"21,keyasint"`
	Output  uint16 `json:"output" cbor:"22,keyasint"`
	IRange  uint16 `json:"i_range" cbor:"23,keyasint"`
}

// Calibrated reports whether scaled readings can be trusted.
func (i Information) Calibrated() bool {
	return i.VMul != 0 && i.IMul != 0
}

// IntCelsius returns the signed internal temperature in °C.
func (i Information) IntCelsius() int32 { return codec.SignedMagnitude(i.IntC) }

// ExtCelsius returns the signed external probe temperature in °C.
func (i Information) ExtCelsius() int32 { return codec.SignedMagnitude(i.ExtC) }

// OutputEnabled reports whether the output stage is on.
func (i Information) OutputEnabled() bool { return i.Output != 0 }

// Init returns the identity part of the snapshot.
func (i Information) Init() Initialization {
	return Initialization{ID: i.ID, SN: i.SN, FW: i.FW}
}

func scale(raw uint16, mul float32) Reading {
	v, err := codec.Scale(raw, mul)
	if err != nil {
		return Reading{Raw: raw}
	}
	return Reading{Raw: raw, Value: v, Valid: true}
}

// window is a contiguous register block read in one exchange.
type window struct {
	base  register.Register
	words []uint16
}

func (w window) word(r register.Register) (uint16, error) {
	off := r.Offset(w.base)
	if off < 0 || off >= len(w.words) {
		return 0, decodeErr(r.String(), ErrBlockLength)
	}
	return w.words[off], nil
}

func (w window) pair(high register.Register) ([]uint16, error) {
	off := high.Offset(w.base)
	if off < 0 || off+2 > len(w.words) {
		return nil, decodeErr(high.String(), ErrBlockLength)
	}
	return w.words[off : off+2], nil
}

func (w window) combined(high register.Register) (uint32, error) {
	words, err := w.pair(high)
	if err != nil {
		return 0, err
	}
	v, err := codec.Pair(words)
	if err != nil {
		return 0, decodeErr(high.String(), err)
	}
	return v, nil
}

func resolveModel(id uint16, override model.Model) (model.Model, float32, float32) {
	m, vMul, iMul := model.Resolve(id)
	if m == model.Unknown && override != model.Unknown {
		m = override
		vMul, iMul = m.Multipliers()
	}
	return m, vMul, iMul
}

func decodeInit(words []uint16) (Initialization, error) {
	w := window{base: register.ID, words: words}
	if _, qty := register.Span(register.ID, register.FW); len(words) != int(qty) {
		return Initialization{}, decodeErr("init block", ErrBlockLength)
	}

	snWords, err := w.pair(register.SNH)
	if err != nil {
		return Initialization{}, err
	}
	sn, err := codec.Serial(snWords)
	if err != nil {
		return Initialization{}, decodeErr(register.SNH.String(), err)
	}

	return Initialization{
		ID: words[register.ID.Offset(register.ID)],
		SN: sn,
		FW: words[register.FW.Offset(register.ID)],
	}, nil
}

func decodeInfo(words []uint16, override model.Model) (Information, error) {
	if _, qty := register.Span(infoFirst, infoLast); len(words) != int(qty) {
		return Information{}, decodeErr("info block", ErrBlockLength)
	}
	w := window{base: infoFirst, words: words}

	ident, err := decodeInit(words[:register.FW.Offset(infoFirst)+1])
	if err != nil {
		return Information{}, err
	}

	info := Information{ID: ident.ID, SN: ident.SN, FW: ident.FW}
	info.Model, info.VMul, info.IMul = resolveModel(info.ID, override)

	pairs := []struct {
		dst  *uint32
		high register.Register
	}{
		{&info.IntC, register.IntCS},
		{&info.IntF, register.IntFS},
		{&info.ExtC, register.ExtCS},
		{&info.ExtF, register.ExtFS},
		{&info.POut, register.POutH},
		{&info.Ah, register.AhH},
		{&info.Wh, register.WhH},
	}
	for _, p := range pairs {
		if *p.dst, err = w.combined(p.high); err != nil {
			return Information{}, err
		}
	}

	scaled := []struct {
		dst *Reading
		reg register.Register
		mul float32
	}{
		{&info.VSet, register.VSet, info.VMul},
		{&info.ISet, register.ISet, info.IMul},
		{&info.VOut, register.VOut, info.VMul},
		{&info.IOut, register.IOut, info.IMul},
	}
	for _, s := range scaled {
		raw, err := w.word(s.reg)
		if err != nil {
			return Information{}, err
		}
		*s.dst = scale(raw, s.mul)
	}

	plain := []struct {
		dst *uint16
		reg register.Register
	}{
		{&info.VIn, register.VIn},
		{&info.Keypad, register.Keypad},
		{&info.Protect, register.Protect},
		{&info.CVCC, register.CVCC},
		{&info.Output, register.Output},
		{&info.IRange, register.IRange},
	}
	for _, p := range plain {
		if *p.dst, err = w.word(p.reg); err != nil {
			return Information{}, err
		}
	}

	return info, nil
}
