package ruiden

import (
	"context"

	"github.com/tetragramaton/ruiden-go/internal/codec"
	"github.com/tetragramaton/ruiden-go/internal/model"
	"github.com/tetragramaton/ruiden-go/internal/register"
)

// Getters read the minimum register span for one field. They never touch
// the cached snapshots.

func (r *Ruiden) GetID(ctx context.Context) (uint16, error) {
	return r.ReadOne(ctx, register.ID)
}

func (r *Ruiden) GetFW(ctx context.Context) (uint16, error) {
	return r.ReadOne(ctx, register.FW)
}

func (r *Ruiden) GetSN(ctx context.Context) (string, error) {
	words, err := r.ReadMany(ctx, register.SNH.Address(), 2)
	if err != nil {
		return "", err
	}
	sn, err := codec.Serial(words)
	if err != nil {
		return "", decodeErr(register.SNH.String(), err)
	}
	return sn, nil
}

func (r *Ruiden) GetModel(ctx context.Context) (model.Model, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, _, _, err := r.resolve(ctx)
	return m, err
}

func (r *Ruiden) GetIntC(ctx context.Context) (uint32, error) { return r.getPair(ctx, register.IntCS) }
func (r *Ruiden) GetIntF(ctx context.Context) (uint32, error) { return r.getPair(ctx, register.IntFS) }
func (r *Ruiden) GetExtC(ctx context.Context) (uint32, error) { return r.getPair(ctx, register.ExtCS) }
func (r *Ruiden) GetExtF(ctx context.Context) (uint32, error) { return r.getPair(ctx, register.ExtFS) }

func (r *Ruiden) GetVSet(ctx context.Context) (Reading, error) { return r.getScaled(ctx, register.VSet, true) }
func (r *Ruiden) GetISet(ctx context.Context) (Reading, error) { return r.getScaled(ctx, register.ISet, false) }
func (r *Ruiden) GetVOut(ctx context.Context) (Reading, error) { return r.getScaled(ctx, register.VOut, true) }
func (r *Ruiden) GetIOut(ctx context.Context) (Reading, error) { return r.getScaled(ctx, register.IOut, false) }

func (r *Ruiden) getPair(ctx context.Context, high register.Register) (uint32, error) {
	words, err := r.ReadMany(ctx, high.Address(), 2)
	if err != nil {
		return 0, err
	}
	v, err := codec.Pair(words)
	if err != nil {
		return 0, decodeErr(high.String(), err)
	}
	return v, nil
}

// getScaled reads the identity register and reg under one lock so the
// multiplier matches the device that produced the raw value.
func (r *Ruiden) getScaled(ctx context.Context, reg register.Register, voltage bool) (Reading, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, vMul, iMul, err := r.resolve(ctx)
	if err != nil {
		return Reading{}, err
	}
	raw, err := r.readOne(ctx, reg)
	if err != nil {
		return Reading{}, err
	}
	if voltage {
		return scale(raw, vMul), nil
	}
	return scale(raw, iMul), nil
}

func (r *Ruiden) resolve(ctx context.Context) (model.Model, float32, float32, error) {
	id, err := r.readOne(ctx, register.ID)
	if err != nil {
		return model.Unknown, 0, 0, err
	}
	m, vMul, iMul := resolveModel(id, r.override)
	return m, vMul, iMul, nil
}
