// Package model resolves the identity register to an RD60xx variant and
// its voltage/current scale multipliers.
package model

import (
	"fmt"
	"strings"
)

// Model is a known RD60xx variant.
type Model uint8

const (
	Unknown Model = iota
	RD6006
	RD6006P
	RD6012
	RD6012P
	RD6018
	RD6024
)

type entry struct {
	model Model
	name  string
	id    uint16
	vMul  float32
	iMul  float32
}

// table is ordered by Model value; index 0 is Unknown.
var table = [...]entry{
	{Unknown, "Unknown", 0, 0, 0},
	{RD6006, "RD6006", 60062, 100, 1000},
	{RD6006P, "RD6006P", 60065, 1000, 10000},
	{RD6012, "RD6012", 60121, 100, 100},
	{RD6012P, "RD6012P", 60125, 1000, 100},
	{RD6018, "RD6018", 60181, 100, 100},
	{RD6024, "RD6024", 60241, 100, 100},
}

func (m Model) String() string {
	if int(m) < len(table) {
		return table[m].name
	}
	return table[Unknown].name
}

// ID returns the identity register value reported by m, or 0 for Unknown.
func (m Model) ID() uint16 {
	if int(m) < len(table) {
		return table[m].id
	}
	return 0
}

// Multipliers returns the voltage and current multipliers for m.
// Unknown yields 0, 0: scaled values are undefined.
func (m Model) Multipliers() (vMul, iMul float32) {
	if int(m) < len(table) {
		return table[m].vMul, table[m].iMul
	}
	return 0, 0
}

// Resolve maps an identity register value to its model and multipliers.
func Resolve(id uint16) (m Model, vMul, iMul float32) {
	for _, e := range table[1:] {
		if e.id == id {
			return e.model, e.vMul, e.iMul
		}
	}
	return Unknown, 0, 0
}

// Lookup parses a model name, case-insensitively.
func Lookup(name string) (Model, bool) {
	for _, e := range table[1:] {
		if strings.EqualFold(e.name, name) {
			return e.model, true
		}
	}
	return Unknown, false
}

// Known lists all known models.
func Known() []Model {
	out := make([]Model, 0, len(table)-1)
	for _, e := range table[1:] {
		out = append(out, e.model)
	}
	return out
}

func (m Model) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Model) UnmarshalText(text []byte) error {
	if strings.EqualFold(string(text), table[Unknown].name) {
		*m = Unknown
		return nil
	}
	v, ok := Lookup(string(text))
	if !ok {
		return fmt.Errorf("model: unknown name %q", text)
	}
	*m = v
	return nil
}
