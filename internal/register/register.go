// Package register holds the RD60xx holding-register map.
package register

import (
	"fmt"
	"strconv"
	"strings"
)

// Register is a holding-register address in the RD60xx firmware map.
type Register uint16

// Identity block.
const (
	ID  Register = 0
	SNH Register = 1
	SNL Register = 2
	FW  Register = 3
)

// Telemetry block. *S registers hold the sign of the register that follows.
const (
	IntCS   Register = 4
	IntC    Register = 5
	IntFS   Register = 6
	IntF    Register = 7
	VSet    Register = 8
	ISet    Register = 9
	VOut    Register = 10
	IOut    Register = 11
	POutH   Register = 12
	POutL   Register = 13
	VIn     Register = 14
	Keypad  Register = 15
	Protect Register = 16
	CVCC    Register = 17
	Output  Register = 18
	Preset  Register = 19
	IRange  Register = 20
	BatMode Register = 32
	VBat    Register = 33
	ExtCS   Register = 34
	ExtC    Register = 35
	ExtFS   Register = 36
	ExtF    Register = 37
	AhH     Register = 38
	AhL     Register = 39
	WhH     Register = 40
	WhL     Register = 41
)

// Real-time clock.
const (
	Year   Register = 48
	Month  Register = 49
	Day    Register = 50
	Hour   Register = 51
	Minute Register = 52
	Second Register = 53
)

// Memory group M0 (active preset).
const (
	M0V   Register = 80
	M0I   Register = 81
	M0OVP Register = 82
	M0OCP Register = 83
)

// MaxReadQuantity is the Modbus per-request limit for FC03.
const MaxReadQuantity = 125

// MaxWriteQuantity is the Modbus per-request limit for FC16.
const MaxWriteQuantity = 123

// Pair is a high/low register pair read as one 32-bit value.
type Pair struct {
	High Register
	Low  Register
}

// Pairs lists every register pair in the map. Low is always High+1.
var Pairs = [...]Pair{
	{SNH, SNL},
	{IntCS, IntC},
	{IntFS, IntF},
	{POutH, POutL},
	{ExtCS, ExtC},
	{ExtFS, ExtF},
	{AhH, AhL},
	{WhH, WhL},
}

var names = map[Register]string{
	ID:      "ID",
	SNH:     "SN_H",
	SNL:     "SN_L",
	FW:      "FW",
	IntCS:   "INT_C_S",
	IntC:    "INT_C",
	IntFS:   "INT_F_S",
	IntF:    "INT_F",
	VSet:    "V_SET",
	ISet:    "I_SET",
	VOut:    "V_OUT",
	IOut:    "I_OUT",
	POutH:   "P_OUT_H",
	POutL:   "P_OUT_L",
	VIn:     "V_IN",
	Keypad:  "KEYPAD",
	Protect: "OVP_OCP",
	CVCC:    "CV_CC",
	Output:  "OUTPUT",
	Preset:  "PRESET",
	IRange:  "I_RANGE",
	BatMode: "BAT_MODE",
	VBat:    "V_BAT",
	ExtCS:   "EXT_C_S",
	ExtC:    "EXT_C",
	ExtFS:   "EXT_F_S",
	ExtF:    "EXT_F",
	AhH:     "AH_H",
	AhL:     "AH_L",
	WhH:     "WH_H",
	WhL:     "WH_L",
	Year:    "YEAR",
	Month:   "MONTH",
	Day:     "DAY",
	Hour:    "HOUR",
	Minute:  "MINUTE",
	Second:  "SECOND",
	M0V:     "M0_V",
	M0I:     "M0_I",
	M0OVP:   "M0_OVP",
	M0OCP:   "M0_OCP",
}

func (r Register) String() string {
	if s, ok := names[r]; ok {
		return s
	}
	return fmt.Sprintf("REG_%d", uint16(r))
}

// Address returns the register as a Modbus address.
func (r Register) Address() uint16 {
	return uint16(r)
}

// Span returns the start address and quantity of the window first..last, inclusive.
func Span(first, last Register) (address, quantity uint16) {
	return uint16(first), uint16(last) - uint16(first) + 1
}

// Offset is the index of r inside a window that starts at base.
func (r Register) Offset(base Register) int {
	return int(r) - int(base)
}

// Parse accepts a register name ("V_SET", case-insensitive) or a decimal
// or 0x-prefixed address.
func Parse(s string) (Register, error) {
	for r, name := range names {
		if strings.EqualFold(name, s) {
			return r, nil
		}
	}
	n, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("register: unknown register %q", s)
	}
	return Register(n), nil
}
