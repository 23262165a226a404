// Package codec turns raw holding-register words into wider values.
package codec

import (
	"errors"
	"fmt"
)

var (
	// ErrPairLength is returned when a word pair slice is not exactly two words.
	ErrPairLength = errors.New("codec: word pair must be exactly 2 words")

	// ErrZeroMultiplier is returned when scaling by an undefined multiplier.
	ErrZeroMultiplier = errors.New("codec: zero scale multiplier")
)

// CombinePair joins two words high-word first.
func CombinePair(high, low uint16) uint32 {
	return uint32(high)<<16 | uint32(low)
}

// FormatSerial renders v as a zero-padded 8 digit decimal string.
func FormatSerial(v uint32) string {
	return fmt.Sprintf("%08d", v)
}

// Pair combines a two word slice ordered [high, low].
func Pair(words []uint16) (uint32, error) {
	if len(words) != 2 {
		return 0, fmt.Errorf("%w: got %d", ErrPairLength, len(words))
	}
	return CombinePair(words[0], words[1]), nil
}

// Serial decodes a serial number word pair.
func Serial(words []uint16) (string, error) {
	v, err := Pair(words)
	if err != nil {
		return "", err
	}
	return FormatSerial(v), nil
}

// Scale divides raw by mul after converting to float.
func Scale(raw uint16, mul float32) (float32, error) {
	if mul == 0 {
		return 0, ErrZeroMultiplier
	}
	return float32(raw) / mul, nil
}

// SignedMagnitude reads a sign/magnitude pair: a non-zero high word
// negates the low word.
func SignedMagnitude(v uint32) int32 {
	mag := int32(v & 0xFFFF)
	if v>>16 != 0 {
		return -mag
	}
	return mag
}
