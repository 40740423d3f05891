package math

import (
	"errors"
	"math"
)

var ErrOverflowUint32 = errors.New("uint32 overflow")
var ErrOverflowUint16 = errors.New("uint16 overflow")

// SaturatingAddUint32 adds two uint32 integers, clipping the result at
// math.MaxUint32 instead of wrapping around.
func SaturatingAddUint32(a, b uint32) uint32 {
	if b > math.MaxUint32-a {
		return math.MaxUint32
	}
	return a + b
}

// SafeAddUint32 adds two uint32 integers
// If there is an overflow this will panic
func SafeAddUint32(a, b uint32) uint32 {
	if b > math.MaxUint32-a {
		panic(ErrOverflowUint32)
	}
	return a + b
}

// SafeConvertUint16 takes an int and checks if it overflows
// If there is an overflow it returns an error
func SafeConvertUint16(a int) (uint16, error) {
	if a > math.MaxUint16 || a < 0 {
		return 0, ErrOverflowUint16
	}
	return uint16(a), nil
}
