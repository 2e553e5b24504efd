// Package safemath provides checked integer arithmetic for ledger and tally
// mutations. Any overflow, underflow, or division by zero returns ErrOverflow;
// callers abort the whole transaction rather than wrapping or truncating.
package safemath

import (
	"errors"
	"math/bits"
)

// ErrOverflow is returned by every checked operation that would wrap.
var ErrOverflow = errors.New("math overflow")

// Add returns a+b or ErrOverflow.
func Add(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrOverflow
	}
	return sum, nil
}

// Sub returns a-b or ErrOverflow when b > a.
func Sub(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, ErrOverflow
	}
	return diff, nil
}

// Mul returns a*b or ErrOverflow.
func Mul(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, ErrOverflow
	}
	return lo, nil
}

// Div returns a/b, treating division by zero as ErrOverflow.
func Div(a, b uint64) (uint64, error) {
	if b == 0 {
		return 0, ErrOverflow
	}
	return a / b, nil
}
