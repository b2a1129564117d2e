// Package overflow implements the four standard integer overflow policies
// over any fixed-width integer type: checked (sentinel on overflow),
// wrapping (truncating two's-complement wrap), saturating (clamp to the
// type's range), and overflowing (wrapped result plus a flag).
//
// The policies relate as: Wrapping(x,y) = (x+y) mod 2^bits,
// Saturating(x,y) = min(MaxOf, max(MinOf, x+y)), and Overflowing(x,y)
// returns (Wrapping(x,y), true) exactly when the mathematical result is
// out of range.
package overflow

import "golang.org/x/exp/constraints"

// MinOf returns the smallest value representable by T.
func MinOf[T constraints.Integer]() T {
	if !isSigned[T]() {
		return 0
	}
	return ^T(0) << (bitsOf[T]() - 1)
}

// MaxOf returns the largest value representable by T.
func MaxOf[T constraints.Integer]() T {
	if !isSigned[T]() {
		return ^T(0)
	}
	return ^(^T(0) << (bitsOf[T]() - 1))
}

func isSigned[T constraints.Integer]() bool {
	return ^T(0) < T(0)
}

// bitsOf counts T's width by shifting a bit off the top.
func bitsOf[T constraints.Integer]() int {
	n := 0
	for v := T(1); v != 0; v <<= 1 {
		n++
	}
	return n
}

// --- Checked: (result, ok) ------------------------------------------------

// AddChecked returns a+b and whether it is in range.
func AddChecked[T constraints.Integer](a, b T) (T, bool) {
	if (b > 0 && a > MaxOf[T]()-b) || (b < 0 && a < MinOf[T]()-b) {
		return 0, false
	}
	return a + b, true
}

// SubChecked returns a-b and whether it is in range.
func SubChecked[T constraints.Integer](a, b T) (T, bool) {
	if (b < 0 && a > MaxOf[T]()+b) || (b >= 0 && a < MinOf[T]()+b) {
		return 0, false
	}
	return a - b, true
}

// MulChecked returns a*b and whether it is in range.
func MulChecked[T constraints.Integer](a, b T) (T, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	// ^T(0) is -1 in signed types; the unsigned reading never gets here.
	if isSigned[T]() {
		min, negOne := MinOf[T](), ^T(0)
		if (a == min && b == negOne) || (b == min && a == negOne) {
			return 0, false
		}
	}
	p := a * b
	if p/b != a {
		return 0, false
	}
	return p, true
}

// DivChecked returns a/b and whether the division is defined and in range.
// It is not ok for a zero divisor, and for MinOf / -1 in signed types.
func DivChecked[T constraints.Integer](a, b T) (T, bool) {
	if b == 0 {
		return 0, false
	}
	if isSigned[T]() && a == MinOf[T]() && b == ^T(0) {
		return 0, false
	}
	return a / b, true
}

// NegChecked returns -a and whether it is in range. Only zero negates in
// unsigned types.
func NegChecked[T constraints.Integer](a T) (T, bool) {
	if a == 0 {
		return 0, true
	}
	if !isSigned[T]() || a == MinOf[T]() {
		return 0, false
	}
	return -a, true
}

// AbsChecked returns the absolute value of a and whether it is in range.
func AbsChecked[T constraints.Integer](a T) (T, bool) {
	if a >= 0 {
		return a, true
	}
	return NegChecked(a)
}

// --- Wrapping: truncating two's-complement --------------------------------

// AddWrapping returns a+b reduced mod 2^bits.
func AddWrapping[T constraints.Integer](a, b T) T { return a + b }

// SubWrapping returns a-b reduced mod 2^bits.
func SubWrapping[T constraints.Integer](a, b T) T { return a - b }

// MulWrapping returns a*b reduced mod 2^bits.
func MulWrapping[T constraints.Integer](a, b T) T { return a * b }

// DivWrapping returns a/b, with the one wrapped case being MinOf / -1,
// which wraps back to MinOf. It panics on a zero divisor, like the
// division operator.
func DivWrapping[T constraints.Integer](a, b T) T {
	if isSigned[T]() && a == MinOf[T]() && b == ^T(0) {
		return a
	}
	return a / b
}

// NegWrapping returns -a reduced mod 2^bits; MinOf stays MinOf.
func NegWrapping[T constraints.Integer](a T) T { return -a }

// AbsWrapping returns the absolute value of a reduced mod 2^bits; MinOf
// stays MinOf. Unsigned values pass through unchanged.
func AbsWrapping[T constraints.Integer](a T) T {
	if a >= 0 {
		return a
	}
	return -a
}

// --- Saturating: clamp to [MinOf, MaxOf] ----------------------------------

// AddSaturating returns a+b clamped to T's range.
func AddSaturating[T constraints.Integer](a, b T) T {
	if v, ok := AddChecked(a, b); ok {
		return v
	}
	if b > 0 {
		return MaxOf[T]()
	}
	return MinOf[T]()
}

// SubSaturating returns a-b clamped to T's range.
func SubSaturating[T constraints.Integer](a, b T) T {
	if v, ok := SubChecked(a, b); ok {
		return v
	}
	if b < 0 {
		return MaxOf[T]()
	}
	return MinOf[T]()
}

// MulSaturating returns a*b clamped to T's range.
func MulSaturating[T constraints.Integer](a, b T) T {
	if v, ok := MulChecked(a, b); ok {
		return v
	}
	if (a > 0) == (b > 0) {
		return MaxOf[T]()
	}
	return MinOf[T]()
}

// DivSaturating returns a/b, saturating the one overflowing case
// (MinOf / -1) to MaxOf. It panics on a zero divisor.
func DivSaturating[T constraints.Integer](a, b T) T {
	if isSigned[T]() && a == MinOf[T]() && b == ^T(0) {
		return MaxOf[T]()
	}
	return a / b
}

// NegSaturating returns -a clamped to T's range. MinOf clamps to MaxOf;
// nonzero unsigned values clamp to zero.
func NegSaturating[T constraints.Integer](a T) T {
	if v, ok := NegChecked(a); ok {
		return v
	}
	if isSigned[T]() {
		return MaxOf[T]()
	}
	return 0
}

// AbsSaturating returns the absolute value of a clamped to T's range;
// MinOf clamps to MaxOf.
func AbsSaturating[T constraints.Integer](a T) T {
	if a >= 0 {
		return a
	}
	return NegSaturating(a)
}

// --- Overflowing: (wrapped result, overflowed) ----------------------------

// AddOverflowing returns the wrapped sum and whether it overflowed.
func AddOverflowing[T constraints.Integer](a, b T) (T, bool) {
	_, ok := AddChecked(a, b)
	return a + b, !ok
}

// SubOverflowing returns the wrapped difference and whether it overflowed.
func SubOverflowing[T constraints.Integer](a, b T) (T, bool) {
	_, ok := SubChecked(a, b)
	return a - b, !ok
}

// MulOverflowing returns the wrapped product and whether it overflowed.
func MulOverflowing[T constraints.Integer](a, b T) (T, bool) {
	_, ok := MulChecked(a, b)
	return a * b, !ok
}

// DivOverflowing returns a/b and whether it overflowed; the one
// overflowing case, MinOf / -1, yields (MinOf, true). It panics on a zero
// divisor.
func DivOverflowing[T constraints.Integer](a, b T) (T, bool) {
	if isSigned[T]() && a == MinOf[T]() && b == ^T(0) {
		return a, true
	}
	return a / b, false
}

// NegOverflowing returns the wrapped negation and whether it overflowed.
// MinOf yields (MinOf, true); nonzero unsigned values always overflow.
func NegOverflowing[T constraints.Integer](a T) (T, bool) {
	_, ok := NegChecked(a)
	return -a, !ok
}

// AbsOverflowing returns the wrapped absolute value and whether it
// overflowed; MinOf yields (MinOf, true).
func AbsOverflowing[T constraints.Integer](a T) (T, bool) {
	if a >= 0 {
		return a, false
	}
	return NegOverflowing(a)
}
