package compute

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/bitutil"
)

// validity is the combined row validity of two operands. A nil bitmap means
// every row is valid.
type validity struct {
	bits []byte
	len  int
}

func (v validity) IsValid(i int) bool { return v.bits == nil || bitutil.BitIsSet(v.bits, i) }

// NullN returns the number of invalid rows.
func (v validity) NullN() int {
	if v.bits == nil {
		return 0
	}
	return v.len - bitutil.CountSetBits(v.bits, 0, v.len)
}

// combineValidity determines the validity of n output rows computed from left
// and right. An operand of length 1 is broadcast to every row; otherwise it
// must have length n. A row is only valid if both inputs are valid.
func combineValidity(n int, left, right arrow.Array) validity {
	leftScalar, rightScalar := left.Len() == 1 && n != 1, right.Len() == 1 && n != 1

	switch {
	case leftScalar && rightScalar:
		return computeValiditySS(n, left.IsNull(0), right.IsNull(0))
	case leftScalar:
		return computeValiditySA(n, left.IsNull(0), right)
	case rightScalar:
		return computeValiditySA(n, right.IsNull(0), left)
	default:
		return computeValidityAA(n, left, right)
	}
}

// computeValiditySS determines an output validity based on two null checks.
func computeValiditySS(n int, leftNull, rightNull bool) validity {
	if !leftNull && !rightNull {
		return validity{len: n}
	}
	return allNull(n)
}

// computeValiditySA determines an output validity from a null check and an
// array.
func computeValiditySA(n int, leftNull bool, right arrow.Array) validity {
	switch {
	case leftNull:
		// If the scalar value is null, everything is null.
		return allNull(n)

	case right.NullN() == 0:
		return validity{len: n}

	default:
		// left is valid, so the final bitmap depends on the values from right.
		bits := make([]byte, bitutil.BytesForBits(int64(n)))
		bitutil.CopyBitmap(right.NullBitmapBytes(), right.Data().Offset(), n, bits, 0)
		return validity{bits: bits, len: n}
	}
}

// computeValidityAA determines an output validity from two arrays of length
// n. The result is a logical AND of the validity.
func computeValidityAA(n int, left, right arrow.Array) validity {
	switch leftNulls, rightNulls := left.NullN() > 0, right.NullN() > 0; {
	case leftNulls && rightNulls:
		bits := make([]byte, bitutil.BytesForBits(int64(n)))
		bitutil.BitmapAnd(
			left.NullBitmapBytes(),
			right.NullBitmapBytes(),
			int64(left.Data().Offset()), int64(right.Data().Offset()),
			bits,
			0, /* out offset */
			int64(n),
		)
		return validity{bits: bits, len: n}

	case leftNulls:
		return computeValiditySA(n, false, left)

	case rightNulls:
		return computeValiditySA(n, false, right)

	default:
		return validity{len: n}
	}
}

func allNull(n int) validity {
	return validity{bits: make([]byte, bitutil.BytesForBits(int64(n))), len: n}
}

// broadcastLen returns the output length of a binary operation over operands
// of the given lengths. ok is false unless the lengths are equal or one of
// them is 1.
func broadcastLen(left, right int) (n int, ok bool) {
	switch {
	case left == right:
		return left, true
	case right == 1:
		return left, true
	case left == 1:
		return right, true
	}
	return 0, false
}
