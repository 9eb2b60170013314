/*
Package bitint provides the power-of-two and bit-reversal arithmetic used to
size and permute fast Fourier transforms.

Design Principles:
- Zero Allocations: All scalar operations use stack memory only
- Predictable Performance: O(1) or O(bits) operations
- Real-Time Safe: No locks, syscalls, or blocking operations

Usage:

	// Pad a window length up to a transform size
	size := bitint.NextPowerOfTwo(1000) // Returns 1024

	// Split a transform size into unit and rounds
	unit, rounds := bitint.SplitPowerOfTwo(96) // Returns 3, 5

	// Decimation-in-time ordering for 8 blocks
	perm := bitint.BitReversalPermutation(3) // [0 4 2 6 1 5 3 7]

----------------------------------------------------------------------

What NextPowerOfTwo does:

	The subtraction (size-1) is critical, without the subtraction,
	powers of 2 would be incorrectly doubled.

	- For input 8 (already a power of 2):
	  size-1 = 7 (binary 0111)
	  bits.Len(7) = 3
	  1 << 3 = 8 (correctly preserves original power of 2)
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the next power of 2 >= size.
//
// Examples:
//
//	Input  Output  Explanation
//	4      4      Already power of 2 (preserved)
//	5      8      Next power after 5
//	0      1      Handle zero case
//	-1     1      Handle negative case
func NextPowerOfTwo(size int) int {
	if size <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo checks if n is a power of 2 using bit manipulation.
// The expression (n & (n-1)) == 0 works because:
//   - Powers of 2 have exactly one bit set
//   - Subtracting 1 from a power of 2 sets all lower bits
//   - AND operation will be 0 only for powers of 2
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// Log2 returns the base-2 logarithm of n, rounded down. Log2 of values
// below 1 is 0.
func Log2(n int) int {
	if n <= 1 {
		return 0
	}
	return bits.Len(uint(n)) - 1
}

// SplitPowerOfTwo factors n into unit·2^rounds where unit is odd.
// Non-positive n yields (0, 0).
func SplitPowerOfTwo(n int) (unit, rounds int) {
	if n <= 0 {
		return 0, 0
	}
	rounds = bits.TrailingZeros(uint(n))
	return n >> rounds, rounds
}

// ReverseBits reverses the lower width bits of x.
// Example: ReverseBits(6, 3) = ReverseBits(0b110, 3) = 0b011 = 3.
func ReverseBits(x, width int) int {
	if width <= 0 {
		return 0
	}
	return int(bits.Reverse(uint(x)) >> (bits.UintSize - width))
}

// BitReversalPermutation returns the 2^width indices in bit-reversed order.
func BitReversalPermutation(width int) []int {
	n := 1 << width
	perm := make([]int, n)
	for i := range perm {
		perm[i] = ReverseBits(i, width)
	}
	return perm
}
