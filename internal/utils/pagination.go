// Package utils holds tiny helpers shared across layers. Nothing in here
// knows about groups, messages, or HTTP.
package utils

import "strconv"

// AtoiDefault parses s as a base-10 int, falling back to def when s is
// empty or not a number. Query-string pagination params go through this.
func AtoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// ClampInt bounds n to the inclusive range [lo, hi].
func ClampInt(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
