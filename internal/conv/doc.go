// Package conv provides checked integer conversions for arena sizing.
//
// Block counts are stored as uint32 indices and arena sizes are the product
// of two caller-supplied ints, so both steps need overflow checks before any
// memory is reserved.
package conv
