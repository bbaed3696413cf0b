// Package compare provides generic comparison utilities for structural equality testing.
//
// This package offers a set of helper functions that eliminate boilerplate code when
// implementing Equal() methods on schema model structs. It handles the common patterns:
// nil checking, pointer comparisons, and slice comparisons.
//
// # Usage Examples
//
// Replace repetitive nil checks:
//
//	// Before (6 lines):
//	if x == nil && other == nil {
//	    return true
//	}
//	if x == nil || other == nil {
//	    return false
//	}
//
//	// After (2 lines):
//	if eq, done := compare.NilCheck(x, other); !done {
//	    return eq
//	}
//
// Compare pointer fields:
//
//	return compare.Pointers(c.Default, other.Default)
//
// Compare slices with element equality:
//
//	return compare.Slices(t.Columns, other.Columns, func(x, y Column) bool {
//	    return x.Equal(&y)
//	})
package compare
