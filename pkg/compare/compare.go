package compare

// NilCheck performs a nil check on two pointers and returns whether they are equal
// and whether more comparison checks are needed.
//
// Returns (equal, needsMoreChecks) where:
//   - equal: true if both are nil, false if only one is nil
//   - needsMoreChecks: true if both pointers are non-nil and further comparison is needed
//
// Example:
//
//	func (t *Table) Equal(other *Table) bool {
//	    if eq, needsMoreChecks := compare.NilCheck(t, other); !needsMoreChecks {
//	        return eq
//	    }
//	    // Continue with field comparisons...
//	}
func NilCheck[T any](a, b *T) (equal bool, needsMoreChecks bool) {
	if a == nil && b == nil {
		return true, false
	}
	if a == nil || b == nil {
		return false, false
	}
	return false, true
}

// Pointers compares two pointer values for equality.
// Returns true if both are nil, or both are non-nil with equal values.
//
// Example:
//
//	func (c *Column) Equal(other *Column) bool {
//	    return compare.Pointers(c.Default, other.Default) &&
//	           c.DataType == other.DataType
//	}
func Pointers[T comparable](a, b *T) bool {
	if (a != nil) != (b != nil) {
		return false
	}
	if a != nil && *a != *b {
		return false
	}
	return true
}

// Slices compares two slices for equality using an equality function for elements.
// Returns true if both slices have the same length and all corresponding elements are equal.
//
// Example:
//
//	func (i *Index) Equal(other *Index) bool {
//	    return compare.Slices(i.KeyColumns, other.KeyColumns,
//	        func(a, b string) bool { return a == b })
//	}
func Slices[T any](a, b []T, equalFunc func(T, T) bool) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !equalFunc(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Strings compares two string slices for equality, including order.
// Index key columns and foreign key column lists are order-sensitive, so
// ordered comparison is the right default for schema objects.
//
// Example:
//
//	func (fk *ForeignKey) Equal(other *ForeignKey) bool {
//	    return compare.Strings(fk.Columns, other.Columns) &&
//	           compare.Strings(fk.RefColumns, other.RefColumns)
//	}
func Strings(a, b []string) bool {
	return Slices(a, b, func(x, y string) bool { return x == y })
}
