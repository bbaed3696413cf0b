// Package diff computes structural differences between two vendor-neutral
// schema models. The differ is pure: it performs no I/O, never suspends, and
// produces the same output for the same pair of inputs.
//
// Each object kind (tables, views, procedures, functions, triggers) is
// processed independently with set logic keyed on the case-insensitive
// (schema, name) pair: objects only in the target are added, objects only in
// the source are removed, and the intersection is recursed into. Tables
// recurse into columns, indexes, and foreign keys the same way, keyed on
// name.
//
// Items that may invalidate existing clients or data are flagged as breaking
// and paired with a BreakingChange record carrying severity, data-loss risk,
// and remediation guidance. The rules are deterministic and documented on
// the narrowing table in breaking.go.
//
// Example usage:
//
//	d := diff.Compute(source, target)
//	if d.Empty() {
//	    return nil
//	}
//	for _, item := range d.Items {
//	    fmt.Printf("%s %s %s\n", item.ChangeType, item.ObjectType, item.ObjectName)
//	}
package diff
