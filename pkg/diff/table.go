package diff

import (
	"fmt"
	"strings"

	"github.com/dbwarden/warden/pkg/compare"
	"github.com/dbwarden/warden/pkg/schema"
)

// compareTable recurses into a table present in both schemas.
func (d *Diff) compareTable(source, target *schema.Table) {
	before := len(d.Items)

	d.compareColumns(source, target)
	d.compareIndexes(source, target)
	d.compareForeignKeys(source, target)
	d.comparePrimaryKey(source, target)

	if len(d.Items) > before {
		d.Summary.TablesModified++
	}
}

func (d *Diff) compareColumns(source, target *schema.Table) {
	src, srcKeys := keyed(source.Columns, func(c *schema.Column) string { return strings.ToLower(c.Name) })
	tgt, tgtKeys := keyed(target.Columns, func(c *schema.Column) string { return strings.ToLower(c.Name) })

	for _, k := range tgtKeys {
		if _, ok := src[k]; ok {
			continue
		}
		c := tgt[k]
		name := columnName(target, c)
		breaking := !c.IsNullable && c.Default == nil && !c.IsIdentity && !c.IsComputed

		d.Summary.ColumnsAdded++
		d.Items = append(d.Items, Item{
			ObjectType: ObjectColumn,
			ObjectName: name,
			ChangeType: ChangeAdded,
			NewValue:   &ColumnRef{TableSchema: target.Schema, TableName: target.Name, Column: c},
			Breaking:   breaking,
		})
		if breaking {
			d.Breaking = append(d.Breaking, BreakingChange{
				ChangeType:  ChangeAdded,
				Severity:    SeverityHigh,
				ObjectName:  name,
				Description: fmt.Sprintf("column %s is added as NOT NULL without a default", name),
				Remediation: "add a default value or make the column nullable, then tighten it once backfilled",
			})
		}
	}

	for _, k := range srcKeys {
		c := src[k]
		name := columnName(source, c)
		other, ok := tgt[k]
		if !ok {
			d.Summary.ColumnsRemoved++
			d.Items = append(d.Items, Item{
				ObjectType: ObjectColumn,
				ObjectName: name,
				ChangeType: ChangeRemoved,
				OldValue:   &ColumnRef{TableSchema: source.Schema, TableName: source.Name, Column: c},
				Breaking:   true,
			})
			d.Breaking = append(d.Breaking, BreakingChange{
				ChangeType:   ChangeRemoved,
				Severity:     SeverityHigh,
				ObjectName:   name,
				Description:  fmt.Sprintf("column %s is dropped", name),
				DataLossRisk: true,
				Remediation:  "archive or migrate the column's data before applying",
			})
			continue
		}
		d.compareColumn(source, c, other)
	}
}

// compareColumn emits one modified item per changed column with per-attribute
// {from, to} details.
func (d *Diff) compareColumn(table *schema.Table, source, target *schema.Column) {
	name := columnName(table, source)
	details := map[string]any{}
	breaking := false

	if source.DataType != target.DataType {
		details["data_type"] = Change{From: source.DataType, To: target.DataType}
		if isNarrowing(source, target) {
			breaking = true
			d.Breaking = append(d.Breaking, BreakingChange{
				ChangeType:   ChangeModified,
				Severity:     SeverityHigh,
				ObjectName:   name,
				Description:  fmt.Sprintf("column %s type narrows from %s to %s", name, source.DataType, target.DataType),
				DataLossRisk: true,
				Remediation:  "verify existing values fit the narrower type before applying",
			})
		}
	}
	if source.MaxLength != target.MaxLength {
		details["max_length"] = Change{From: source.MaxLength, To: target.MaxLength}
	}
	if source.Precision != target.Precision {
		details["precision"] = Change{From: source.Precision, To: target.Precision}
	}
	if source.Scale != target.Scale {
		details["scale"] = Change{From: source.Scale, To: target.Scale}
	}
	if source.IsNullable != target.IsNullable {
		details["is_nullable"] = Change{From: source.IsNullable, To: target.IsNullable}
		if source.IsNullable && !target.IsNullable {
			breaking = true
			d.Breaking = append(d.Breaking, BreakingChange{
				ChangeType:  ChangeModified,
				Severity:    SeverityMedium,
				ObjectName:  name,
				Description: fmt.Sprintf("column %s changes from nullable to NOT NULL", name),
				Remediation: "backfill NULL values before applying",
			})
		}
	}
	if !compare.Pointers(source.Default, target.Default) {
		details["default_value"] = Change{From: deref(source.Default), To: deref(target.Default)}
	}
	if source.IsIdentity != target.IsIdentity {
		details["is_identity"] = Change{From: source.IsIdentity, To: target.IsIdentity}
	}

	if len(details) == 0 {
		return
	}
	d.Summary.ColumnsModified++
	d.Items = append(d.Items, Item{
		ObjectType: ObjectColumn,
		ObjectName: name,
		ChangeType: ChangeModified,
		OldValue:   &ColumnRef{TableSchema: table.Schema, TableName: table.Name, Column: source},
		NewValue:   &ColumnRef{TableSchema: table.Schema, TableName: table.Name, Column: target},
		Details:    details,
		Breaking:   breaking,
	})
}

func (d *Diff) compareIndexes(source, target *schema.Table) {
	src, srcKeys := keyed(source.Indexes, func(i *schema.Index) string { return strings.ToLower(i.Name) })
	tgt, tgtKeys := keyed(target.Indexes, func(i *schema.Index) string { return strings.ToLower(i.Name) })

	for _, k := range tgtKeys {
		if _, ok := src[k]; ok {
			continue
		}
		ix := tgt[k]
		d.Items = append(d.Items, Item{
			ObjectType: ObjectIndex,
			ObjectName: childName(target, ix.Name),
			ChangeType: ChangeAdded,
			NewValue:   &IndexRef{TableSchema: target.Schema, TableName: target.Name, Index: ix},
		})
	}

	for _, k := range srcKeys {
		ix := src[k]
		other, ok := tgt[k]
		if !ok {
			d.Items = append(d.Items, Item{
				ObjectType: ObjectIndex,
				ObjectName: childName(source, ix.Name),
				ChangeType: ChangeRemoved,
				OldValue:   &IndexRef{TableSchema: source.Schema, TableName: source.Name, Index: ix},
			})
			continue
		}
		if ix.Equal(other) {
			continue
		}
		d.Items = append(d.Items, Item{
			ObjectType: ObjectIndex,
			ObjectName: childName(source, ix.Name),
			ChangeType: ChangeModified,
			OldValue:   &IndexRef{TableSchema: source.Schema, TableName: source.Name, Index: ix},
			NewValue:   &IndexRef{TableSchema: target.Schema, TableName: target.Name, Index: other},
			Details:    map[string]any{"definition_changed": true},
		})
	}
}

func (d *Diff) compareForeignKeys(source, target *schema.Table) {
	src, srcKeys := keyed(source.ForeignKeys, func(fk *schema.ForeignKey) string { return strings.ToLower(fk.Name) })
	tgt, tgtKeys := keyed(target.ForeignKeys, func(fk *schema.ForeignKey) string { return strings.ToLower(fk.Name) })

	for _, k := range tgtKeys {
		if _, ok := src[k]; ok {
			continue
		}
		fk := tgt[k]
		d.Items = append(d.Items, Item{
			ObjectType: ObjectForeignKey,
			ObjectName: childName(target, fk.Name),
			ChangeType: ChangeAdded,
			NewValue:   &ForeignKeyRef{TableSchema: target.Schema, TableName: target.Name, ForeignKey: fk},
		})
	}

	for _, k := range srcKeys {
		fk := src[k]
		other, ok := tgt[k]
		if !ok {
			d.Items = append(d.Items, Item{
				ObjectType: ObjectForeignKey,
				ObjectName: childName(source, fk.Name),
				ChangeType: ChangeRemoved,
				OldValue:   &ForeignKeyRef{TableSchema: source.Schema, TableName: source.Name, ForeignKey: fk},
			})
			continue
		}
		if fk.Equal(other) {
			continue
		}
		d.Items = append(d.Items, Item{
			ObjectType: ObjectForeignKey,
			ObjectName: childName(source, fk.Name),
			ChangeType: ChangeModified,
			OldValue:   &ForeignKeyRef{TableSchema: source.Schema, TableName: source.Name, ForeignKey: fk},
			NewValue:   &ForeignKeyRef{TableSchema: target.Schema, TableName: target.Name, ForeignKey: other},
			Details:    map[string]any{"definition_changed": true},
		})
	}
}

// comparePrimaryKey flags a change to the primary key column set. The item
// itself is carried by the column or index comparison; this only records the
// breaking change.
func (d *Diff) comparePrimaryKey(source, target *schema.Table) {
	if equalFoldStrings(source.PrimaryKeyColumns, target.PrimaryKeyColumns) {
		return
	}
	d.Breaking = append(d.Breaking, BreakingChange{
		ChangeType:  ChangeModified,
		Severity:    SeverityCritical,
		ObjectName:  source.QualifiedName(),
		Description: fmt.Sprintf("primary key of %s changes from (%s) to (%s)", source.QualifiedName(), strings.Join(source.PrimaryKeyColumns, ", "), strings.Join(target.PrimaryKeyColumns, ", ")),
		Remediation: "coordinate with consumers relying on the current key before applying",
	})
}

func columnName(t *schema.Table, c *schema.Column) string {
	return t.Schema + "." + t.Name + "." + c.Name
}

func childName(t *schema.Table, name string) string {
	return t.Schema + "." + t.Name + "." + name
}

func deref(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func equalFoldStrings(a, b []string) bool {
	return compare.Slices(a, b, strings.EqualFold)
}
