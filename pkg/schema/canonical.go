package schema

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/dbwarden/warden/pkg/utils"
	"github.com/pkg/errors"
)

// timeLayout is the ISO-8601 UTC format used in canonical serializations.
// Millisecond precision, Z suffix.
const timeLayout = "2006-01-02T15:04:05.000Z"

// CanonicalJSON returns the canonical JSON hash input for a database: object
// keys lexicographically sorted, collections sorted by their stable key,
// max_length of -1 rendered as the sentinel "MAX", and definitions normalized
// to LF line endings with trailing whitespace stripped. Volatile fields
// (extraction timestamp, row counts) are excluded so that two extractions of
// an unchanged database produce byte-identical output.
func CanonicalJSON(d *Database) ([]byte, error) {
	return marshalCanonical(canonicalDatabase(d, canonHash))
}

// canonicalMode selects between the hash input form and the snapshot file
// form. The file form keeps volatile fields and raw numeric max_length so the
// snapshot round-trips losslessly; the hash form excludes volatile fields and
// applies the "MAX" sentinel.
type canonicalMode int

const (
	canonHash canonicalMode = iota
	canonFile
)

// ContentHash returns the lowercase hex SHA-256 digest of the database's
// canonical JSON form.
//
// Example usage:
//
//	hash, err := db.ContentHash()
//	if err != nil {
//	    return err
//	}
//	if hash == snapshot.ContentHash {
//	    // structure unchanged since the snapshot was taken
//	}
func (d *Database) ContentHash() (string, error) {
	data, err := CanonicalJSON(d)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// marshalCanonical encodes v without HTML escaping. encoding/json emits map
// keys in lexicographic order, which is what makes the output canonical.
func marshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(v); err != nil {
		return nil, errors.Wrap(err, "encoding canonical JSON")
	}

	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

// canonicalDatabase builds the canonical map form of a database.
func canonicalDatabase(d *Database, mode canonicalMode) map[string]any {
	m := map[string]any{
		"collation":      d.Collation,
		"database_name":  d.Name,
		"server_version": d.ServerVersion,
	}
	if mode == canonFile {
		m["extracted_at"] = d.ExtractedAt.UTC().Format(timeLayout)
	}

	tables := append([]Table(nil), d.Tables...)
	sort.SliceStable(tables, func(i, j int) bool {
		return ObjectKey(tables[i].Schema, tables[i].Name) < ObjectKey(tables[j].Schema, tables[j].Name)
	})
	tableList := make([]any, len(tables))
	for i := range tables {
		tableList[i] = canonicalTable(&tables[i], mode)
	}
	m["tables"] = tableList

	views := append([]View(nil), d.Views...)
	sort.SliceStable(views, func(i, j int) bool {
		return ObjectKey(views[i].Schema, views[i].Name) < ObjectKey(views[j].Schema, views[j].Name)
	})
	viewList := make([]any, len(views))
	for i := range views {
		viewList[i] = map[string]any{
			"definition": utils.NormalizeDefinition(views[i].Definition),
			"name":       views[i].Name,
			"schema":     views[i].Schema,
		}
	}
	m["views"] = viewList

	procs := append([]Procedure(nil), d.Procedures...)
	sort.SliceStable(procs, func(i, j int) bool {
		return ObjectKey(procs[i].Schema, procs[i].Name) < ObjectKey(procs[j].Schema, procs[j].Name)
	})
	procList := make([]any, len(procs))
	for i := range procs {
		procList[i] = map[string]any{
			"definition": utils.NormalizeDefinition(procs[i].Definition),
			"name":       procs[i].Name,
			"parameters": canonicalParameters(procs[i].Parameters),
			"schema":     procs[i].Schema,
		}
	}
	m["procedures"] = procList

	funcs := append([]Function(nil), d.Functions...)
	sort.SliceStable(funcs, func(i, j int) bool {
		return ObjectKey(funcs[i].Schema, funcs[i].Name) < ObjectKey(funcs[j].Schema, funcs[j].Name)
	})
	funcList := make([]any, len(funcs))
	for i := range funcs {
		funcList[i] = map[string]any{
			"definition":  utils.NormalizeDefinition(funcs[i].Definition),
			"kind":        string(funcs[i].Kind),
			"name":        funcs[i].Name,
			"parameters":  canonicalParameters(funcs[i].Parameters),
			"return_type": funcs[i].ReturnType,
			"schema":      funcs[i].Schema,
		}
	}
	m["functions"] = funcList

	triggers := append([]Trigger(nil), d.Triggers...)
	sort.SliceStable(triggers, func(i, j int) bool {
		return ObjectKey(triggers[i].Schema, triggers[i].Name) < ObjectKey(triggers[j].Schema, triggers[j].Name)
	})
	triggerList := make([]any, len(triggers))
	for i := range triggers {
		triggerList[i] = map[string]any{
			"definition":   utils.NormalizeDefinition(triggers[i].Definition),
			"is_disabled":  triggers[i].IsDisabled,
			"name":         triggers[i].Name,
			"schema":       triggers[i].Schema,
			"table_name":   triggers[i].TableName,
			"table_schema": triggers[i].TableSchema,
		}
	}
	m["triggers"] = triggerList

	return m
}

func canonicalTable(t *Table, mode canonicalMode) map[string]any {
	columns := append([]Column(nil), t.Columns...)
	sort.SliceStable(columns, func(i, j int) bool { return columns[i].Position < columns[j].Position })
	columnList := make([]any, len(columns))
	for i := range columns {
		columnList[i] = canonicalColumn(&columns[i], mode)
	}

	indexes := append([]Index(nil), t.Indexes...)
	sort.SliceStable(indexes, func(i, j int) bool {
		return ObjectKey("", indexes[i].Name) < ObjectKey("", indexes[j].Name)
	})
	indexList := make([]any, len(indexes))
	for i := range indexes {
		indexList[i] = map[string]any{
			"filter_predicate": indexes[i].FilterPredicate,
			"included_columns": stringList(indexes[i].IncludedColumns),
			"is_primary_key":   indexes[i].IsPrimaryKey,
			"is_unique":        indexes[i].IsUnique,
			"key_columns":      stringList(indexes[i].KeyColumns),
			"name":             indexes[i].Name,
			"type":             string(indexes[i].Type),
		}
	}

	fks := append([]ForeignKey(nil), t.ForeignKeys...)
	sort.SliceStable(fks, func(i, j int) bool {
		return ObjectKey("", fks[i].Name) < ObjectKey("", fks[j].Name)
	})
	fkList := make([]any, len(fks))
	for i := range fks {
		fkList[i] = map[string]any{
			"columns":            stringList(fks[i].Columns),
			"name":               fks[i].Name,
			"on_delete":          string(fks[i].OnDelete),
			"on_update":          string(fks[i].OnUpdate),
			"referenced_columns": stringList(fks[i].ReferencedColumns),
			"referenced_schema":  fks[i].ReferencedSchema,
			"referenced_table":   fks[i].ReferencedTable,
		}
	}

	m := map[string]any{
		"columns":             columnList,
		"foreign_keys":        fkList,
		"history_table":       t.HistoryTable,
		"indexes":             indexList,
		"is_temporal":         t.IsTemporal,
		"name":                t.Name,
		"primary_key_columns": stringList(t.PrimaryKeyColumns),
		"schema":              t.Schema,
	}
	if mode == canonFile && t.RowCount != nil {
		m["row_count"] = *t.RowCount
	}

	return m
}

func canonicalColumn(c *Column, mode canonicalMode) map[string]any {
	// -1 means MAX / unbounded; the hash input normalizes it to the sentinel
	// so the value is engine-agnostic. The file form keeps the raw number so
	// snapshots round-trip through the typed model.
	var maxLength any = c.MaxLength
	if mode == canonHash && c.MaxLength == -1 {
		maxLength = "MAX"
	}

	var defaultValue any
	if c.Default != nil {
		defaultValue = *c.Default
	}

	return map[string]any{
		"data_type":        c.DataType,
		"default_value":    defaultValue,
		"expression":       c.Expression,
		"is_computed":      c.IsComputed,
		"is_identity":      c.IsIdentity,
		"is_nullable":      c.IsNullable,
		"is_primary_key":   c.IsPrimaryKey,
		"max_length":       maxLength,
		"name":             c.Name,
		"ordinal_position": c.Position,
		"precision":        c.Precision,
		"scale":            c.Scale,
		"type":             string(c.Type),
	}
}

func canonicalParameters(params []Parameter) []any {
	sorted := append([]Parameter(nil), params...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })

	list := make([]any, len(sorted))
	for i := range sorted {
		list[i] = map[string]any{
			"data_type":   sorted[i].DataType,
			"has_default": sorted[i].HasDefault,
			"is_output":   sorted[i].IsOutput,
			"name":        sorted[i].Name,
			"position":    sorted[i].Position,
		}
	}
	return list
}

// stringList keeps empty slices as [] rather than null in the canonical
// output.
func stringList(values []string) []any {
	list := make([]any, len(values))
	for i, v := range values {
		list[i] = v
	}
	return list
}
