package diff

import (
	"fmt"
	"sort"

	"github.com/dbwarden/warden/pkg/schema"
)

type (
	// ObjectType classifies what kind of object a diff item refers to.
	ObjectType string

	// ChangeType classifies how an object changed between source and target.
	ChangeType string

	// Severity grades how disruptive a breaking change is.
	Severity string

	// Item is a single structural difference. ObjectName is fully qualified:
	// "schema.name" for top-level objects, "schema.table.name" for columns,
	// indexes, and foreign keys. OldValue and NewValue hold typed pointers
	// into the compared models (for example *schema.Table or *ColumnRef) so
	// the migration generator can render DDL without re-walking the schemas.
	Item struct {
		ObjectType ObjectType     `json:"object_type"`
		ObjectName string         `json:"object_name"`
		ChangeType ChangeType     `json:"change_type"`
		OldValue   any            `json:"old_value,omitempty"`
		NewValue   any            `json:"new_value,omitempty"`
		Details    map[string]any `json:"details,omitempty"`
		Breaking   bool           `json:"breaking_change"`
	}

	// Change records a single attribute transition inside an Item's details.
	Change struct {
		From any `json:"from"`
		To   any `json:"to"`
	}

	// BreakingChange describes why an item is breaking and what to do about
	// it.
	BreakingChange struct {
		ChangeType   ChangeType `json:"change_type"`
		Severity     Severity   `json:"severity"`
		ObjectName   string     `json:"object_name"`
		Description  string     `json:"description"`
		DataLossRisk bool       `json:"data_loss_risk"`
		Remediation  string     `json:"remediation"`
	}

	// ColumnRef ties a column to its parent table so consumers can build
	// ALTER TABLE statements from the item alone.
	ColumnRef struct {
		TableSchema string
		TableName   string
		Column      *schema.Column
	}

	// IndexRef ties an index to its parent table.
	IndexRef struct {
		TableSchema string
		TableName   string
		Index       *schema.Index
	}

	// ForeignKeyRef ties a foreign key to its parent table.
	ForeignKeyRef struct {
		TableSchema string
		TableName   string
		ForeignKey  *schema.ForeignKey
	}

	// Summary carries per-kind change counters.
	Summary struct {
		TablesAdded        int `json:"tables_added"`
		TablesRemoved      int `json:"tables_removed"`
		TablesModified     int `json:"tables_modified"`
		ColumnsAdded       int `json:"columns_added"`
		ColumnsRemoved     int `json:"columns_removed"`
		ColumnsModified    int `json:"columns_modified"`
		ViewsAdded         int `json:"views_added"`
		ViewsRemoved       int `json:"views_removed"`
		ViewsModified      int `json:"views_modified"`
		ProceduresAdded    int `json:"procedures_added"`
		ProceduresRemoved  int `json:"procedures_removed"`
		ProceduresModified int `json:"procedures_modified"`
		FunctionsAdded     int `json:"functions_added"`
		FunctionsRemoved   int `json:"functions_removed"`
		FunctionsModified  int `json:"functions_modified"`
		TriggersAdded      int `json:"triggers_added"`
		TriggersRemoved    int `json:"triggers_removed"`
		TriggersModified   int `json:"triggers_modified"`
	}

	// Diff is the ordered result of comparing two databases.
	Diff struct {
		Items    []Item           `json:"items"`
		Breaking []BreakingChange `json:"breaking_changes"`
		Summary  Summary          `json:"summary"`
	}
)

const (
	ObjectTable      ObjectType = "table"
	ObjectView       ObjectType = "view"
	ObjectProcedure  ObjectType = "procedure"
	ObjectFunction   ObjectType = "function"
	ObjectTrigger    ObjectType = "trigger"
	ObjectColumn     ObjectType = "column"
	ObjectIndex      ObjectType = "index"
	ObjectForeignKey ObjectType = "foreign_key"
)

const (
	ChangeAdded    ChangeType = "added"
	ChangeRemoved  ChangeType = "removed"
	ChangeModified ChangeType = "modified"
)

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Empty reports whether the diff contains no items.
func (d *Diff) Empty() bool { return len(d.Items) == 0 }

// HasBreaking reports whether any item is flagged as breaking.
func (d *Diff) HasBreaking() bool { return len(d.Breaking) > 0 }

// String renders a one-line summary suitable for CLI output.
func (d *Diff) String() string {
	if d.Empty() {
		return "no differences"
	}
	return fmt.Sprintf("%d change(s), %d breaking", len(d.Items), len(d.Breaking))
}

// sortItems imposes the stable output order: (object_type, change_type,
// object_name).
func (d *Diff) sortItems() {
	sort.SliceStable(d.Items, func(i, j int) bool {
		a, b := d.Items[i], d.Items[j]
		if a.ObjectType != b.ObjectType {
			return a.ObjectType < b.ObjectType
		}
		if a.ChangeType != b.ChangeType {
			return a.ChangeType < b.ChangeType
		}
		return a.ObjectName < b.ObjectName
	})
	sort.SliceStable(d.Breaking, func(i, j int) bool {
		a, b := d.Breaking[i], d.Breaking[j]
		if a.ObjectName != b.ObjectName {
			return a.ObjectName < b.ObjectName
		}
		return a.Description < b.Description
	})
}
