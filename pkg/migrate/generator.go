package migrate

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/dbwarden/warden/pkg/diff"
	"github.com/dbwarden/warden/pkg/schema"
	"github.com/dbwarden/warden/pkg/utils"
)

// DDL phases impose dependency-consistent step ordering: drops run children
// before parents, creates run parents before children, and columns exist
// before the indexes that cover them.
const (
	phaseDropForeignKey = iota
	phaseDropIndex
	phaseDropTrigger
	phaseDropView
	phaseDropRoutine
	phaseDropColumn
	phaseDropTable
	phaseCreateTable
	phaseAddColumn
	phaseAlterColumn
	phaseCreateIndex
	phaseAddForeignKey
	phaseCreateRoutine
)

// Generator translates diffs into dialect-specific migrations.
type Generator struct {
	dialect Dialect
	style   utils.QuoteStyle
}

// NewGenerator creates a generator for the given dialect.
func NewGenerator(dialect Dialect) (*Generator, error) {
	switch dialect {
	case DialectSQLServer, DialectPostgres:
		return &Generator{dialect: dialect, style: dialect.QuoteStyle()}, nil
	default:
		return nil, errors.Errorf("unsupported dialect %q", dialect)
	}
}

// pendingStep carries a step plus its ordering phase until final numbering.
type pendingStep struct {
	phase int
	key   string
	step  Step
}

// Generate produces a migration whose steps, applied in order, transform the
// diff's source state into its target state. Breaking changes from the diff
// are copied onto the migration so callers can gate on them.
func (g *Generator) Generate(d *diff.Diff, name string) (*Migration, error) {
	if d == nil || d.Empty() {
		return nil, errors.New("diff contains no changes")
	}

	var pending []pendingStep
	for i := range d.Items {
		steps, err := g.stepsFor(&d.Items[i])
		if err != nil {
			return nil, err
		}
		pending = append(pending, steps...)
	}

	sort.SliceStable(pending, func(i, j int) bool {
		if pending[i].phase != pending[j].phase {
			return pending[i].phase < pending[j].phase
		}
		return pending[i].key < pending[j].key
	})

	m := &Migration{
		ID:              uuid.NewString(),
		Name:            name,
		Version:         time.Now().UTC().Format("20060102150405"),
		Description:     d.String(),
		Dialect:         g.dialect,
		BreakingChanges: append([]diff.BreakingChange(nil), d.Breaking...),
		Status:          StatusPending,
	}
	for i, p := range pending {
		p.step.Order = i + 1
		m.Steps = append(m.Steps, p.step)
	}
	m.Checksum = m.ComputeChecksum()
	return m, nil
}

func (g *Generator) stepsFor(item *diff.Item) ([]pendingStep, error) {
	switch item.ObjectType {
	case diff.ObjectTable:
		return g.tableSteps(item)
	case diff.ObjectColumn:
		return g.columnSteps(item)
	case diff.ObjectIndex:
		return g.indexSteps(item)
	case diff.ObjectForeignKey:
		return g.foreignKeySteps(item)
	case diff.ObjectView:
		return g.definitionSteps(item, "VIEW")
	case diff.ObjectProcedure:
		return g.definitionSteps(item, "PROCEDURE")
	case diff.ObjectFunction:
		return g.definitionSteps(item, "FUNCTION")
	case diff.ObjectTrigger:
		return g.triggerSteps(item)
	default:
		return nil, errors.Errorf("no step generation for object type %q", item.ObjectType)
	}
}

func (g *Generator) tableSteps(item *diff.Item) ([]pendingStep, error) {
	switch item.ChangeType {
	case diff.ChangeAdded:
		t, ok := item.NewValue.(*schema.Table)
		if !ok {
			return nil, errors.Errorf("table item %s carries no table value", item.ObjectName)
		}

		steps := []pendingStep{{
			phase: phaseCreateTable,
			key:   item.ObjectName,
			step: Step{
				Description:         "create table " + item.ObjectName,
				ForwardSQL:          g.createTableSQL(t),
				RollbackSQL:         utils.NewSQLBuilder(g.style).Drop("TABLE").QualifiedName(t.Schema, t.Name).String(),
				EstimatedDurationMS: 100,
			},
		}}
		for i := range t.Indexes {
			if t.Indexes[i].IsPrimaryKey {
				continue // the primary key rides on CREATE TABLE
			}
			steps = append(steps, g.createIndexStep(t.Schema, t.Name, &t.Indexes[i]))
		}
		for i := range t.ForeignKeys {
			steps = append(steps, g.addForeignKeyStep(t.Schema, t.Name, &t.ForeignKeys[i]))
		}
		return steps, nil

	case diff.ChangeRemoved:
		t, ok := item.OldValue.(*schema.Table)
		if !ok {
			return nil, errors.Errorf("table item %s carries no table value", item.ObjectName)
		}
		return []pendingStep{{
			phase: phaseDropTable,
			key:   item.ObjectName,
			step: Step{
				Description:         "drop table " + item.ObjectName,
				ForwardSQL:          utils.NewSQLBuilder(g.style).Drop("TABLE").QualifiedName(t.Schema, t.Name).String(),
				RequiresLock:        true,
				EstimatedDurationMS: 100,
			},
		}}, nil
	}
	return nil, nil
}

func (g *Generator) columnSteps(item *diff.Item) ([]pendingStep, error) {
	switch item.ChangeType {
	case diff.ChangeAdded:
		ref, ok := item.NewValue.(*diff.ColumnRef)
		if !ok {
			return nil, errors.Errorf("column item %s carries no column value", item.ObjectName)
		}
		c := ref.Column

		// Adding a NOT NULL column rewrites every row and takes a schema
		// modification lock for the duration.
		lock := !c.IsNullable
		duration := int64(50)
		if lock {
			duration = 500
		}
		return []pendingStep{{
			phase: phaseAddColumn,
			key:   item.ObjectName,
			step: Step{
				Description: "add column " + item.ObjectName,
				ForwardSQL: utils.NewSQLBuilder(g.style).
					Alter("TABLE").QualifiedName(ref.TableSchema, ref.TableName).
					Keyword(g.addColumnKeyword()).Raw(g.columnDDL(c)).String(),
				RollbackSQL:         g.dropColumnSQL(ref),
				RequiresLock:        lock,
				EstimatedDurationMS: duration,
			},
		}}, nil

	case diff.ChangeRemoved:
		ref, ok := item.OldValue.(*diff.ColumnRef)
		if !ok {
			return nil, errors.Errorf("column item %s carries no column value", item.ObjectName)
		}
		return []pendingStep{{
			phase: phaseDropColumn,
			key:   item.ObjectName,
			step: Step{
				Description:         "drop column " + item.ObjectName,
				ForwardSQL:          g.dropColumnSQL(ref),
				RequiresLock:        true,
				EstimatedDurationMS: 100,
			},
		}}, nil

	case diff.ChangeModified:
		oldRef, ok := item.OldValue.(*diff.ColumnRef)
		if !ok {
			return nil, errors.Errorf("column item %s carries no column value", item.ObjectName)
		}
		newRef, ok := item.NewValue.(*diff.ColumnRef)
		if !ok {
			return nil, errors.Errorf("column item %s carries no column value", item.ObjectName)
		}
		return g.alterColumnSteps(item, oldRef, newRef), nil
	}
	return nil, nil
}

// alterColumnSteps emits one step per sub-change. T-SQL expresses type and
// nullability in a single ALTER COLUMN, so those sub-changes collapse into
// one step there; PostgreSQL alters them independently.
func (g *Generator) alterColumnSteps(item *diff.Item, oldRef, newRef *diff.ColumnRef) []pendingStep {
	var steps []pendingStep
	oldCol, newCol := oldRef.Column, newRef.Column

	typeChanged := hasDetail(item, "data_type") || hasDetail(item, "max_length") ||
		hasDetail(item, "precision") || hasDetail(item, "scale")
	nullChanged := hasDetail(item, "is_nullable")

	if g.dialect == DialectSQLServer {
		if typeChanged || nullChanged {
			steps = append(steps, pendingStep{
				phase: phaseAlterColumn,
				key:   item.ObjectName,
				step: Step{
					Description:         "alter column " + item.ObjectName,
					ForwardSQL:          g.mssqlAlterColumnSQL(newRef.TableSchema, newRef.TableName, newCol),
					RollbackSQL:         g.mssqlAlterColumnSQL(oldRef.TableSchema, oldRef.TableName, oldCol),
					RequiresLock:        true,
					EstimatedDurationMS: 500,
				},
			})
		}
	} else {
		if typeChanged {
			steps = append(steps, pendingStep{
				phase: phaseAlterColumn,
				key:   item.ObjectName + "/type",
				step: Step{
					Description:         "alter column type " + item.ObjectName,
					ForwardSQL:          g.pgAlterColumnTypeSQL(newRef.TableSchema, newRef.TableName, newCol),
					RollbackSQL:         g.pgAlterColumnTypeSQL(oldRef.TableSchema, oldRef.TableName, oldCol),
					RequiresLock:        true,
					EstimatedDurationMS: 500,
				},
			})
		}
		if nullChanged {
			steps = append(steps, pendingStep{
				phase: phaseAlterColumn,
				key:   item.ObjectName + "/null",
				step: Step{
					Description:         "alter column nullability " + item.ObjectName,
					ForwardSQL:          g.pgAlterColumnNullSQL(newRef.TableSchema, newRef.TableName, newCol),
					RollbackSQL:         g.pgAlterColumnNullSQL(oldRef.TableSchema, oldRef.TableName, oldCol),
					RequiresLock:        true,
					EstimatedDurationMS: 500,
				},
			})
		}
	}

	if hasDetail(item, "default_value") {
		steps = append(steps, pendingStep{
			phase: phaseAlterColumn,
			key:   item.ObjectName + "/default",
			step: Step{
				Description:         "alter column default " + item.ObjectName,
				ForwardSQL:          g.alterDefaultSQL(newRef.TableSchema, newRef.TableName, newCol),
				RollbackSQL:         g.alterDefaultSQL(oldRef.TableSchema, oldRef.TableName, oldCol),
				EstimatedDurationMS: 50,
			},
		})
	}
	return steps
}

func (g *Generator) indexSteps(item *diff.Item) ([]pendingStep, error) {
	switch item.ChangeType {
	case diff.ChangeAdded:
		ref, ok := item.NewValue.(*diff.IndexRef)
		if !ok {
			return nil, errors.Errorf("index item %s carries no index value", item.ObjectName)
		}
		return []pendingStep{g.createIndexStep(ref.TableSchema, ref.TableName, ref.Index)}, nil

	case diff.ChangeRemoved:
		ref, ok := item.OldValue.(*diff.IndexRef)
		if !ok {
			return nil, errors.Errorf("index item %s carries no index value", item.ObjectName)
		}
		return []pendingStep{g.dropIndexStep(ref.TableSchema, ref.TableName, ref.Index)}, nil

	case diff.ChangeModified:
		// Indexes are immutable; rebuild by drop + create.
		oldRef, ok := item.OldValue.(*diff.IndexRef)
		if !ok {
			return nil, errors.Errorf("index item %s carries no index value", item.ObjectName)
		}
		newRef, ok := item.NewValue.(*diff.IndexRef)
		if !ok {
			return nil, errors.Errorf("index item %s carries no index value", item.ObjectName)
		}
		return []pendingStep{
			g.dropIndexStep(oldRef.TableSchema, oldRef.TableName, oldRef.Index),
			g.createIndexStep(newRef.TableSchema, newRef.TableName, newRef.Index),
		}, nil
	}
	return nil, nil
}

func (g *Generator) foreignKeySteps(item *diff.Item) ([]pendingStep, error) {
	switch item.ChangeType {
	case diff.ChangeAdded:
		ref, ok := item.NewValue.(*diff.ForeignKeyRef)
		if !ok {
			return nil, errors.Errorf("foreign key item %s carries no value", item.ObjectName)
		}
		return []pendingStep{g.addForeignKeyStep(ref.TableSchema, ref.TableName, ref.ForeignKey)}, nil

	case diff.ChangeRemoved:
		ref, ok := item.OldValue.(*diff.ForeignKeyRef)
		if !ok {
			return nil, errors.Errorf("foreign key item %s carries no value", item.ObjectName)
		}
		return []pendingStep{g.dropForeignKeyStep(ref.TableSchema, ref.TableName, ref.ForeignKey)}, nil

	case diff.ChangeModified:
		oldRef, ok := item.OldValue.(*diff.ForeignKeyRef)
		if !ok {
			return nil, errors.Errorf("foreign key item %s carries no value", item.ObjectName)
		}
		newRef, ok := item.NewValue.(*diff.ForeignKeyRef)
		if !ok {
			return nil, errors.Errorf("foreign key item %s carries no value", item.ObjectName)
		}
		return []pendingStep{
			g.dropForeignKeyStep(oldRef.TableSchema, oldRef.TableName, oldRef.ForeignKey),
			g.addForeignKeyStep(newRef.TableSchema, newRef.TableName, newRef.ForeignKey),
		}, nil
	}
	return nil, nil
}

// definitionSteps handles views, procedures, and functions, whose forward
// DDL is their extracted definition text.
func (g *Generator) definitionSteps(item *diff.Item, objectType string) ([]pendingStep, error) {
	dropPhase, createPhase := phaseDropView, phaseCreateRoutine
	if objectType != "VIEW" {
		dropPhase = phaseDropRoutine
	}

	schemaName, objectName := splitQualified(item.ObjectName)
	dropSQL := utils.NewSQLBuilder(g.style).Drop(objectType).QualifiedName(schemaName, objectName).String()

	switch item.ChangeType {
	case diff.ChangeAdded:
		def := definitionOf(item.NewValue)
		if def == "" {
			return nil, errors.Errorf("%s %s has no definition to create from", strings.ToLower(objectType), item.ObjectName)
		}
		return []pendingStep{{
			phase: createPhase,
			key:   item.ObjectName,
			step: Step{
				Description:         fmt.Sprintf("create %s %s", strings.ToLower(objectType), item.ObjectName),
				ForwardSQL:          def,
				RollbackSQL:         dropSQL,
				EstimatedDurationMS: 50,
			},
		}}, nil

	case diff.ChangeRemoved:
		return []pendingStep{{
			phase: dropPhase,
			key:   item.ObjectName,
			step: Step{
				Description:         fmt.Sprintf("drop %s %s", strings.ToLower(objectType), item.ObjectName),
				ForwardSQL:          dropSQL,
				RollbackSQL:         definitionOf(item.OldValue),
				EstimatedDurationMS: 50,
			},
		}}, nil

	case diff.ChangeModified:
		newDef := definitionOf(item.NewValue)
		oldDef := definitionOf(item.OldValue)
		if newDef == "" || oldDef == "" {
			return nil, errors.Errorf("%s %s has no definition to alter from", strings.ToLower(objectType), item.ObjectName)
		}
		return []pendingStep{{
			phase: createPhase,
			key:   item.ObjectName,
			step: Step{
				Description:         fmt.Sprintf("replace %s %s", strings.ToLower(objectType), item.ObjectName),
				ForwardSQL:          dropSQL + g.separator() + newDef,
				RollbackSQL:         dropSQL + g.separator() + oldDef,
				EstimatedDurationMS: 50,
			},
		}}, nil
	}
	return nil, nil
}

func (g *Generator) triggerSteps(item *diff.Item) ([]pendingStep, error) {
	dropSQL := func(t *schema.Trigger) string {
		b := utils.NewSQLBuilder(g.style).Drop("TRIGGER")
		if g.dialect == DialectPostgres {
			// PostgreSQL drops triggers relative to their table.
			return b.Name(t.Name).On(t.TableSchema, t.TableName).String()
		}
		return b.QualifiedName(t.Schema, t.Name).String()
	}

	switch item.ChangeType {
	case diff.ChangeAdded:
		t, ok := item.NewValue.(*schema.Trigger)
		if !ok {
			return nil, errors.Errorf("trigger item %s carries no trigger value", item.ObjectName)
		}
		if t.Definition == "" {
			return nil, errors.Errorf("trigger %s has no definition to create from", item.ObjectName)
		}
		return []pendingStep{{
			phase: phaseCreateRoutine,
			key:   item.ObjectName,
			step: Step{
				Description:         "create trigger " + item.ObjectName,
				ForwardSQL:          t.Definition,
				RollbackSQL:         dropSQL(t),
				EstimatedDurationMS: 50,
			},
		}}, nil

	case diff.ChangeRemoved:
		t, ok := item.OldValue.(*schema.Trigger)
		if !ok {
			return nil, errors.Errorf("trigger item %s carries no trigger value", item.ObjectName)
		}
		return []pendingStep{{
			phase: phaseDropTrigger,
			key:   item.ObjectName,
			step: Step{
				Description:         "drop trigger " + item.ObjectName,
				ForwardSQL:          dropSQL(t),
				RollbackSQL:         t.Definition,
				EstimatedDurationMS: 50,
			},
		}}, nil

	case diff.ChangeModified:
		oldT, ok := item.OldValue.(*schema.Trigger)
		if !ok {
			return nil, errors.Errorf("trigger item %s carries no trigger value", item.ObjectName)
		}
		newT, ok := item.NewValue.(*schema.Trigger)
		if !ok {
			return nil, errors.Errorf("trigger item %s carries no trigger value", item.ObjectName)
		}
		return []pendingStep{{
			phase: phaseCreateRoutine,
			key:   item.ObjectName,
			step: Step{
				Description:         "replace trigger " + item.ObjectName,
				ForwardSQL:          dropSQL(oldT) + g.separator() + newT.Definition,
				RollbackSQL:         dropSQL(oldT) + g.separator() + oldT.Definition,
				EstimatedDurationMS: 50,
			},
		}}, nil
	}
	return nil, nil
}

func (g *Generator) createIndexStep(tableSchema, tableName string, ix *schema.Index) pendingStep {
	name := tableSchema + "." + tableName + "." + ix.Name
	if ix.IsPrimaryKey {
		return pendingStep{
			phase: phaseCreateIndex,
			key:   name,
			step: Step{
				Description: "add primary key " + name,
				ForwardSQL: utils.NewSQLBuilder(g.style).
					Alter("TABLE").QualifiedName(tableSchema, tableName).
					Keyword("ADD", "CONSTRAINT").Name(ix.Name).
					Keyword("PRIMARY", "KEY").Columns(ix.KeyColumns...).String(),
				RollbackSQL:         g.dropConstraintSQL(tableSchema, tableName, ix.Name),
				RequiresLock:        true,
				EstimatedDurationMS: 1000,
			},
		}
	}

	return pendingStep{
		phase: phaseCreateIndex,
		key:   name,
		step: Step{
			Description:         "create index " + name,
			ForwardSQL:          g.createIndexSQL(tableSchema, tableName, ix),
			RollbackSQL:         g.dropIndexSQL(tableSchema, tableName, ix),
			EstimatedDurationMS: 1000,
		},
	}
}

func (g *Generator) dropIndexStep(tableSchema, tableName string, ix *schema.Index) pendingStep {
	name := tableSchema + "." + tableName + "." + ix.Name
	if ix.IsPrimaryKey {
		return pendingStep{
			phase: phaseDropIndex,
			key:   name,
			step: Step{
				Description: "drop primary key " + name,
				ForwardSQL:  g.dropConstraintSQL(tableSchema, tableName, ix.Name),
				RollbackSQL: utils.NewSQLBuilder(g.style).
					Alter("TABLE").QualifiedName(tableSchema, tableName).
					Keyword("ADD", "CONSTRAINT").Name(ix.Name).
					Keyword("PRIMARY", "KEY").Columns(ix.KeyColumns...).String(),
				RequiresLock:        true,
				EstimatedDurationMS: 100,
			},
		}
	}

	return pendingStep{
		phase: phaseDropIndex,
		key:   name,
		step: Step{
			Description:         "drop index " + name,
			ForwardSQL:          g.dropIndexSQL(tableSchema, tableName, ix),
			RollbackSQL:         g.createIndexSQL(tableSchema, tableName, ix),
			EstimatedDurationMS: 100,
		},
	}
}

func (g *Generator) addForeignKeyStep(tableSchema, tableName string, fk *schema.ForeignKey) pendingStep {
	name := tableSchema + "." + tableName + "." + fk.Name
	return pendingStep{
		phase: phaseAddForeignKey,
		key:   name,
		step: Step{
			Description:         "add foreign key " + name,
			ForwardSQL:          g.addForeignKeySQL(tableSchema, tableName, fk),
			RollbackSQL:         g.dropConstraintSQL(tableSchema, tableName, fk.Name),
			EstimatedDurationMS: 200,
		},
	}
}

func (g *Generator) dropForeignKeyStep(tableSchema, tableName string, fk *schema.ForeignKey) pendingStep {
	name := tableSchema + "." + tableName + "." + fk.Name
	return pendingStep{
		phase: phaseDropForeignKey,
		key:   name,
		step: Step{
			Description:         "drop foreign key " + name,
			ForwardSQL:          g.dropConstraintSQL(tableSchema, tableName, fk.Name),
			RollbackSQL:         g.addForeignKeySQL(tableSchema, tableName, fk),
			EstimatedDurationMS: 100,
		},
	}
}

// hasDetail reports whether the item recorded a change for the attribute.
func hasDetail(item *diff.Item, key string) bool {
	_, ok := item.Details[key]
	return ok
}

func definitionOf(value any) string {
	switch v := value.(type) {
	case *schema.View:
		return v.Definition
	case *schema.Procedure:
		return v.Definition
	case *schema.Function:
		return v.Definition
	default:
		return ""
	}
}

// splitQualified separates "schema.name" at the first dot. Object names at
// this level never contain embedded dots; column-level names never reach
// here.
func splitQualified(name string) (string, string) {
	if i := strings.Index(name, "."); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}
