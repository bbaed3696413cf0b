package diff

import (
	"fmt"
	"strings"

	"github.com/dbwarden/warden/pkg/schema"
	"github.com/dbwarden/warden/pkg/utils"
)

// Compute compares two databases and returns the ordered diff. The source is
// the current state, the target is the desired state: objects present only in
// the target are added, objects present only in the source are removed.
func Compute(source, target *schema.Database) *Diff {
	d := &Diff{}
	if source == nil {
		source = &schema.Database{}
	}
	if target == nil {
		target = &schema.Database{}
	}

	d.compareTables(source.Tables, target.Tables)
	d.compareViews(source.Views, target.Views)
	d.compareProcedures(source.Procedures, target.Procedures)
	d.compareFunctions(source.Functions, target.Functions)
	d.compareTriggers(source.Triggers, target.Triggers)

	d.sortItems()
	return d
}

// keyed builds a case-insensitive lookup map plus the keys in input order.
func keyed[T any](items []T, key func(*T) string) (map[string]*T, []string) {
	m := make(map[string]*T, len(items))
	keys := make([]string, 0, len(items))
	for i := range items {
		k := key(&items[i])
		m[k] = &items[i]
		keys = append(keys, k)
	}
	return m, keys
}

func (d *Diff) compareTables(source, target []schema.Table) {
	src, srcKeys := keyed(source, func(t *schema.Table) string { return schema.ObjectKey(t.Schema, t.Name) })
	tgt, tgtKeys := keyed(target, func(t *schema.Table) string { return schema.ObjectKey(t.Schema, t.Name) })

	for _, k := range tgtKeys {
		if _, ok := src[k]; ok {
			continue
		}
		t := tgt[k]
		d.Summary.TablesAdded++
		d.Items = append(d.Items, Item{
			ObjectType: ObjectTable,
			ObjectName: t.QualifiedName(),
			ChangeType: ChangeAdded,
			NewValue:   t,
		})
	}

	for _, k := range srcKeys {
		t := src[k]
		if _, ok := tgt[k]; !ok {
			d.Summary.TablesRemoved++
			d.Items = append(d.Items, Item{
				ObjectType: ObjectTable,
				ObjectName: t.QualifiedName(),
				ChangeType: ChangeRemoved,
				OldValue:   t,
				Breaking:   true,
			})
			d.Breaking = append(d.Breaking, BreakingChange{
				ChangeType:   ChangeRemoved,
				Severity:     SeverityCritical,
				ObjectName:   t.QualifiedName(),
				Description:  fmt.Sprintf("table %s is dropped", t.QualifiedName()),
				DataLossRisk: true,
				Remediation:  "archive or migrate the table's data before applying",
			})
			continue
		}
		d.compareTable(t, tgt[k])
	}
}

func (d *Diff) compareViews(source, target []schema.View) {
	src, srcKeys := keyed(source, func(v *schema.View) string { return schema.ObjectKey(v.Schema, v.Name) })
	tgt, tgtKeys := keyed(target, func(v *schema.View) string { return schema.ObjectKey(v.Schema, v.Name) })

	for _, k := range tgtKeys {
		if _, ok := src[k]; ok {
			continue
		}
		v := tgt[k]
		d.Summary.ViewsAdded++
		d.Items = append(d.Items, Item{
			ObjectType: ObjectView,
			ObjectName: v.QualifiedName(),
			ChangeType: ChangeAdded,
			NewValue:   v,
		})
	}

	for _, k := range srcKeys {
		v := src[k]
		other, ok := tgt[k]
		if !ok {
			d.Summary.ViewsRemoved++
			d.Items = append(d.Items, Item{
				ObjectType: ObjectView,
				ObjectName: v.QualifiedName(),
				ChangeType: ChangeRemoved,
				OldValue:   v,
				Breaking:   true,
			})
			d.Breaking = append(d.Breaking, BreakingChange{
				ChangeType:  ChangeRemoved,
				Severity:    SeverityHigh,
				ObjectName:  v.QualifiedName(),
				Description: fmt.Sprintf("view %s is dropped", v.QualifiedName()),
				Remediation: "remove client references to the view before applying",
			})
			continue
		}

		if definitionChanged(v.Definition, other.Definition) {
			d.Summary.ViewsModified++
			d.Items = append(d.Items, Item{
				ObjectType: ObjectView,
				ObjectName: v.QualifiedName(),
				ChangeType: ChangeModified,
				OldValue:   v,
				NewValue:   other,
				Details:    map[string]any{"definition_changed": true},
			})
		}
	}
}

func (d *Diff) compareProcedures(source, target []schema.Procedure) {
	src, srcKeys := keyed(source, func(p *schema.Procedure) string { return schema.ObjectKey(p.Schema, p.Name) })
	tgt, tgtKeys := keyed(target, func(p *schema.Procedure) string { return schema.ObjectKey(p.Schema, p.Name) })

	for _, k := range tgtKeys {
		if _, ok := src[k]; ok {
			continue
		}
		p := tgt[k]
		d.Summary.ProceduresAdded++
		d.Items = append(d.Items, Item{
			ObjectType: ObjectProcedure,
			ObjectName: p.QualifiedName(),
			ChangeType: ChangeAdded,
			NewValue:   p,
		})
	}

	for _, k := range srcKeys {
		p := src[k]
		other, ok := tgt[k]
		if !ok {
			d.Summary.ProceduresRemoved++
			d.Items = append(d.Items, Item{
				ObjectType: ObjectProcedure,
				ObjectName: p.QualifiedName(),
				ChangeType: ChangeRemoved,
				OldValue:   p,
				Breaking:   true,
			})
			d.Breaking = append(d.Breaking, BreakingChange{
				ChangeType:  ChangeRemoved,
				Severity:    SeverityHigh,
				ObjectName:  p.QualifiedName(),
				Description: fmt.Sprintf("procedure %s is dropped", p.QualifiedName()),
				Remediation: "remove callers of the procedure before applying",
			})
			continue
		}

		details := map[string]any{}
		breaking := false
		if definitionChanged(p.Definition, other.Definition) {
			details["definition_changed"] = true
		}
		if reason, changed := signatureChange(p.Parameters, other.Parameters); changed {
			details["signature_changed"] = true
			breaking = true
			d.Breaking = append(d.Breaking, BreakingChange{
				ChangeType:  ChangeModified,
				Severity:    SeverityHigh,
				ObjectName:  p.QualifiedName(),
				Description: fmt.Sprintf("procedure %s signature changed: %s", p.QualifiedName(), reason),
				Remediation: "update callers to the new parameter list before applying",
			})
		}
		if len(details) == 0 {
			continue
		}
		d.Summary.ProceduresModified++
		d.Items = append(d.Items, Item{
			ObjectType: ObjectProcedure,
			ObjectName: p.QualifiedName(),
			ChangeType: ChangeModified,
			OldValue:   p,
			NewValue:   other,
			Details:    details,
			Breaking:   breaking,
		})
	}
}

func (d *Diff) compareFunctions(source, target []schema.Function) {
	src, srcKeys := keyed(source, func(f *schema.Function) string { return schema.ObjectKey(f.Schema, f.Name) })
	tgt, tgtKeys := keyed(target, func(f *schema.Function) string { return schema.ObjectKey(f.Schema, f.Name) })

	for _, k := range tgtKeys {
		if _, ok := src[k]; ok {
			continue
		}
		f := tgt[k]
		d.Summary.FunctionsAdded++
		d.Items = append(d.Items, Item{
			ObjectType: ObjectFunction,
			ObjectName: f.QualifiedName(),
			ChangeType: ChangeAdded,
			NewValue:   f,
		})
	}

	for _, k := range srcKeys {
		f := src[k]
		other, ok := tgt[k]
		if !ok {
			d.Summary.FunctionsRemoved++
			d.Items = append(d.Items, Item{
				ObjectType: ObjectFunction,
				ObjectName: f.QualifiedName(),
				ChangeType: ChangeRemoved,
				OldValue:   f,
				Breaking:   true,
			})
			d.Breaking = append(d.Breaking, BreakingChange{
				ChangeType:  ChangeRemoved,
				Severity:    SeverityHigh,
				ObjectName:  f.QualifiedName(),
				Description: fmt.Sprintf("function %s is dropped", f.QualifiedName()),
				Remediation: "remove callers of the function before applying",
			})
			continue
		}

		details := map[string]any{}
		breaking := false
		if definitionChanged(f.Definition, other.Definition) {
			details["definition_changed"] = true
		}
		if reason, changed := signatureChange(f.Parameters, other.Parameters); changed {
			details["signature_changed"] = true
			breaking = true
			d.Breaking = append(d.Breaking, BreakingChange{
				ChangeType:  ChangeModified,
				Severity:    SeverityHigh,
				ObjectName:  f.QualifiedName(),
				Description: fmt.Sprintf("function %s signature changed: %s", f.QualifiedName(), reason),
				Remediation: "update callers to the new parameter list before applying",
			})
		}
		if !strings.EqualFold(f.ReturnType, other.ReturnType) {
			details["return_type"] = Change{From: f.ReturnType, To: other.ReturnType}
			breaking = true
			d.Breaking = append(d.Breaking, BreakingChange{
				ChangeType:  ChangeModified,
				Severity:    SeverityHigh,
				ObjectName:  f.QualifiedName(),
				Description: fmt.Sprintf("function %s return type changed from %s to %s", f.QualifiedName(), f.ReturnType, other.ReturnType),
				Remediation: "update callers to handle the new return type before applying",
			})
		}
		if len(details) == 0 {
			continue
		}
		d.Summary.FunctionsModified++
		d.Items = append(d.Items, Item{
			ObjectType: ObjectFunction,
			ObjectName: f.QualifiedName(),
			ChangeType: ChangeModified,
			OldValue:   f,
			NewValue:   other,
			Details:    details,
			Breaking:   breaking,
		})
	}
}

func (d *Diff) compareTriggers(source, target []schema.Trigger) {
	src, srcKeys := keyed(source, func(t *schema.Trigger) string { return schema.ObjectKey(t.Schema, t.Name) })
	tgt, tgtKeys := keyed(target, func(t *schema.Trigger) string { return schema.ObjectKey(t.Schema, t.Name) })

	for _, k := range tgtKeys {
		if _, ok := src[k]; ok {
			continue
		}
		t := tgt[k]
		d.Summary.TriggersAdded++
		d.Items = append(d.Items, Item{
			ObjectType: ObjectTrigger,
			ObjectName: t.QualifiedName(),
			ChangeType: ChangeAdded,
			NewValue:   t,
		})
	}

	for _, k := range srcKeys {
		t := src[k]
		other, ok := tgt[k]
		if !ok {
			d.Summary.TriggersRemoved++
			d.Items = append(d.Items, Item{
				ObjectType: ObjectTrigger,
				ObjectName: t.QualifiedName(),
				ChangeType: ChangeRemoved,
				OldValue:   t,
			})
			continue
		}

		details := map[string]any{}
		if definitionChanged(t.Definition, other.Definition) {
			details["definition_changed"] = true
		}
		if t.IsDisabled != other.IsDisabled {
			details["is_disabled"] = Change{From: t.IsDisabled, To: other.IsDisabled}
		}
		if len(details) == 0 {
			continue
		}
		d.Summary.TriggersModified++
		d.Items = append(d.Items, Item{
			ObjectType: ObjectTrigger,
			ObjectName: t.QualifiedName(),
			ChangeType: ChangeModified,
			OldValue:   t,
			NewValue:   other,
			Details:    details,
		})
	}
}

// definitionChanged compares canonicalized body text. A pure body change is
// reported as modified but is never breaking by itself.
func definitionChanged(a, b string) bool {
	return utils.NormalizeDefinition(a) != utils.NormalizeDefinition(b)
}

// signatureChange reports whether a routine's callable signature changed:
// a parameter removed, a parameter's type changed, or a parameter added
// without a default. Adding a defaulted parameter keeps existing call sites
// valid and is not a signature change.
func signatureChange(source, target []schema.Parameter) (string, bool) {
	byName := make(map[string]*schema.Parameter, len(source))
	for i := range source {
		byName[strings.ToLower(source[i].Name)] = &source[i]
	}

	seen := make(map[string]struct{}, len(target))
	for i := range target {
		p := &target[i]
		seen[strings.ToLower(p.Name)] = struct{}{}

		old, ok := byName[strings.ToLower(p.Name)]
		if !ok {
			if !p.HasDefault {
				return fmt.Sprintf("parameter %s added without default", p.Name), true
			}
			continue
		}
		if !strings.EqualFold(old.DataType, p.DataType) {
			return fmt.Sprintf("parameter %s type changed from %s to %s", p.Name, old.DataType, p.DataType), true
		}
	}

	for i := range source {
		if _, ok := seen[strings.ToLower(source[i].Name)]; !ok {
			return fmt.Sprintf("parameter %s removed", source[i].Name), true
		}
	}
	return "", false
}
