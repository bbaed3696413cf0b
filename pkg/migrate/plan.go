package migrate

import (
	"sort"

	"github.com/pkg/errors"
)

// ErrPlanCycle is returned when migration dependencies form a cycle.
var ErrPlanCycle = errors.New("migration dependencies form a cycle")

// Plan is a set of migrations in a dependency-consistent execution order.
type Plan struct {
	Migrations []*Migration `json:"migrations"`
}

// CreatePlan orders migrations so every migration runs after all of its
// dependencies. Ordering is deterministic: among migrations whose
// dependencies are satisfied, the one with the smallest id runs first. A
// dependency on an unknown migration id or a dependency cycle is an error.
func CreatePlan(migrations []*Migration) (*Plan, error) {
	byID := make(map[string]*Migration, len(migrations))
	for _, m := range migrations {
		if _, ok := byID[m.ID]; ok {
			return nil, errors.Errorf("duplicate migration id %q", m.ID)
		}
		byID[m.ID] = m
	}

	indegree := make(map[string]int, len(migrations))
	dependents := make(map[string][]string, len(migrations))
	for _, m := range migrations {
		indegree[m.ID] += 0
		for _, dep := range m.Dependencies {
			if _, ok := byID[dep]; !ok {
				return nil, errors.Errorf("migration %q depends on unknown migration %q", m.ID, dep)
			}
			indegree[m.ID]++
			dependents[dep] = append(dependents[dep], m.ID)
		}
	}

	var ready []string
	for id, deg := range indegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	plan := &Plan{Migrations: make([]*Migration, 0, len(migrations))}
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		plan.Migrations = append(plan.Migrations, byID[id])

		var unlocked []string
		for _, next := range dependents[id] {
			indegree[next]--
			if indegree[next] == 0 {
				unlocked = append(unlocked, next)
			}
		}
		if len(unlocked) > 0 {
			ready = append(ready, unlocked...)
			sort.Strings(ready)
		}
	}

	if len(plan.Migrations) != len(migrations) {
		return nil, errors.WithStack(ErrPlanCycle)
	}
	return plan, nil
}
