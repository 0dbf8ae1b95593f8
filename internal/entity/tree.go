package entity

import "sort"

// RecomputeLevels recomputes the depth level of every task from its parent
// chain. Levels are never trusted from storage: a task's level is the
// number of ancestor hops to a root, with a defensive floor of zero for a
// dangling parent reference or a cycle (cycles are possible user error and
// must not loop forever).
func RecomputeLevels(tasks map[string]*Task) {
	for _, t := range tasks {
		t.Level = levelOf(t, tasks)
	}
}

// levelOf walks the parent chain with a visited set. Hitting a missing
// parent or a task already seen collapses the whole chain to zero.
func levelOf(t *Task, tasks map[string]*Task) int {
	visited := map[string]bool{t.ID: true}
	level := 0

	cur := t
	for cur.ParentID != "" {
		parent, ok := tasks[cur.ParentID]
		if !ok || visited[parent.ID] {
			return 0
		}

		visited[parent.ID] = true
		level++
		cur = parent
	}

	return level
}

// ChildrenIndex builds a recomputed parent→children index, each child list
// ordered by sort key (ties broken by id for determinism). Root tasks
// appear under the empty-string key. Like levels, the index is always
// derived fresh and never persisted.
func ChildrenIndex(tasks map[string]*Task) map[string][]string {
	index := make(map[string][]string)

	for id, t := range tasks {
		parent := t.ParentID
		if _, ok := tasks[parent]; !ok {
			parent = ""
		}

		index[parent] = append(index[parent], id)
	}

	for parent, ids := range index {
		sort.Slice(ids, func(i, j int) bool {
			a, b := tasks[ids[i]], tasks[ids[j]]
			if a.Order != b.Order {
				return a.Order < b.Order
			}

			return a.ID < b.ID
		})

		index[parent] = ids
	}

	return index
}
