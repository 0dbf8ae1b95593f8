package entity

import "sort"

// orderIncrement is the gap appended past the last sibling's sort key.
const orderIncrement = 1.0

// OrderBetween returns a sort key strictly between a and b (midpoint
// policy), letting a sibling be inserted without renumbering. When the two
// keys have converged so far that no representable value lies between them,
// the midpoint equals one of the bounds; callers detect that with the ok
// result and fall back to RenumberSiblings.
func OrderBetween(a, b float64) (mid float64, ok bool) {
	if b < a {
		a, b = b, a
	}

	mid = a + (b-a)/2

	return mid, mid > a && mid < b
}

// OrderAfter returns a sort key past the given last sibling key.
func OrderAfter(last float64) float64 {
	return last + orderIncrement
}

// RenumberSiblings reassigns consecutive integer sort keys (1, 2, 3, …) to
// the given tasks in their current sort-key order, ties broken by id.
// Repeated midpoint insertion exhausts floating-point precision under
// adversarial use; this is the explicit maintenance pass that restores
// headroom. The tasks are mutated in place.
func RenumberSiblings(siblings []*Task) {
	sort.Slice(siblings, func(i, j int) bool {
		if siblings[i].Order != siblings[j].Order {
			return siblings[i].Order < siblings[j].Order
		}

		return siblings[i].ID < siblings[j].ID
	})

	for i, t := range siblings {
		t.Order = float64(i + 1)
	}
}
