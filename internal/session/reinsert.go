package session

import "slices"

// minSpacing is the least number of slots a failed item is pushed back.
const minSpacing = 3

// Reinsert moves the item at pos later in queue after a failed rating and
// returns the new queue along with the index the item now occupies.
//
// The item is pushed back max(3, remaining/3) slots, where remaining counts
// the items after it, and the insert index is clamped to the queue length
// after removal. The item sliding into pos becomes the new current item; the
// length never changes.
func Reinsert(queue []string, pos int) ([]string, int) {
	remaining := len(queue) - pos - 1
	spacing := max(minSpacing, remaining/3)

	item := queue[pos]
	out := make([]string, 0, len(queue))
	out = append(out, queue[:pos]...)
	out = append(out, queue[pos+1:]...)

	idx := min(pos+spacing, len(out))
	return slices.Insert(out, idx, item), idx
}
