// Package cursor provides a navigable pointer into a non-empty ordered sequence.
package cursor

// Cursor partitions a sequence into the elements already visited (before),
// the current element, and the elements not yet visited (after).
// before ++ [current] ++ after always holds every original element exactly once.
//
// A Cursor is not safe for concurrent use.
type Cursor[T any] struct {
	before  []T
	current T
	after   []T
}

// New returns a cursor positioned on current with rest as the unvisited tail.
func New[T any](current T, rest []T) *Cursor[T] {
	after := make([]T, len(rest))
	copy(after, rest)
	return &Cursor[T]{current: current, after: after}
}

// Current returns the element under the cursor.
func (c *Cursor[T]) Current() T {
	return c.current
}

// Before returns a copy of the visited elements, oldest first.
func (c *Cursor[T]) Before() []T {
	return clone(c.before)
}

// After returns a copy of the unvisited elements, nearest first.
func (c *Cursor[T]) After() []T {
	return clone(c.after)
}

// Size is the total number of elements and never changes.
func (c *Cursor[T]) Size() int {
	return len(c.before) + 1 + len(c.after)
}

// CurrentIndex is the number of visited elements.
func (c *Cursor[T]) CurrentIndex() int {
	return len(c.before)
}

// First moves to the oldest visited element. No-op when nothing was visited.
func (c *Cursor[T]) First() {
	if len(c.before) == 0 {
		return
	}
	after := make([]T, 0, len(c.before)+len(c.after))
	after = append(after, c.before[1:]...)
	after = append(after, c.current)
	after = append(after, c.after...)

	c.current = c.before[0]
	c.after = after
	c.before = nil
}

// Last moves to the final unvisited element. No-op when nothing is left.
func (c *Cursor[T]) Last() {
	if len(c.after) == 0 {
		return
	}
	n := len(c.after)
	before := make([]T, 0, len(c.before)+n)
	before = append(before, c.before...)
	before = append(before, c.current)
	before = append(before, c.after[:n-1]...)

	c.current = c.after[n-1]
	c.before = before
	c.after = nil
}

// Next moves to the nearest unvisited element and folds the remaining
// unvisited elements into before, leaving after empty. A second call is
// therefore a no-op: Next saturates rather than stepping one at a time.
func (c *Cursor[T]) Next() {
	if len(c.after) == 0 {
		return
	}
	before := make([]T, 0, len(c.before)+len(c.after))
	before = append(before, c.before...)
	before = append(before, c.current)
	before = append(before, c.after[1:]...)

	c.current = c.after[0]
	c.before = before
	c.after = nil
}

func clone[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}
