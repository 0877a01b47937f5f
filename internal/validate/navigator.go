package validate

// Navigator cycles through an ordered set of document positions, wrapping at
// both ends. The zero value is an empty navigator.
type Navigator struct {
	positions []int
	cur       int
}

// NewNavigator returns a Navigator over positions with no current entry.
func NewNavigator(positions []int) *Navigator {
	n := &Navigator{}
	n.Reset(positions)
	return n
}

// Reset replaces the position set and forgets the current entry.
func (n *Navigator) Reset(positions []int) {
	n.positions = append(n.positions[:0], positions...)
	n.cur = -1
}

// Positions returns a copy of the position set.
func (n *Navigator) Positions() []int {
	return append([]int(nil), n.positions...)
}

// Len returns the number of positions.
func (n *Navigator) Len() int { return len(n.positions) }

// Current returns the ordinal of the current entry, -1 before the first move.
func (n *Navigator) Current() int { return n.cur }

// Next advances to the following position. ok is false for an empty set.
func (n *Navigator) Next() (pos int, ok bool) {
	if len(n.positions) == 0 {
		return 0, false
	}
	n.cur = (n.cur + 1) % len(n.positions)
	return n.positions[n.cur], true
}

// Previous moves to the preceding position. From the initial state it
// wraps to the last entry.
func (n *Navigator) Previous() (pos int, ok bool) {
	if len(n.positions) == 0 {
		return 0, false
	}
	if n.cur <= 0 {
		n.cur = len(n.positions) - 1
	} else {
		n.cur--
	}
	return n.positions[n.cur], true
}
