package runtime

// Loop is the loop adapter bound to the special name `loop` inside a
// generated for-body, grounded on the teacher's loopObject in state.go
// (Index/Index0/First/Last/Length fields, reimplemented against a concrete
// slice length known at call time instead of a dynamic iterator).
type Loop struct {
	index int // 0-based
	len   int
}

// NewLoop builds a Loop adapter for a sequence of n items, to be advanced
// once per iteration with Advance.
func NewLoop(n int) *Loop {
	return &Loop{index: -1, len: n}
}

// Advance moves the loop to the next item; generated for-bodies call it
// first in each iteration, before reading Index/First/Last.
func (l *Loop) Advance() { l.index++ }

// Index is the 1-based position of the current item.
func (l *Loop) Index() int { return l.index + 1 }

// Index0 is the 0-based position of the current item.
func (l *Loop) Index0() int { return l.index }

// First reports whether the current item is the first one.
func (l *Loop) First() bool { return l.index == 0 }

// Last reports whether the current item is the last one.
func (l *Loop) Last() bool { return l.index == l.len-1 }

// Length is the total number of items the loop will iterate.
func (l *Loop) Length() int { return l.len }
