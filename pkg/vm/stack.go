package vm

import (
	"github.com/nspcc-dev/neo-go-core/pkg/vm/stackitem"
)

// Stack is a LIFO of stack items supporting the random-access operations
// opcodes like PICK/ROLL/XDROP need (spec.md §3 "evaluation stack").
// Index 0 is always the top.
type Stack struct {
	items []stackitem.Item
	refs  *stackitem.RefCounter
}

// NewStack creates an empty stack tracked by the given reference counter
// (nil disables tracking, used for scratch stacks in tests).
func NewStack(refs *stackitem.RefCounter) *Stack {
	return &Stack{refs: refs}
}

// Len returns the number of items on the stack.
func (s *Stack) Len() int { return len(s.items) }

// Push adds an item to the top of the stack.
func (s *Stack) Push(item stackitem.Item) error {
	if s.refs != nil {
		if err := s.refs.Add(item); err != nil {
			return err
		}
	}
	s.items = append(s.items, item)
	return nil
}

// Pop removes and returns the top item.
func (s *Stack) Pop() (stackitem.Item, error) {
	if len(s.items) == 0 {
		return nil, errStackUnderflow
	}
	last := len(s.items) - 1
	item := s.items[last]
	s.items = s.items[:last]
	if s.refs != nil {
		s.refs.Remove(item)
	}
	return item, nil
}

// Peek returns the item n positions from the top without removing it (0
// is the top element).
func (s *Stack) Peek(n int) (stackitem.Item, error) {
	i := len(s.items) - 1 - n
	if i < 0 || i >= len(s.items) {
		return nil, errStackUnderflow
	}
	return s.items[i], nil
}

// Remove removes and returns the item n positions from the top.
func (s *Stack) Remove(n int) (stackitem.Item, error) {
	i := len(s.items) - 1 - n
	if i < 0 || i >= len(s.items) {
		return nil, errStackUnderflow
	}
	item := s.items[i]
	s.items = append(s.items[:i], s.items[i+1:]...)
	return item, nil
}

// Insert pushes item at depth n from the top (0 means on top of
// everything, used by TUCK/ROLL).
func (s *Stack) Insert(n int, item stackitem.Item) error {
	if n < 0 || n > len(s.items) {
		return errStackUnderflow
	}
	if s.refs != nil {
		if err := s.refs.Add(item); err != nil {
			return err
		}
	}
	i := len(s.items) - n
	s.items = append(s.items, nil)
	copy(s.items[i+1:], s.items[i:])
	s.items[i] = item
	return nil
}

// Clear drops every item on the stack, releasing its reference counts.
func (s *Stack) Clear() {
	if s.refs != nil {
		for _, it := range s.items {
			s.refs.Remove(it)
		}
	}
	s.items = nil
}

var errStackUnderflow = stackUnderflowError{}

type stackUnderflowError struct{}

func (stackUnderflowError) Error() string { return "insufficient elements on the stack" }

// Slots holds a fixed-size bank of named local variables, statics, or
// arguments (INITSLOT/LDLOC/STLOC family, spec.md §4.1 "Slots").
type Slots []stackitem.Item

// NewSlots allocates n Null-initialized slots.
func NewSlots(n int) Slots {
	s := make(Slots, n)
	for i := range s {
		s[i] = stackitem.Null{}
	}
	return s
}

func (s Slots) Get(i int) (stackitem.Item, error) {
	if i < 0 || i >= len(s) {
		return nil, errStackUnderflow
	}
	return s[i], nil
}

func (s Slots) Set(i int, v stackitem.Item) error {
	if i < 0 || i >= len(s) {
		return errStackUnderflow
	}
	s[i] = v
	return nil
}
