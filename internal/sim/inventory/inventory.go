package inventory

import (
	"sort"

	"voxelcraft.ai/knitting/internal/sim/knitting"
)

// Slot holds at most one stack. Tool stacks carry a durability that Damage
// wears down; the tool breaks when it reaches zero.
type Slot struct {
	stack      knitting.Stack
	durability int
	maxStack   int
	dirty      bool
}

var _ knitting.ToolSlot = (*Slot)(nil)

func NewSlot(maxStack int) *Slot {
	return &Slot{maxStack: maxStack}
}

func NewToolSlot(tool knitting.Stack, durability int) *Slot {
	tool.Count = 1
	return &Slot{stack: tool, durability: durability, maxStack: 1}
}

func (s *Slot) Stack() (knitting.Stack, bool) {
	if s == nil || s.stack.Empty() {
		return knitting.Stack{}, false
	}
	return s.stack, true
}

func (s *Slot) Empty() bool {
	_, ok := s.Stack()
	return !ok
}

func (s *Slot) Put(st knitting.Stack) {
	if st.Empty() {
		s.stack = knitting.Stack{}
		return
	}
	s.stack = st
}

func (s *Slot) TakeOut(n int) knitting.Stack {
	if s == nil || s.stack.Empty() || n <= 0 {
		return knitting.Stack{}
	}
	if n > s.stack.Count {
		n = s.stack.Count
	}
	out := s.stack
	out.Count = n
	s.stack.Count -= n
	if s.stack.Count == 0 {
		s.stack = knitting.Stack{}
		s.durability = 0
	}
	return out
}

func (s *Slot) Damage(amount int) int {
	if s == nil || s.stack.Empty() {
		return 0
	}
	s.durability -= amount
	if s.durability <= 0 {
		s.durability = 0
		s.stack = knitting.Stack{}
	}
	return s.durability
}

func (s *Slot) Durability() int { return s.durability }

func (s *Slot) MarkDirty() {
	if s != nil {
		s.dirty = true
	}
}

// TakeDirty reports and clears the dirty flag.
func (s *Slot) TakeDirty() bool {
	if s == nil {
		return false
	}
	d := s.dirty
	s.dirty = false
	return d
}

// space reports how many units of st this slot can still accept.
func (s *Slot) space(st knitting.Stack) int {
	if s.stack.Empty() {
		return s.maxStack
	}
	if s.stack.ID != st.ID || s.stack.Kind != st.Kind {
		return 0
	}
	return s.maxStack - s.stack.Count
}

// Inventory is a fixed set of slots.
type Inventory struct {
	slots []*Slot
}

func New(slots, maxStack int) *Inventory {
	inv := &Inventory{slots: make([]*Slot, slots)}
	for i := range inv.slots {
		inv.slots[i] = NewSlot(maxStack)
	}
	return inv
}

func (inv *Inventory) Len() int { return len(inv.slots) }

func (inv *Inventory) Slot(i int) *Slot {
	if i < 0 || i >= len(inv.slots) {
		return nil
	}
	return inv.slots[i]
}

// TryGiveStack merges st into matching stacks first, then empty slots. It is
// all or nothing: if st does not fit entirely, nothing changes.
func (inv *Inventory) TryGiveStack(st knitting.Stack) bool {
	if st.Empty() {
		return false
	}
	free := 0
	for _, s := range inv.slots {
		free += s.space(st)
	}
	if free < st.Count {
		return false
	}
	left := st.Count
	// Partial stacks first so that items consolidate.
	for pass := 0; pass < 2 && left > 0; pass++ {
		for _, s := range inv.slots {
			if left == 0 {
				break
			}
			if (pass == 0) == s.stack.Empty() {
				continue
			}
			n := s.space(st)
			if n <= 0 {
				continue
			}
			if n > left {
				n = left
			}
			if s.stack.Empty() {
				s.stack = knitting.Stack{ID: st.ID, Kind: st.Kind}
			}
			s.stack.Count += n
			s.dirty = true
			left -= n
		}
	}
	return true
}

// TakeDirty clears every slot's dirty flag and reports whether any was set.
func (inv *Inventory) TakeDirty() bool {
	dirty := false
	for _, s := range inv.slots {
		if s.TakeDirty() {
			dirty = true
		}
	}
	return dirty
}

// Counts sums the inventory by item id.
func (inv *Inventory) Counts() map[string]int {
	out := map[string]int{}
	for _, s := range inv.slots {
		if st, ok := s.Stack(); ok {
			out[st.ID.String()] += st.Count
		}
	}
	return out
}

// Stacks returns the non-empty stacks sorted by id.
func (inv *Inventory) Stacks() []knitting.Stack {
	var out []knitting.Stack
	for _, s := range inv.slots {
		if st, ok := s.Stack(); ok {
			out = append(out, st)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}
