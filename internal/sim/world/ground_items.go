package world

import (
	"fmt"
	"sort"

	"voxelcraft.ai/knitting/internal/sim/knitting"
)

type GroundItem struct {
	EntityID    string
	Pos         Vec3i
	Stack       knitting.Stack
	CreatedTick uint64
	ExpiresTick uint64
}

// SpawnItemEntity drops st at pos, merging into a ground item of the same
// kind on the same block when there is one.
func (w *World) SpawnItemEntity(st knitting.Stack, pos knitting.Vec3) {
	if st.Empty() {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	bp := BlockPos(pos)
	exp := w.tick + w.tune.GroundItemTTLTicks
	for _, id := range w.itemsAt[bp] {
		e := w.items[id]
		if e == nil || e.Stack.ID != st.ID || e.Stack.Kind != st.Kind {
			continue
		}
		e.Stack.Count += st.Count
		if exp > e.ExpiresTick {
			e.ExpiresTick = exp
		}
		w.logf("item spawn merged entity=%s item=%s count=%d", id, st.ID, st.Count)
		return
	}

	w.nextID++
	id := fmt.Sprintf("E%d", w.nextID)
	w.items[id] = &GroundItem{
		EntityID:    id,
		Pos:         bp,
		Stack:       st,
		CreatedTick: w.tick,
		ExpiresTick: exp,
	}
	w.itemsAt[bp] = append(w.itemsAt[bp], id)
	w.logf("item spawn entity=%s item=%s count=%d pos=%v", id, st.ID, st.Count, bp)
}

// GroundItems returns copies of the ground items sorted by entity id.
func (w *World) GroundItems() []GroundItem {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]GroundItem, 0, len(w.items))
	for _, e := range w.items {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	return out
}

// SortedExpired lists the ids of items whose TTL has passed at nowTick.
func SortedExpired(items map[string]*GroundItem, nowTick uint64) []string {
	out := make([]string, 0)
	for id, e := range items {
		if e.ExpiresTick != 0 && nowTick >= e.ExpiresTick {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func removeID(ids []string, id string) []string {
	for i := 0; i < len(ids); i++ {
		if ids[i] != id {
			continue
		}
		copy(ids[i:], ids[i+1:])
		return ids[:len(ids)-1]
	}
	return ids
}

func (w *World) logf(format string, args ...any) {
	if w.log != nil {
		w.log.Printf(format, args...)
	}
}
