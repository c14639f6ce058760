package world

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"voxelcraft.ai/knitting/internal/sim/inventory"
	"voxelcraft.ai/knitting/internal/sim/knitting"
	"voxelcraft.ai/knitting/internal/sim/tuning"
)

type Vec3i struct {
	X, Y, Z int
}

func BlockPos(p knitting.Vec3) Vec3i {
	return Vec3i{X: int(math.Floor(p.X)), Y: int(math.Floor(p.Y)), Z: int(math.Floor(p.Z))}
}

// World is the shared state behind all connected players: the player table
// and the ground items that spill out of full inventories.
type World struct {
	tune tuning.Tuning
	log  *log.Logger

	mu      sync.Mutex
	tick    uint64
	players map[string]*Player
	nextID  uint64
	items   map[string]*GroundItem
	itemsAt map[Vec3i][]string
}

var _ knitting.Spawner = (*World)(nil)

func New(tune tuning.Tuning, logger *log.Logger) *World {
	return &World{
		tune:    tune,
		log:     logger,
		players: map[string]*Player{},
		items:   map[string]*GroundItem{},
		itemsAt: map[Vec3i][]string{},
	}
}

func (w *World) CurrentTick() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tick
}

// Join creates a player with an empty inventory and the needles in hand.
func (w *World) Join(name string, needles knitting.Stack) *Player {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextID++
	id := fmt.Sprintf("P%d", w.nextID)
	if name == "" {
		name = "player"
	}
	p := &Player{
		id:        id,
		name:      name,
		alive:     true,
		inv:       inventory.New(w.tune.InventorySlots, w.tune.MaxStack),
		offHand:   inventory.NewSlot(w.tune.MaxStack),
		mainHand:  inventory.NewToolSlot(needles, w.tune.NeedlesDurability),
		animating: map[string]bool{},
	}
	w.players[id] = p
	return p
}

func (w *World) Leave(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.players, id)
}

func (w *World) Player(id string) (*Player, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.players[id]
	return p, ok
}

func (w *World) PlayerCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.players)
}

// Step advances the world clock by one tick and despawns expired ground items.
func (w *World) Step() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tick++
	for _, id := range SortedExpired(w.items, w.tick) {
		e := w.items[id]
		delete(w.items, id)
		w.itemsAt[e.Pos] = removeID(w.itemsAt[e.Pos], id)
		if len(w.itemsAt[e.Pos]) == 0 {
			delete(w.itemsAt, e.Pos)
		}
	}
}

// Run ticks the world at the tuned rate until ctx is done.
func (w *World) Run(ctx context.Context) {
	t := time.NewTicker(time.Second / time.Duration(w.tune.TickRateHz))
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.Step()
		}
	}
}
