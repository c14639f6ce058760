package knitting

import (
	"testing"

	"voxelcraft.ai/knitting/internal/sim/catalogs"
	"voxelcraft.ai/knitting/internal/sim/tuning"
)

type fakeSlot struct {
	st    Stack
	dirty int
}

func (s *fakeSlot) Stack() (Stack, bool) {
	if s.st.Empty() {
		return Stack{}, false
	}
	return s.st, true
}

func (s *fakeSlot) TakeOut(n int) Stack {
	if n > s.st.Count {
		n = s.st.Count
	}
	out := s.st
	out.Count = n
	s.st.Count -= n
	if s.st.Count == 0 {
		s.st = Stack{}
	}
	return out
}

func (s *fakeSlot) MarkDirty() { s.dirty++ }

type fakeTool struct {
	fakeSlot
	durability int
	damaged    int
}

func (t *fakeTool) Damage(amount int) int {
	t.damaged += amount
	t.durability -= amount
	return t.durability
}

type fakeActor struct {
	id      string
	player  bool
	store   bool
	sitting bool
	offHand *fakeSlot
	given   []Stack
	full    bool
	anims   []string
	stopped []string
}

func (a *fakeActor) ID() string          { return a.id }
func (a *fakeActor) IsPlayer() bool      { return a.player }
func (a *fakeActor) StoreModifier() bool { return a.store }
func (a *fakeActor) FloorSitting() bool  { return a.sitting }
func (a *fakeActor) Pos() Vec3           { return Vec3{X: 1, Y: 2, Z: 3} }
func (a *fakeActor) OffHandSlot() Slot {
	if a.offHand == nil {
		return nil
	}
	return a.offHand
}
func (a *fakeActor) TryGiveStack(st Stack) bool {
	if a.full {
		return false
	}
	a.given = append(a.given, st)
	return true
}
func (a *fakeActor) StartAnimation(code string) { a.anims = append(a.anims, code) }
func (a *fakeActor) StopAnimation(code string)  { a.stopped = append(a.stopped, code) }

type fakeSound struct {
	started, stopped, disposed int
}

func (s *fakeSound) Start()   { s.started++ }
func (s *fakeSound) Stop()    { s.stopped++ }
func (s *fakeSound) Dispose() { s.disposed++ }

type fakeLoader struct {
	sounds []*fakeSound
	params []SoundParams
}

func (l *fakeLoader) LoadSound(p SoundParams) Sound {
	s := &fakeSound{}
	l.sounds = append(l.sounds, s)
	l.params = append(l.params, p)
	return s
}

type fakeNotifier struct{ msgs []string }

func (n *fakeNotifier) TriggerIngameError(source, code, message string) {
	n.msgs = append(n.msgs, code+":"+message)
}

type spawned struct {
	st  Stack
	pos Vec3
}

type fakeWorld struct{ spawned []spawned }

func (w *fakeWorld) SpawnItemEntity(st Stack, pos Vec3) {
	w.spawned = append(w.spawned, spawned{st: st, pos: pos})
}

type fakeRecorder struct{ got []Conversion }

func (r *fakeRecorder) RecordConversion(c Conversion) { r.got = append(r.got, c) }

type rig struct {
	n        *Needles
	actor    *fakeActor
	tool     *fakeTool
	sounds   *fakeLoader
	notify   *fakeNotifier
	world    *fakeWorld
	recorder *fakeRecorder
}

var (
	flax    = catalogs.MustAsset("game:flaxtwine")
	linen   = catalogs.MustAsset("game:linen-normal-down")
	redWool = catalogs.MustAsset("wool:twine-wool-red")
	unknown = catalogs.MustAsset("game:rope")
)

func newRig(t *testing.T, side Side, twine catalogs.AssetLocation, count int) *rig {
	t.Helper()
	r := &rig{
		actor:    &fakeActor{id: "P1", player: true, offHand: &fakeSlot{st: Stack{ID: twine, Kind: catalogs.KindItem, Count: count}}},
		tool:     &fakeTool{durability: 10},
		sounds:   &fakeLoader{},
		notify:   &fakeNotifier{},
		world:    &fakeWorld{},
		recorder: &fakeRecorder{},
	}
	n, err := New(catalogs.Populate(catalogs.NewModSet(catalogs.ModWool)), tuning.Defaults(), Host{
		Side:     side,
		Sounds:   r.sounds,
		Notify:   r.notify,
		World:    r.world,
		Recorder: r.recorder,
	})
	if err != nil {
		t.Fatalf("new needles: %v", err)
	}
	r.n = n
	return r
}

func (r *rig) twineCount() int { return r.actor.offHand.st.Count }
