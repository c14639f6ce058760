package world

import (
	"voxelcraft.ai/knitting/internal/sim/inventory"
	"voxelcraft.ai/knitting/internal/sim/knitting"
)

type Controls struct {
	Store        bool
	FloorSitting bool
}

// Player is a connected entity. It is owned by its connection loop and is not
// safe for concurrent use.
type Player struct {
	id    string
	name  string
	alive bool
	pos   knitting.Vec3

	controls Controls

	inv      *inventory.Inventory
	offHand  *inventory.Slot
	mainHand *inventory.Slot

	animating map[string]bool
	// OnAnimation observes animation state changes.
	OnAnimation func(code string, playing bool)
}

var _ knitting.Actor = (*Player)(nil)

func (p *Player) ID() string                      { return p.id }
func (p *Player) Name() string                    { return p.name }
func (p *Player) IsPlayer() bool                  { return p != nil && p.alive }
func (p *Player) StoreModifier() bool             { return p.controls.Store }
func (p *Player) FloorSitting() bool              { return p.controls.FloorSitting }
func (p *Player) Pos() knitting.Vec3              { return p.pos }
func (p *Player) OffHandSlot() knitting.Slot      { return p.offHand }
func (p *Player) OffHand() *inventory.Slot        { return p.offHand }
func (p *Player) MainHand() *inventory.Slot       { return p.mainHand }
func (p *Player) Inventory() *inventory.Inventory { return p.inv }

func (p *Player) SetControls(c Controls)   { p.controls = c }
func (p *Player) SetPos(pos knitting.Vec3) { p.pos = pos }
func (p *Player) Kill()                    { p.alive = false }

// TakeDirty drains the dirty flags of both hands and the inventory.
func (p *Player) TakeDirty() bool {
	off := p.offHand.TakeDirty()
	main := p.mainHand.TakeDirty()
	inv := p.inv.TakeDirty()
	return off || main || inv
}

func (p *Player) TryGiveStack(st knitting.Stack) bool {
	return p.inv.TryGiveStack(st)
}

func (p *Player) StartAnimation(code string) { p.setAnimation(code, true) }
func (p *Player) StopAnimation(code string)  { p.setAnimation(code, false) }

func (p *Player) Animating(code string) bool { return p != nil && p.animating[code] }

func (p *Player) setAnimation(code string, playing bool) {
	if p == nil || p.animating[code] == playing {
		return
	}
	p.animating[code] = playing
	if p.OnAnimation != nil {
		p.OnAnimation(code, playing)
	}
}
