package knitting

import (
	"fmt"
	"time"

	"voxelcraft.ai/knitting/internal/sim/catalogs"
	"voxelcraft.ai/knitting/internal/sim/tuning"
)

const (
	LangNeedTwine = "knitting:knitting-need-twine"
	LangKnit      = "knitting:knit"

	errorSource = "knittingneedles"
	errNoTwine  = "notwine"
)

type State int

const (
	StateIdle State = iota
	StateActive
)

func (s State) String() string {
	if s == StateActive {
		return "ACTIVE"
	}
	return "IDLE"
}

// Outcome is how the last session ended.
type Outcome string

const (
	OutcomeNone      Outcome = ""
	OutcomeCompleted Outcome = "COMPLETED"
	OutcomeReleased  Outcome = "RELEASED_EARLY"
	OutcomeCancelled Outcome = "CANCELLED"
	OutcomeFailed    Outcome = "FAILED"
)

type session struct {
	actorID        string
	sittingAtStart bool
	sound          Sound
}

// Needles turns twine held in the off hand into cloth while the use button is
// held. One instance serves one tool in one execution context.
type Needles struct {
	table *catalogs.ConversionTable
	tune  tuning.Tuning
	host  Host

	session *session
	last    Outcome
}

var _ HeldInteraction = (*Needles)(nil)

func New(table *catalogs.ConversionTable, tune tuning.Tuning, host Host) (*Needles, error) {
	if table == nil {
		return nil, fmt.Errorf("knitting: nil conversion table")
	}
	if !table.Frozen() {
		return nil, fmt.Errorf("knitting: conversion table must be frozen before use")
	}
	if err := tune.Validate(); err != nil {
		return nil, fmt.Errorf("knitting: %w", err)
	}
	if host.Side == SideServer && host.World == nil {
		return nil, fmt.Errorf("knitting: server side needs a world to drop output into")
	}
	if host.Now == nil {
		host.Now = time.Now
	}
	return &Needles{table: table, tune: tune, host: host}, nil
}

func (n *Needles) Side() Side { return n.host.Side }

func (n *Needles) State() State {
	if n.session != nil {
		return StateActive
	}
	return StateIdle
}

func (n *Needles) LastOutcome() Outcome { return n.last }

// CanKnit reports whether slot holds enough of a knittable material.
func (n *Needles) CanKnit(slot Slot) bool {
	if slot == nil {
		return false
	}
	st, ok := slot.Stack()
	if !ok || st.Empty() {
		return false
	}
	if _, ok := n.table.Lookup(st.ID); !ok {
		return false
	}
	return st.Count >= n.tune.TwinePerCloth
}

// KnitTime is the hold duration needed for one cloth.
func (n *Needles) KnitTime(sitting bool) float64 {
	if sitting {
		return n.tune.SecondsPerClothSitting
	}
	return n.tune.SecondsPerCloth
}

func (n *Needles) OnHeldInteractStart(actor Actor) Handling {
	if !validActor(actor) {
		return HandlingDefault
	}

	if actor.StoreModifier() {
		if n.host.Fallback != nil {
			return n.host.Fallback(actor)
		}
		return HandlingDefault
	}

	if !n.CanKnit(actor.OffHandSlot()) {
		n.notifyNeedTwine()
		if n.session != nil {
			n.finish(actor, OutcomeFailed)
		} else {
			actor.StopAnimation(n.tune.Animation)
		}
		return HandlingDefault
	}

	// A start while already active replaces the old session.
	if n.session != nil {
		n.releaseSound()
	}
	n.session = &session{actorID: actor.ID(), sittingAtStart: actor.FloorSitting()}
	actor.StartAnimation(n.tune.Animation)

	if n.host.Side == SideClient && n.host.Sounds != nil {
		s := n.host.Sounds.LoadSound(SoundParams{
			Location:        n.tune.Sound.Location,
			Pos:             actor.Pos(),
			Loop:            n.tune.Sound.Loop,
			DisposeOnFinish: true,
			Volume:          n.tune.Sound.Volume,
			Range:           n.tune.Sound.Range,
		})
		if s != nil {
			s.Start()
		}
		n.session.sound = s
	}
	return HandlingPreventDefault
}

func (n *Needles) OnHeldInteractStep(secondsUsed float64, actor Actor) bool {
	if n.session == nil {
		return false
	}
	if !n.CanKnit(offHand(actor)) {
		n.notifyNeedTwine()
		n.finish(actor, OutcomeFailed)
		return false
	}
	return secondsUsed < n.KnitTime(n.session.sittingAtStart)
}

func (n *Needles) OnHeldInteractStop(secondsUsed float64, tool ToolSlot, actor Actor) {
	s := n.session
	if s == nil {
		return
	}
	if secondsUsed < n.KnitTime(s.sittingAtStart) {
		n.finish(actor, OutcomeReleased)
		return
	}
	if !validActor(actor) {
		n.finish(actor, OutcomeFailed)
		return
	}
	twine := actor.OffHandSlot()
	if !n.CanKnit(twine) {
		n.finish(actor, OutcomeFailed)
		return
	}
	if n.host.Side != SideServer {
		n.finish(actor, OutcomeCompleted)
		return
	}

	durability := -1
	if tool != nil {
		durability = tool.Damage(1)
		tool.MarkDirty()
	}

	st, _ := twine.Stack()
	product, ok := n.table.Lookup(st.ID)
	if !ok {
		n.finish(actor, OutcomeFailed)
		return
	}
	cloth := Stack{ID: product.ID, Kind: product.Kind, Count: 1}

	taken := twine.TakeOut(n.tune.TwinePerCloth)
	twine.MarkDirty()

	dropped := false
	if !actor.TryGiveStack(cloth) {
		n.host.World.SpawnItemEntity(cloth, actor.Pos())
		dropped = true
	}

	n.finish(actor, OutcomeCompleted)

	c := Conversion{
		At:             n.host.Now().UTC(),
		Actor:          actor.ID(),
		Input:          st.ID,
		Consumed:       taken.Count,
		Output:         cloth,
		Dropped:        dropped,
		ToolDurability: durability,
	}
	if n.host.Logger != nil {
		n.host.Logger.Printf("knit actor=%s input=%s output=%s dropped=%v durability=%d", c.Actor, c.Input, c.Output.ID, c.Dropped, c.ToolDurability)
	}
	if n.host.Recorder != nil {
		n.host.Recorder.RecordConversion(c)
	}
}

func (n *Needles) OnHeldInteractCancel(secondsUsed float64, actor Actor, reason CancelReason) bool {
	n.finish(actor, OutcomeCancelled)
	return true
}

// HeldInteractionHelp lists up to HelpExamples knittable materials, in table
// order.
func (n *Needles) HeldInteractionHelp() []WorldInteraction {
	keys := n.table.Examples(n.tune.HelpExamples)
	stacks := make([]Stack, 0, len(keys))
	for _, k := range keys {
		stacks = append(stacks, Stack{ID: k, Kind: catalogs.KindItem, Count: 1})
	}
	return []WorldInteraction{{
		ActionLangCode: LangKnit,
		MouseButton:    MouseRight,
		Itemstacks:     stacks,
	}}
}

func (n *Needles) finish(actor Actor, o Outcome) {
	n.releaseSound()
	if actor != nil {
		actor.StopAnimation(n.tune.Animation)
	}
	if n.session != nil && n.host.Logger != nil && o != OutcomeCompleted {
		n.host.Logger.Printf("knit session actor=%s side=%s outcome=%s", n.session.actorID, n.host.Side, o)
	}
	n.session = nil
	n.last = o
}

func (n *Needles) releaseSound() {
	if n.session == nil || n.session.sound == nil {
		return
	}
	n.session.sound.Stop()
	n.session.sound.Dispose()
	n.session.sound = nil
}

func (n *Needles) notifyNeedTwine() {
	if n.host.Side != SideClient || n.host.Notify == nil {
		return
	}
	msg := LangNeedTwine
	if n.host.Lang != nil {
		msg = n.host.Lang.Get(LangNeedTwine, n.tune.TwinePerCloth)
	}
	n.host.Notify.TriggerIngameError(errorSource, errNoTwine, msg)
}

func validActor(a Actor) bool {
	return a != nil && a.IsPlayer()
}

func offHand(a Actor) Slot {
	if a == nil {
		return nil
	}
	return a.OffHandSlot()
}
