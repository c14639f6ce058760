package knitting

import (
	"log"
	"time"

	"voxelcraft.ai/knitting/internal/sim/catalogs"
)

// Side selects which execution context a Needles instance runs in. Only the
// server applies inventory and durability changes; the client plays cues and
// shows errors.
type Side int

const (
	SideServer Side = iota
	SideClient
)

func (s Side) String() string {
	if s == SideClient {
		return "client"
	}
	return "server"
}

type Handling int

const (
	HandlingDefault Handling = iota
	HandlingPreventDefault
)

type CancelReason string

const (
	CancelReleased     CancelReason = "RELEASED"
	CancelDeath        CancelReason = "DEATH"
	CancelDisconnected CancelReason = "DISCONNECTED"
	CancelSlotChanged  CancelReason = "SLOT_CHANGED"
)

type Vec3 struct {
	X, Y, Z float64
}

// Stack is an amount of one item or block.
type Stack struct {
	ID    catalogs.AssetLocation `json:"id"`
	Kind  catalogs.ProductKind   `json:"kind"`
	Count int                    `json:"count"`
}

func (s Stack) Empty() bool { return s.ID.IsZero() || s.Count <= 0 }

// Slot is an inventory slot owned by the host.
type Slot interface {
	// Stack reports the slot content; ok is false when the slot is empty.
	Stack() (st Stack, ok bool)
	// TakeOut removes up to n units and returns what was removed.
	TakeOut(n int) Stack
	MarkDirty()
}

// ToolSlot is the slot holding the needles themselves.
type ToolSlot interface {
	Slot
	// Damage applies wear and returns the remaining durability. The tool
	// breaks (slot empties) at zero.
	Damage(amount int) int
}

// Actor is the entity holding the needles.
type Actor interface {
	ID() string
	// IsPlayer is false for entities that cannot knit (npcs, dead players).
	IsPlayer() bool
	StoreModifier() bool
	FloorSitting() bool
	Pos() Vec3
	OffHandSlot() Slot
	// TryGiveStack deposits st into the actor's inventory, all or nothing.
	TryGiveStack(st Stack) bool
	StartAnimation(code string)
	StopAnimation(code string)
}

type SoundParams struct {
	Location        string
	Pos             Vec3
	Loop            bool
	DisposeOnFinish bool
	Volume          float64
	Range           float64
}

type Sound interface {
	Start()
	Stop()
	Dispose()
}

type SoundLoader interface {
	LoadSound(p SoundParams) Sound
}

type Notifier interface {
	TriggerIngameError(source, code, message string)
}

type Spawner interface {
	SpawnItemEntity(st Stack, pos Vec3)
}

type Translator interface {
	Get(code string, args ...any) string
}

// Recorder receives completed conversions on the server side.
type Recorder interface {
	RecordConversion(c Conversion)
}

type Conversion struct {
	At             time.Time              `json:"at"`
	Actor          string                 `json:"actor"`
	Input          catalogs.AssetLocation `json:"input"`
	Consumed       int                    `json:"consumed"`
	Output         Stack                  `json:"output"`
	Dropped        bool                   `json:"dropped"`
	ToolDurability int                    `json:"tool_durability"`
}

// Host bundles the collaborators a Needles instance talks to. Nil members are
// skipped, except World which a server side instance requires.
type Host struct {
	Side     Side
	Sounds   SoundLoader
	Notify   Notifier
	World    Spawner
	Lang     Translator
	Recorder Recorder
	// Fallback handles the store-modifier interaction (ground storage).
	Fallback func(actor Actor) Handling
	Logger   *log.Logger
	Now      func() time.Time
}

// HeldInteraction is the lifecycle a host drives while an item is held down.
type HeldInteraction interface {
	OnHeldInteractStart(actor Actor) Handling
	OnHeldInteractStep(secondsUsed float64, actor Actor) bool
	OnHeldInteractStop(secondsUsed float64, tool ToolSlot, actor Actor)
	OnHeldInteractCancel(secondsUsed float64, actor Actor, reason CancelReason) bool
	HeldInteractionHelp() []WorldInteraction
}

type MouseButton string

const MouseRight MouseButton = "RIGHT"

type WorldInteraction struct {
	ActionLangCode string      `json:"action_lang_code"`
	MouseButton    MouseButton `json:"mouse_button"`
	Itemstacks     []Stack     `json:"itemstacks"`
}
