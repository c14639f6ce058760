package knitting

// Driver is the host-side held-use loop. It owns the timer and feeds the same
// tick stream to every execution context it drives (typically a client mirror
// followed by the authoritative server instance).
type Driver struct {
	contexts    []HeldInteraction
	tickSeconds float64

	actor       Actor
	tool        ToolSlot
	active      bool
	ticks       int
	secondsUsed float64
}

func NewDriver(tickSeconds float64, contexts ...HeldInteraction) *Driver {
	return &Driver{contexts: contexts, tickSeconds: tickSeconds}
}

func (d *Driver) Active() bool         { return d.active }
func (d *Driver) SecondsUsed() float64 { return d.secondsUsed }

// Begin starts a held use. It reports the handling of the first context; the
// driver becomes active if any context takes over the input.
func (d *Driver) Begin(actor Actor, tool ToolSlot) Handling {
	if d.active {
		d.Cancel(CancelSlotChanged)
	}
	first := HandlingDefault
	taken := false
	for i, c := range d.contexts {
		h := c.OnHeldInteractStart(actor)
		if i == 0 {
			first = h
		}
		if h == HandlingPreventDefault {
			taken = true
		}
	}
	d.actor = actor
	d.tool = tool
	d.ticks = 0
	d.secondsUsed = 0
	d.active = taken
	return first
}

// Tick advances one tick. When a context stops wanting more time the use
// ends normally and Stop runs on every context. It reports whether the use is
// still in progress.
func (d *Driver) Tick() bool {
	if !d.active {
		return false
	}
	d.ticks++
	d.secondsUsed = float64(d.ticks) * d.tickSeconds
	more := true
	for _, c := range d.contexts {
		if !c.OnHeldInteractStep(d.secondsUsed, d.actor) {
			more = false
		}
	}
	if !more {
		d.stop()
	}
	return more
}

// Release ends the use because the button was let go.
func (d *Driver) Release() {
	if !d.active {
		return
	}
	d.stop()
}

func (d *Driver) Cancel(reason CancelReason) {
	if !d.active {
		return
	}
	for _, c := range d.contexts {
		c.OnHeldInteractCancel(d.secondsUsed, d.actor, reason)
	}
	d.reset()
}

func (d *Driver) stop() {
	for _, c := range d.contexts {
		c.OnHeldInteractStop(d.secondsUsed, d.tool, d.actor)
	}
	d.reset()
}

func (d *Driver) reset() {
	d.active = false
	d.actor = nil
	d.tool = nil
}
