package knitting

import "testing"

func TestDriver_RunsToCompletion(t *testing.T) {
	r := newRig(t, SideServer, flax, 8)
	d := NewDriver(0.05, r.n)
	if h := d.Begin(r.actor, r.tool); h != HandlingPreventDefault || !d.Active() {
		t.Fatalf("expected active driver, got %v", h)
	}

	ticks := 0
	for d.Tick() {
		ticks++
		if ticks > 200 {
			t.Fatalf("driver never finished")
		}
	}
	if ticks < 78 || ticks > 81 {
		t.Fatalf("expected about 4s of ticks at 20Hz, got %d", ticks)
	}
	if d.Active() {
		t.Fatalf("driver should be idle after completion")
	}
	if r.twineCount() != 4 || len(r.actor.given) != 1 {
		t.Fatalf("expected one conversion, twine=%d given=%d", r.twineCount(), len(r.actor.given))
	}
}

func TestDriver_ReleaseEarly(t *testing.T) {
	r := newRig(t, SideServer, flax, 8)
	d := NewDriver(0.05, r.n)
	d.Begin(r.actor, r.tool)
	for i := 0; i < 20; i++ {
		d.Tick()
	}
	d.Release()
	if d.Active() || r.twineCount() != 8 || r.n.LastOutcome() != OutcomeReleased {
		t.Fatalf("early release converted or left driver active")
	}
	if d.Tick() {
		t.Fatalf("tick after release must report idle")
	}
}

func TestDriver_GateDeniedStaysIdle(t *testing.T) {
	r := newRig(t, SideServer, flax, 2)
	d := NewDriver(0.05, r.n)
	if h := d.Begin(r.actor, r.tool); h != HandlingDefault || d.Active() {
		t.Fatalf("driver must not activate without twine")
	}
}

func TestDriver_MirrorsBothSides(t *testing.T) {
	client := newRig(t, SideClient, flax, 4)
	server := newRig(t, SideServer, flax, 4)
	// Both contexts observe the same actor and tool.
	server.actor = client.actor
	server.tool = client.tool

	d := NewDriver(0.25, client.n, server.n)
	d.Begin(client.actor, client.tool)
	for d.Tick() {
	}
	if client.twineCount() != 0 || len(client.actor.given) != 1 {
		t.Fatalf("expected exactly one conversion from the server context")
	}
	if client.n.LastOutcome() != OutcomeCompleted || server.n.LastOutcome() != OutcomeCompleted {
		t.Fatalf("outcomes: client=%v server=%v", client.n.LastOutcome(), server.n.LastOutcome())
	}
	if s := client.sounds.sounds[0]; s.stopped != 1 || s.disposed != 1 {
		t.Fatalf("client cue not released")
	}
}

func TestDriver_Cancel(t *testing.T) {
	r := newRig(t, SideClient, flax, 4)
	d := NewDriver(0.05, r.n)
	d.Begin(r.actor, r.tool)
	d.Tick()
	d.Cancel(CancelDisconnected)
	if d.Active() || r.n.LastOutcome() != OutcomeCancelled {
		t.Fatalf("cancel did not end the use")
	}
}
