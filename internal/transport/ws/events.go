package ws

import (
	"voxelcraft.ai/knitting/internal/protocol"
	"voxelcraft.ai/knitting/internal/sim/knitting"
)

// eventSink is the presentation side of a connection: cues, toasts and
// results are queued as protocol events and flushed once per loop step.
type eventSink struct {
	events []protocol.Event
}

var (
	_ knitting.SoundLoader = (*eventSink)(nil)
	_ knitting.Notifier    = (*eventSink)(nil)
)

func (s *eventSink) add(e protocol.Event) { s.events = append(s.events, e) }

func (s *eventSink) drain() []protocol.Event {
	out := s.events
	s.events = nil
	return out
}

func (s *eventSink) LoadSound(p knitting.SoundParams) knitting.Sound {
	return &wireSound{sink: s, params: p}
}

func (s *eventSink) TriggerIngameError(source, code, message string) {
	s.add(protocol.Event{"type": protocol.EventToast, "source": source, "code": code, "message": message})
}

func (s *eventSink) animation(code string, playing bool) {
	s.add(protocol.Event{"type": protocol.EventAnimation, "code": code, "playing": playing})
}

// wireSound reports start and stop to the client, which owns real playback.
type wireSound struct {
	sink    *eventSink
	params  knitting.SoundParams
	playing bool
}

func (w *wireSound) Start() {
	if w.playing || w.sink == nil {
		return
	}
	w.playing = true
	w.sink.add(protocol.Event{
		"type":     protocol.EventSoundStart,
		"location": w.params.Location,
		"pos":      [3]float64{w.params.Pos.X, w.params.Pos.Y, w.params.Pos.Z},
		"volume":   w.params.Volume,
		"range":    w.params.Range,
		"loop":     w.params.Loop,
	})
}

func (w *wireSound) Stop() {
	if !w.playing || w.sink == nil {
		return
	}
	w.playing = false
	w.sink.add(protocol.Event{"type": protocol.EventSoundStop, "location": w.params.Location})
}

func (w *wireSound) Dispose() { w.sink = nil }

// resultRecorder forwards conversions to the shared recorder and tells the
// client what it received.
type resultRecorder struct {
	sink   *eventSink
	lang   knitting.Translator
	shared knitting.Recorder
}

func (r *resultRecorder) RecordConversion(c knitting.Conversion) {
	if r.shared != nil {
		r.shared.RecordConversion(c)
	}
	msg := r.lang.Get("knitting:knitting-done", c.Output.ID.String())
	if c.Dropped {
		msg = r.lang.Get("knitting:knitting-dropped", c.Output.ID.String())
	}
	r.sink.add(protocol.Event{
		"type":            protocol.EventKnitted,
		"input":           c.Input.String(),
		"consumed":        c.Consumed,
		"output":          c.Output.ID.String(),
		"output_kind":     string(c.Output.Kind),
		"dropped":         c.Dropped,
		"tool_durability": c.ToolDurability,
		"message":         msg,
	})
}

// multiRecorder fans a conversion out to several recorders.
type multiRecorder []knitting.Recorder

func (m multiRecorder) RecordConversion(c knitting.Conversion) {
	for _, r := range m {
		if r != nil {
			r.RecordConversion(c)
		}
	}
}

func MultiRecorder(rs ...knitting.Recorder) knitting.Recorder { return multiRecorder(rs) }
